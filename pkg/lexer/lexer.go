package lexer

import (
	"sona/pkg/token"
	"strings"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int

	// Open brackets, innermost last. Newlines are only significant when
	// the innermost one is a brace (or there is none).
	groups      []byte
	lastNewline bool
}

func New(input string) *Lexer {
	l := &Lexer{
		input:       input,
		line:        1,
		column:      0,
		lastNewline: true,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition += 1
	l.column += 1
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// Tokenize drains the lexer. The final element is always EOF.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	for {
		// Skip whitespace but NOT newlines
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '#' || (l.ch == '/' && l.peekChar() == '/') {
			l.skipComment()
			continue
		}

		if l.ch == '\n' {
			line, col := l.line, l.column
			l.readChar()
			l.line++
			l.column = 1
			if l.inGroup() || l.lastNewline {
				continue
			}
			l.lastNewline = true
			return token.Token{Type: token.NEWLINE, Literal: "\n", Line: line, Column: col}
		}
		break
	}

	l.lastNewline = false
	line, col := l.line, l.column

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "=="}
		} else {
			tok = newToken(token.ASSIGN, l.ch)
		}
	case '+':
		tok = newToken(token.PLUS, l.ch)
	case '-':
		tok = newToken(token.MINUS, l.ch)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NOT_EQ, Literal: "!="}
		} else {
			tok = newToken(token.BANG, l.ch)
		}
	case '/':
		tok = newToken(token.SLASH, l.ch)
	case '*':
		tok = newToken(token.ASTERISK, l.ch)
	case '%':
		tok = newToken(token.PERCENT, l.ch)
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LTE, Literal: "<="}
		} else {
			tok = newToken(token.LT, l.ch)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GTE, Literal: ">="}
		} else {
			tok = newToken(token.GT, l.ch)
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = token.Token{Type: token.AND, Literal: "&&"}
		} else {
			tok = newToken(token.ILLEGAL, l.ch)
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = token.Token{Type: token.OR, Literal: "||"}
		} else {
			tok = newToken(token.ILLEGAL, l.ch)
		}
	case ',':
		tok = newToken(token.COMMA, l.ch)
	case ':':
		tok = newToken(token.COLON, l.ch)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch)
	case '(':
		l.groups = append(l.groups, '(')
		tok = newToken(token.LPAREN, l.ch)
	case ')':
		l.closeGroup()
		tok = newToken(token.RPAREN, l.ch)
	case '[':
		l.groups = append(l.groups, '[')
		tok = newToken(token.LBRACKET, l.ch)
	case ']':
		l.closeGroup()
		tok = newToken(token.RBRACKET, l.ch)
	case '.':
		tok = newToken(token.DOT, l.ch)
	case '{':
		l.groups = append(l.groups, '{')
		tok = newToken(token.LBRACE, l.ch)
	case '}':
		l.closeGroup()
		tok = newToken(token.RBRACE, l.ch)
	case '"', '\'':
		lit, ok := l.readString(l.ch)
		if !ok {
			tok = token.Token{Type: token.ILLEGAL, Literal: "unterminated string"}
		} else {
			tok = token.Token{Type: token.STRING, Literal: lit}
		}
	case 0:
		tok = token.Token{Type: token.EOF, Literal: ""}
		tok.Line, tok.Column = line, col
		return tok
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			tok.Line, tok.Column = line, col
			return tok
		} else if isDigit(l.ch) {
			tok.Literal, tok.Type = l.readNumber()
			tok.Line, tok.Column = line, col
			return tok
		}
		tok = newToken(token.ILLEGAL, l.ch)
	}

	tok.Line, tok.Column = line, col
	l.readChar()
	return tok
}

func (l *Lexer) inGroup() bool {
	n := len(l.groups)
	return n > 0 && l.groups[n-1] != '{'
}

func (l *Lexer) closeGroup() {
	if n := len(l.groups); n > 0 {
		l.groups = l.groups[:n-1]
	}
}

func newToken(tokenType token.TokenType, ch byte) token.Token {
	return token.Token{Type: tokenType, Literal: string(ch)}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func (l *Lexer) readNumber() (string, token.TokenType) {
	position := l.position
	typ := token.TokenType(token.INT)
	for isDigit(l.ch) {
		l.readChar()
	}
	// "1.foo" stays an integer followed by a member access.
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = token.FLOAT
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position], typ
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// readString leaves l.ch on the closing quote.
func (l *Lexer) readString(quote byte) (string, bool) {
	var result strings.Builder
	l.readChar() // Skip opening quote

	for l.ch != quote {
		if l.ch == 0 {
			return result.String(), false
		}
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteByte('\n')
			case 't':
				result.WriteByte('\t')
			case 'r':
				result.WriteByte('\r')
			case '\\':
				result.WriteByte('\\')
			case '"':
				result.WriteByte('"')
			case '\'':
				result.WriteByte('\'')
			case '0':
				result.WriteByte('\x00')
			default:
				// Unknown escape, just include the backslash and character
				result.WriteByte('\\')
				result.WriteByte(l.ch)
			}
		} else {
			result.WriteByte(l.ch)
		}
		l.readChar()
	}

	return result.String(), true
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}
