package token

import (
	"fmt"
	"strings"
)

type TokenType string

const (
	// Special
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	NEWLINE = "NEWLINE"

	// Identifiers & Literals
	IDENT  = "IDENT"
	INT    = "INT"
	FLOAT  = "FLOAT"
	STRING = "STRING"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	BANG     = "!"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"

	LT     = "<"
	GT     = ">"
	EQ     = "=="
	NOT_EQ = "!="
	LTE    = "<="
	GTE    = ">="

	// Delimiters
	COMMA     = ","
	COLON     = ":"
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"
	DOT       = "."

	// Keywords
	FUNC     = "FUNC"
	LET      = "LET"
	CONST    = "CONST"
	RETURN   = "RETURN"
	IF       = "IF"
	ELSE     = "ELSE"
	WHILE    = "WHILE"
	FOR      = "FOR"
	IN       = "IN"
	BREAK    = "BREAK"
	CONTINUE = "CONTINUE"
	IMPORT   = "IMPORT"
	FROM     = "FROM"
	AS       = "AS"
	TRUE     = "TRUE"
	FALSE    = "FALSE"
	NULL     = "NULL"
	AND      = "AND"
	OR       = "OR"
	NOT      = "NOT"
)

// NativePrefix marks identifiers that are resolved against the native
// bridge registry instead of the interpreted namespace.
const NativePrefix = "__native__"

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d:%d)", t.Type, t.Literal, t.Line, t.Column)
}

var keywords = map[string]TokenType{
	"func":     FUNC,
	"let":      LET,
	"const":    CONST,
	"return":   RETURN,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"in":       IN,
	"break":    BREAK,
	"continue": CONTINUE,
	"import":   IMPORT,
	"from":     FROM,
	"as":       AS,
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
	"and":      AND,
	"or":       OR,
	"not":      NOT,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsNative reports whether an identifier uses the native bridge marker.
func IsNative(ident string) bool {
	return strings.HasPrefix(ident, NativePrefix) && len(ident) > len(NativePrefix)
}
