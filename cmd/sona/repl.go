package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"sona/pkg/eval"
	"sona/pkg/interpreter"
	"sona/pkg/version"
)

const (
	PROMPT      = ">>> "
	CONT_PROMPT = "... "
)

// lineReader is satisfied by both the raw terminal and the plain scanner
// used when stdin is a pipe.
type lineReader interface {
	ReadLine() (string, error)
	SetPrompt(string)
}

type scanReader struct {
	scanner *bufio.Scanner
	prompt  string
	out     io.Writer
}

func (r *scanReader) SetPrompt(p string) { r.prompt = p }

func (r *scanReader) ReadLine() (string, error) {
	fmt.Fprint(r.out, r.prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func startREPL() {
	in, _ := newSession(workingDir())

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		repl(in, &scanReader{scanner: bufio.NewScanner(os.Stdin), prompt: PROMPT, out: os.Stdout}, os.Stdout)
		return
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting REPL: %v\n", err)
		os.Exit(1)
	}
	defer term.Restore(fd, state)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, PROMPT)
	repl(in, t, t)
}

func repl(in *interpreter.Interpreter, r lineReader, out io.Writer) {
	fmt.Fprintf(out, "Sona REPL v%s\n", version.Version)
	fmt.Fprintf(out, "Type statements and press Enter. :modules lists loaded modules, :quit exits.\n")

	var pending strings.Builder
	for {
		line, err := r.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(out, "%v\n", err)
			}
			return
		}

		if pending.Len() == 0 {
			switch strings.TrimSpace(line) {
			case "":
				continue
			case ":quit", ":q":
				return
			case ":modules":
				for _, e := range in.Cache().Entries() {
					fmt.Fprintf(out, "  %s (%s) %s\n", e.Path, e.State, e.Origin)
				}
				continue
			}
		}

		pending.WriteString(line)
		pending.WriteString("\n")
		if openBlocks(pending.String()) > 0 {
			r.SetPrompt(CONT_PROMPT)
			continue
		}
		r.SetPrompt(PROMPT)

		src := pending.String()
		pending.Reset()

		result, err := in.Eval(src)
		if err != nil {
			msg := err.Error()
			if useColor {
				msg = colorRed + msg + colorReset
			}
			fmt.Fprintln(out, msg)
			continue
		}
		if result != nil && result.Kind() != eval.KindNull {
			if useColor {
				fmt.Fprintln(out, colorDim+result.Inspect()+colorReset)
			} else {
				fmt.Fprintln(out, result.Inspect())
			}
		}
	}
}

// openBlocks counts unclosed braces and brackets outside string literals.
func openBlocks(src string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#' || (c == '/' && i+1 < len(src) && src[i+1] == '/'):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '{' || c == '[' || c == '(':
			depth++
		case c == '}' || c == ']' || c == ')':
			depth--
		}
	}
	return depth
}
