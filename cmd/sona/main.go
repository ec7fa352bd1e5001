package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"sona/pkg/ast"
	"sona/pkg/config"
	"sona/pkg/eval"
	"sona/pkg/interpreter"
	"sona/pkg/lexer"
	"sona/pkg/parser"
	"sona/pkg/stdlib"
	"sona/pkg/version"
)

const (
	scriptExt = ".sona"

	colorRed   = "\033[31m"
	colorDim   = "\033[2m"
	colorReset = "\033[0m"
)

var useColor = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	command := os.Args[1]

	switch command {
	case "--version", "-v", "version":
		printVersion()
		return
	case "--help", "-h", "help":
		printHelp()
		return
	}

	if strings.HasSuffix(command, scriptExt) {
		runFile(command)
		return
	}

	switch command {
	case "repl":
		startREPL()
	case "run":
		runFile(requireArg("run <file>"))
	case "eval":
		evalCode(requireArg("eval '<code>'"))
	case "ast":
		printProgramAST(requireArg("ast <file>"))
	case "tokens":
		printTokens(requireArg("tokens <file>"))
	case "inspect":
		inspectFile(requireArg("inspect <file>"))
	case "modules":
		printModules(requireArg("modules <file>"))
	case "bridges":
		printBridges()
	case "stdlib":
		printStdlib()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printHelp()
		os.Exit(1)
	}
}

func requireArg(usage string) string {
	if len(os.Args) < 3 {
		fmt.Println("Usage: sona " + usage)
		os.Exit(1)
	}
	return os.Args[2]
}

func printUsage() {
	fmt.Println("Sona Programming Language v" + version.Version)
	fmt.Println("\nUsage:")
	fmt.Println("  sona <file.sona>         Run a Sona script")
	fmt.Println("  sona repl                Start interactive REPL")
	fmt.Println("  sona run <file>          Run a Sona script (explicit)")
	fmt.Println("  sona eval '<code>'       Evaluate Sona code")
	fmt.Println("  sona version             Show version information")
	fmt.Println("  sona help                Show all commands")
}

func printHelp() {
	fmt.Println("Sona - a small scripting language with native-backed modules")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sona <file.sona>       Run a script (shortcut for 'sona run')")
	fmt.Println("  sona run <file>        Execute a script")
	fmt.Println("  sona eval '<code>'     Evaluate code and print the result")
	fmt.Println("  sona repl              Start the interactive REPL")
	fmt.Println("  sona ast <file>        Print the program AST")
	fmt.Println("  sona tokens <file>     Print the token stream")
	fmt.Println("  sona inspect <file>    Summarize imports, functions and native bridges")
	fmt.Println("  sona modules <file>    Run a script and list the modules it loaded")
	fmt.Println("  sona bridges           List registered native bridges")
	fmt.Println("  sona stdlib            List standard library modules")
	fmt.Println("  sona version           Display build metadata")
	fmt.Println("  sona help              Show this help message")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  " + config.EnvPath + "              Extra module directories, " + string(os.PathListSeparator) + "-separated")
	fmt.Println("  " + config.EnvLog + "               Log level: debug, info, warn, error")
}

func printVersion() {
	fmt.Printf("Sona %s\n", version.Version)
	fmt.Printf("Build Date: %s\n", version.BuildDate)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
}

// newSession builds an interpreter for a project directory. The directory's
// sona.yaml and .env are read, and modules are searched there first.
func newSession(dir string) (*interpreter.Interpreter, config.Config) {
	cfg, err := config.Load(dir)
	if err != nil {
		fail(err, slog.LevelWarn)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	in, err := interpreter.New(interpreter.Options{
		Config: &cfg,
		Dir:    dir,
		Out:    os.Stdout,
		Logger: logger,
	})
	if err != nil {
		fail(err, cfg.Level())
	}
	return in, cfg
}

func workingDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

func runFile(filename string) *interpreter.Interpreter {
	in, cfg := newSession(filepath.Dir(filename))
	if _, err := in.RunFile(filename); err != nil {
		fail(err, cfg.Level())
	}
	return in
}

func evalCode(code string) {
	in, cfg := newSession(workingDir())
	result, err := in.Run(code, "<eval>")
	if err != nil {
		fail(err, cfg.Level())
	}
	if result != nil && result.Kind() != eval.KindNull {
		fmt.Println(result.Inspect())
	}
}

func inspectFile(filename string) {
	insights := analyzeProgram(parseFile(filename))

	fmt.Printf("Imports (%d)\n", len(insights.Imports))
	for _, imp := range insights.Imports {
		fmt.Printf("  · %s\n", describeImport(imp))
	}

	fmt.Printf("Functions (%d)\n", len(insights.Functions))
	for _, fn := range insights.Functions {
		visibility := "export"
		if fn.Private {
			visibility = "private"
		}
		fmt.Printf("  · %s %s(%s)\n", visibility, fn.Name, strings.Join(fn.Parameters, ", "))
	}

	fmt.Printf("Native bridges (%d)\n", len(insights.Natives))
	if len(insights.Natives) == 0 {
		fmt.Println("  · none, loads without the bridge registry")
	}
	for _, id := range insights.Natives {
		fmt.Printf("  · %s\n", id)
	}
}

// printModules runs a script and then lists every module the run touched,
// in the order the imports were first requested.
func printModules(filename string) {
	in := runFile(filename)
	entries := in.Cache().Entries()

	fmt.Printf("\nModules (%d)\n", len(entries))
	for _, e := range entries {
		bridges := "-"
		if e.RequiresBridge {
			bridges = strings.Join(e.NativeRefs, ",")
		}
		fmt.Printf("  %-20s %-8s %8s  %s  %s\n", e.Path, e.State, humanize.Bytes(uint64(e.Size)), e.Origin, bridges)
		if e.Err != nil {
			fmt.Printf("  %20s %s\n", "", e.Err)
		}
	}
}

func printBridges() {
	in, _ := newSession(workingDir())
	reg := in.Registry()
	for _, id := range reg.IDs() {
		b, err := reg.Resolve(id)
		if err != nil {
			continue
		}
		arity := fmt.Sprint(b.Arity)
		if b.Arity < 0 {
			arity = "variadic"
		}
		fmt.Printf("  %-32s %s\n", id, arity)
	}
}

func printStdlib() {
	for _, name := range stdlib.Modules() {
		src, _ := stdlib.Source(name)
		fmt.Printf("  %-12s %8s\n", name, humanize.Bytes(uint64(len(src))))
	}
}

func printProgramAST(filename string) {
	fmt.Println(parseFile(filename).String())
}

func printTokens(filename string) {
	for _, tok := range lexer.New(readFile(filename)).Tokenize() {
		fmt.Println(tok)
	}
}

func readFile(filename string) string {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	return string(data)
}

func parseFile(filename string) *ast.Program {
	program, errs := parser.Parse(readFile(filename))
	if len(errs) != 0 {
		printParserErrors(os.Stderr, errs)
		os.Exit(1)
	}
	return program
}

func printParserErrors(out io.Writer, errors []string) {
	io.WriteString(out, "Parser errors:\n")
	for _, msg := range errors {
		io.WriteString(out, "\t"+msg+"\n")
	}
}

// fail reports err and exits. At debug level wrapped errors print their
// stack traces too.
func fail(err error, level slog.Level) {
	msg := err.Error()
	if level <= slog.LevelDebug {
		msg = fmt.Sprintf("%+v", err)
	}
	if useColor {
		msg = colorRed + msg + colorReset
	}
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
