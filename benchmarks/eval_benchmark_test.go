package benchmarks

import (
	"io"
	"testing"

	"sona/pkg/eval"
	"sona/pkg/interpreter"
	"sona/pkg/parser"
)

var result eval.Object

func newInterpreter(b *testing.B) *interpreter.Interpreter {
	b.Helper()
	in, err := interpreter.New(interpreter.Options{Out: io.Discard})
	if err != nil {
		b.Fatal(err)
	}
	return in
}

func run(b *testing.B, in *interpreter.Interpreter, src string) {
	b.Helper()
	program, errs := parser.Parse(src)
	if len(errs) != 0 {
		b.Fatalf("parser errors: %v", errs)
	}
	e := eval.New(eval.Options{Importer: in.Loader(), Out: io.Discard, Globals: in.Globals()})
	scope := e.NewScope()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		obj, err := e.Run(program, scope)
		if err != nil {
			b.Fatal(err)
		}
		result = obj
	}
}

func BenchmarkTreeWalkAddition(b *testing.B) {
	run(b, newInterpreter(b), `
5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5
`)
}

func BenchmarkRecursiveFib(b *testing.B) {
	run(b, newInterpreter(b), `
func fib(n) {
  if n < 2 {
    return n
  }
  return fib(n - 1) + fib(n - 2)
}
fib(15)
`)
}

func BenchmarkCachedImport(b *testing.B) {
	run(b, newInterpreter(b), "import stack\nimport queue\nimport math")
}

func BenchmarkHostMethodDispatch(b *testing.B) {
	run(b, newInterpreter(b), `
let xs = []
for i in range(100) {
  xs.push(i)
}
xs.len()
`)
}

func BenchmarkDictEntryDispatch(b *testing.B) {
	run(b, newInterpreter(b), `
import stack
let s = stack.new()
for i in range(100) {
  s.push(i)
}
s.size()
`)
}

func BenchmarkBridgeCall(b *testing.B) {
	run(b, newInterpreter(b), `
import hashing
hashing.digest("sha256", "abc")
`)
}
