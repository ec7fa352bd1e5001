package eval

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	sonaerrors "sona/pkg/errors"
	"sona/pkg/parser"
)

// mapImporter serves modules built from source strings, one namespace per path.
type mapImporter struct {
	t       *testing.T
	sources map[string]string
	loaded  map[string]*Module
}

func (m *mapImporter) Import(req ImportRequest) (*Module, error) {
	if mod, ok := m.loaded[req.Path]; ok {
		return mod, nil
	}
	src, ok := m.sources[req.Path]
	if !ok {
		return nil, sonaerrors.ModuleNotFound(req.Path, []string{"<test>"})
	}
	program, errs := parser.Parse(src)
	if len(errs) != 0 {
		m.t.Fatalf("parser errors in %s: %v", req.Path, errs)
	}
	e := New(Options{Importer: m, Module: req.Path})
	mod := &Module{Path: req.Path, Env: e.NewScope(), State: StateLoading}
	if _, err := e.Run(program, mod.Env); err != nil {
		return nil, err
	}
	mod.State = StateLoaded
	if m.loaded == nil {
		m.loaded = map[string]*Module{}
	}
	m.loaded[req.Path] = mod
	return mod, nil
}

func runWithModules(t *testing.T, sources map[string]string, input string) (Object, string, error) {
	t.Helper()
	program, errs := parser.Parse(input)
	if len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	var out bytes.Buffer
	e := New(Options{Out: &out, Importer: &mapImporter{t: t, sources: sources}})
	result, err := e.Run(program, e.NewScope())
	return result, out.String(), err
}

const stackModule = `
let _size = 0
func new() { return [] }
func push(s, x) { s.push(x)
  _size = _size + 1
  return s
}
func pop(s) { return s.pop() }
func size() { return _size }
`

func TestDictEntryTakesPrecedenceOverHostMethod(t *testing.T) {
	input := `
let d = {"items": [1, 2, 3]}
d.pop = func(self) { return "entry pop" }
let first = d.pop()
d.remove("pop")
let second = d.pop("items")
[first, second, d.len()]`

	got := testEval(t, input).Inspect()
	expected := `["entry pop", [1, 2, 3], 0]`
	if got != expected {
		t.Fatalf("expected=%q, got=%q", expected, got)
	}
}

func TestDictMethodReceivesReceiver(t *testing.T) {
	input := `
let counter = {"n": 0}
counter.bump = func(self, by) {
  self.n = self.n + by
  return self.n
}
counter.bump(2)
counter.bump(3)`

	if got := testEval(t, input).Inspect(); got != "5" {
		t.Fatalf("expected=5, got=%s", got)
	}
}

func TestDictPropertyReadsEntryBeforeMethod(t *testing.T) {
	got := testEval(t, `let d = {"keys": "mine"}
[d.keys, d.values()]`).Inspect()
	if got != `["mine", ["mine"]]` {
		t.Fatalf("got=%s", got)
	}
}

func TestHostMethodsByKind(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"Hello".upper()`, "HELLO"},
		{`"a,b,c".split(",")`, `["a", "b", "c"]`},
		{`"  x ".trim()`, "x"},
		{`"abc".contains("b")`, "true"},
		{`[3, 1, 2].len()`, "3"},
		{`let s = []
s.push(1, 2)
s.push(3)
[s.pop(), s.peek(), s.len()]`, "[3, 2, 2]"},
		{`[1, 2, 3].reverse()`, "[3, 2, 1]"},
		{`["a", "b"].join("-")`, "a-b"},
		{`{"a": 1}.get("b", 7)`, "7"},
		{`{"a": 1}.has("a")`, "true"},
		{`let up = "abc".upper
up()`, "ABC"},
	}

	for _, tt := range tests {
		if got := testEval(t, tt.input).Inspect(); got != tt.expected {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, got)
		}
	}
}

func TestModuleDispatchUsesExportsOnly(t *testing.T) {
	sources := map[string]string{"stack": stackModule}
	input := `
import stack
let s = stack.new()
stack.push(s, 1)
stack.push(s, 2)
stack.push(s, 3)
[stack.pop(s), stack.pop(s), stack.pop(s), stack.size()]`

	result, _, err := runWithModules(t, sources, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Inspect() != "[3, 2, 1, 3]" {
		t.Fatalf("LIFO order broken. got=%s", result.Inspect())
	}

	_, _, err = runWithModules(t, sources, "import stack\nstack._size")
	if !errors.Is(err, sonaerrors.ErrUndefinedExport) {
		t.Fatalf("private name must not be exported, got %v", err)
	}

	_, _, err = runWithModules(t, sources, "import stack\nstack.peek(1)")
	if !errors.Is(err, sonaerrors.ErrUndefinedExport) {
		t.Fatalf("expected UndefinedExportError, got %v", err)
	}
	if !strings.Contains(err.Error(), `"peek"`) {
		t.Fatalf("error must name the missing export: %v", err)
	}
}

func TestModuleNamespaceIsReadOnly(t *testing.T) {
	sources := map[string]string{"stack": stackModule}
	_, _, err := runWithModules(t, sources, "import stack\nstack.new = 1")
	if err == nil || !strings.Contains(err.Error(), "read-only") {
		t.Fatalf("expected read-only error, got %v", err)
	}
}

func TestImportForms(t *testing.T) {
	sources := map[string]string{
		"util.strings": `func shout(s) { return s.upper() + "!" }`,
		"stack":        stackModule,
	}
	tests := []struct {
		input    string
		expected string
	}{
		{"import util.strings\nstrings.shout(\"hi\")", "HI!"},
		{"import util.strings as u\nu.shout(\"hi\")", "HI!"},
		{"from stack import new, push\nlet s = new()\npush(s, 4)\ns", "[4]"},
		{"import stack\nkeys(stack)", `["new", "push", "pop", "size"]`},
	}
	for _, tt := range tests {
		result, _, err := runWithModules(t, sources, tt.input)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.input, err)
			continue
		}
		if result.Inspect() != tt.expected {
			t.Errorf("%q: expected=%q, got=%q", tt.input, tt.expected, result.Inspect())
		}
	}

	_, _, err := runWithModules(t, sources, "from stack import missing")
	if !errors.Is(err, sonaerrors.ErrUndefinedExport) {
		t.Fatalf("expected UndefinedExportError, got %v", err)
	}
	_, _, err = runWithModules(t, sources, "import nowhere")
	if !errors.Is(err, sonaerrors.ErrModuleNotFound) {
		t.Fatalf("expected ModuleNotFoundError, got %v", err)
	}
}

func TestUndefinedProperty(t *testing.T) {
	_, _, err := testRun(t, `let d = {"a": 1}
d.missing()`)
	if !errors.Is(err, sonaerrors.ErrUndefinedProperty) {
		t.Fatalf("expected UndefinedPropertyError, got %v", err)
	}
	root := sonaerrors.Root(err)
	if root.Type != "DICT" || root.Member != "missing" {
		t.Fatalf("wrong error fields. type=%q member=%q", root.Type, root.Member)
	}
}

func TestLiteralBelongsToDefiningModule(t *testing.T) {
	sources := map[string]string{
		"shapes": `func adder() {
  let add = func(a, b) { return a + b }
  return add
}`,
	}
	_, _, err := runWithModules(t, sources, "import shapes\nlet add = shapes.adder()\nadd(1)")
	if !errors.Is(err, sonaerrors.ErrArity) {
		t.Fatalf("expected ArityError, got %v", err)
	}
	if !strings.Contains(err.Error(), "shapes.add:") {
		t.Fatalf("error must name the defining module: %v", err)
	}

	got, _, err := runWithModules(t, sources, "import shapes\nlet add = shapes.adder()\nstr(add)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Inspect() != "func shapes.add(a, b)" {
		t.Fatalf("expected=%q, got=%q", "func shapes.add(a, b)", got.Inspect())
	}
}
