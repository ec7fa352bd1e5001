package module

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"sona/pkg/bridge"
	sonaerrors "sona/pkg/errors"
	"sona/pkg/eval"
)

func mapRoot(files map[string]string) FSRoot {
	fsys := fstest.MapFS{}
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	return FSRoot{Label: "<test>", FS: fsys}
}

func newTestLoader(t *testing.T, reg *bridge.Registry, roots ...Root) (*Loader, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return NewLoader(Options{Roots: roots, Registry: reg, Out: &out}), &out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"stack", "stack", true},
		{"a.b.c", "a/b/c", true},
		{"a/b/c", "a/b/c", true},
		{"a/b/c.smod", "a/b/c", true},
		{"stack.smod", "stack", true},
		{"lib/v1.2/x", "lib/v1.2/x", true},
		{"", "", false},
		{"a..b", "", false},
		{"../etc/passwd", "", false},
		{"/abs", "", false},
		{`a\b`, "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.input)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("Normalize(%q): expected=(%q, %v), got=(%q, %v)", tt.input, tt.expected, tt.ok, got, ok)
		}
	}
}

func TestNativeRefs(t *testing.T) {
	src := `
# __native__in_comment is not a reference
let s = "__native__in_string"
func digest(x) { return __native__sha256(x) + __native__md5(x) }
func again(x) { return __native__sha256(x) }
let __native__ = 1
`
	refs := NativeRefs(src)
	if strings.Join(refs, ",") != "__native__sha256,__native__md5" {
		t.Fatalf("wrong refs: %v", refs)
	}
	if refs := NativeRefs("func f() { return 1 }"); len(refs) != 0 {
		t.Fatalf("expected no refs, got %v", refs)
	}
}

func TestImportIsCached(t *testing.T) {
	root := mapRoot(map[string]string{
		"counter.smod": `print("executing counter")
let hits = 0
func hit() {
  hits = hits + 1
  return hits
}`,
	})
	l, out := newTestLoader(t, nil, root)

	first, err := l.Load("counter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := l.Load("counter.smod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("re-import returned a different module instance")
	}
	if n := strings.Count(out.String(), "executing counter"); n != 1 {
		t.Fatalf("top level ran %d times, expected once", n)
	}
	if first.State != eval.StateLoaded || first.Origin != "<test>/counter.smod" {
		t.Fatalf("wrong module bookkeeping: state=%s origin=%s", first.State, first.Origin)
	}
}

func TestSearchRootsOrder(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	write := func(name, src string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("shadow.smod", `let where = "disk"`)
	write("pkg/index.smod", `let where = "index"`)

	fallback := mapRoot(map[string]string{
		"shadow.smod":   `let where = "fallback"`,
		"only_fs.smod":  `let where = "fs"`,
		"pkg/deep.smod": `let where = "deep"`,
	})
	l, _ := newTestLoader(t, nil, DirRoot{Dir: dir}, fallback)

	tests := []struct {
		path     string
		expected string
	}{
		{"shadow", "disk"},
		{"only_fs", "fs"},
		{"pkg", "index"},
		{"pkg.deep", "deep"},
	}
	for _, tt := range tests {
		mod, err := l.Load(tt.path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.path, err)
		}
		where, _ := mod.Export("where")
		if where.Inspect() != tt.expected {
			t.Errorf("%s: expected=%q, got=%q", tt.path, tt.expected, where.Inspect())
		}
	}
}

func TestModuleNotFound(t *testing.T) {
	dir := t.TempDir()
	l, _ := newTestLoader(t, nil, DirRoot{Dir: dir}, mapRoot(nil))

	_, err := l.Load("no.such.module")
	if !errors.Is(err, sonaerrors.ErrModuleNotFound) {
		t.Fatalf("expected ModuleNotFoundError, got %v", err)
	}
	root := sonaerrors.Root(err)
	if root.Path != "no/such/module" {
		t.Fatalf("error must name the path, got %q", root.Path)
	}
	if len(root.Roots) != 2 || root.Roots[0] != dir || root.Roots[1] != "<test>" {
		t.Fatalf("error must list the roots tried, got %v", root.Roots)
	}
	if !strings.Contains(err.Error(), dir) {
		t.Fatalf("message must list the roots: %s", err.Error())
	}
	if l.Cache().Len() != 0 {
		t.Fatalf("a missing module must not be cached")
	}
}

func TestBridgeFreeModuleSkipsRegistry(t *testing.T) {
	reg := bridge.NewRegistry()
	root := mapRoot(map[string]string{
		"plain.smod": `# mentions __native__sha256 only in a comment
let note = "__native__sha256"
func id(x) { return x }`,
	})
	l, _ := newTestLoader(t, reg, root)

	mod, err := l.Load("plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mod.RequiresBridge {
		t.Fatalf("plain module must not require bridges")
	}
	if reg.Lookups() != 0 {
		t.Fatalf("registry was consulted %d times for a bridge-free module", reg.Lookups())
	}
}

func TestNativeModuleBindsBridges(t *testing.T) {
	reg := bridge.NewRegistry()
	reg.MustRegister("__native__double", 1, func(args ...eval.Object) (eval.Object, error) {
		return eval.NewInteger(args[0].(*eval.Integer).Value * 2), nil
	})
	root := mapRoot(map[string]string{
		"double.smod": `func double(x) { return __native__double(x) }`,
	})
	l, _ := newTestLoader(t, reg, root)

	mod, err := l.Load("double")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mod.RequiresBridge || len(mod.NativeRefs) != 1 {
		t.Fatalf("expected one native ref, got %v", mod.NativeRefs)
	}
	if _, ok := mod.Export("__native__double"); ok {
		t.Fatalf("bridges must not be exported")
	}
	if strings.Join(mod.Exports(), ",") != "double" {
		t.Fatalf("wrong exports: %v", mod.Exports())
	}

	fn, _ := mod.Export("double")
	e := eval.New(eval.Options{})
	got, err := e.Call(fn, []eval.Object{eval.NewInteger(21)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Inspect() != "42" {
		t.Fatalf("expected=42, got=%s", got.Inspect())
	}
}

func TestUnresolvedBridgeFailsLoad(t *testing.T) {
	reg := bridge.NewRegistry()
	root := mapRoot(map[string]string{
		"needs.smod": `print("should not run")
func f() { return __native__missing() }`,
	})
	l, out := newTestLoader(t, reg, root)

	_, err := l.Load("needs")
	if !errors.Is(err, sonaerrors.ErrUnresolvedNativeBridge) {
		t.Fatalf("expected UnresolvedNativeBridgeError, got %v", err)
	}
	if !strings.Contains(err.Error(), "__native__missing") || !strings.Contains(err.Error(), `"needs"`) {
		t.Fatalf("error must name module and bridge: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("module top level ran before bridges were resolved: %q", out.String())
	}
	if l.Cache().State("needs") != eval.StateFailed {
		t.Fatalf("expected failed state, got %s", l.Cache().State("needs"))
	}

	_, again := l.Load("needs")
	if again != err {
		t.Fatalf("re-import must return the cached failure, got %v", again)
	}
}

func TestFailedModuleIsNotReExecuted(t *testing.T) {
	root := mapRoot(map[string]string{
		"broken.smod": `print("running broken")
let x = 1 / 0`,
	})
	l, out := newTestLoader(t, nil, root)

	_, err := l.Load("broken")
	if !errors.Is(err, sonaerrors.ErrModuleLoad) {
		t.Fatalf("expected ModuleLoadError, got %v", err)
	}
	if sonaerrors.Root(err).Kind != sonaerrors.KindRuntime {
		t.Fatalf("cause must be kept, got %v", err)
	}
	if !strings.Contains(err.Error(), "division by zero") || !strings.Contains(err.Error(), `"broken"`) {
		t.Fatalf("error must carry path and cause: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, again := l.Load("broken"); again != err {
			t.Fatalf("expected the cached failure, got %v", again)
		}
	}
	if n := strings.Count(out.String(), "running broken"); n != 1 {
		t.Fatalf("failed module ran %d times", n)
	}
}

func TestParseErrorFailsLoad(t *testing.T) {
	l, _ := newTestLoader(t, nil, mapRoot(map[string]string{"bad.smod": "let = 3"}))
	_, err := l.Load("bad")
	if !errors.Is(err, sonaerrors.ErrModuleLoad) || !errors.Is(err, sonaerrors.ErrParse) {
		t.Fatalf("expected ModuleLoadError wrapping ParseError, got %v", err)
	}
	if !strings.Contains(err.Error(), "<test>/bad.smod") {
		t.Fatalf("parse error must name the file: %v", err)
	}
}

func TestCircularImportFailsFast(t *testing.T) {
	root := mapRoot(map[string]string{
		"a.smod":    "import b\nfunc fa() { return b.fb() }",
		"b.smod":    "import a\nfunc fb() { return 1 }",
		"self.smod": "import self",
	})
	l, _ := newTestLoader(t, nil, root)

	_, err := l.Load("a")
	if !errors.Is(err, sonaerrors.ErrCircularImport) {
		t.Fatalf("expected CircularImportError, got %v", err)
	}
	cycle := sonaerrors.Root(err)
	if strings.Join(cycle.Chain, " -> ") != "a -> b -> a" {
		t.Fatalf("wrong chain: %v", cycle.Chain)
	}
	if !strings.Contains(err.Error(), "import cycle: a -> b -> a") {
		t.Fatalf("message must show the chain: %v", err)
	}
	if l.Cache().State("a") != eval.StateFailed || l.Cache().State("b") != eval.StateFailed {
		t.Fatalf("both modules of the cycle must be failed")
	}

	_, err = l.Load("self")
	if !errors.Is(err, sonaerrors.ErrCircularImport) {
		t.Fatalf("expected CircularImportError for self import, got %v", err)
	}
}

func TestNestedImportSharesCache(t *testing.T) {
	root := mapRoot(map[string]string{
		"base.smod":  "print(\"base\")\nfunc one() { return 1 }",
		"left.smod":  "import base\nfunc l() { return base.one() }",
		"right.smod": "import base as b\nfunc r() { return b.one() + 1 }",
	})
	l, out := newTestLoader(t, nil, root)

	for _, p := range []string{"left", "right"} {
		if _, err := l.Load(p); err != nil {
			t.Fatalf("%s: unexpected error: %v", p, err)
		}
	}
	if out.String() != "base\n" {
		t.Fatalf("shared dependency ran more than once: %q", out.String())
	}

	entries := l.Cache().Entries()
	var order []string
	for _, e := range entries {
		order = append(order, e.Path+":"+e.State.String())
	}
	if strings.Join(order, ",") != "left:loaded,base:loaded,right:loaded" {
		t.Fatalf("wrong cache entries: %v", order)
	}
}

func TestConcurrentImportsShareOneLoad(t *testing.T) {
	root := mapRoot(map[string]string{
		"slow.smod": "print(\"once\")\nlet total = 0\nfor i in range(2000) { total = total + i }",
	})
	l, out := newTestLoader(t, nil, root)

	var wg sync.WaitGroup
	mods := make([]*eval.Module, 8)
	errs := make([]error, 8)
	for i := range mods {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mods[i], errs[i] = l.Load("slow")
		}(i)
	}
	wg.Wait()

	for i := range mods {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if mods[i] != mods[0] {
			t.Fatalf("goroutine %d got a different instance", i)
		}
	}
	if out.String() != "once\n" {
		t.Fatalf("module ran more than once: %q", out.String())
	}
}
