package eval

import (
	"fmt"
	"sona/pkg/ast"
	"strconv"
	"strings"
)

// Object is the interface that all Sona values implement.
type Object interface {
	Kind() ObjectKind
	Inspect() string
}

type Integer struct {
	Value int64
}

func (i *Integer) Kind() ObjectKind { return KindInteger }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

type Float struct {
	Value float64
}

func (f *Float) Kind() ObjectKind { return KindFloat }
func (f *Float) Inspect() string {
	s := strconv.FormatFloat(f.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

type String struct {
	Value string
}

func (s *String) Kind() ObjectKind { return KindString }
func (s *String) Inspect() string  { return s.Value }

type Boolean struct {
	Value bool
}

func (b *Boolean) Kind() ObjectKind { return KindBoolean }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

type Null struct{}

func (n *Null) Kind() ObjectKind { return KindNull }
func (n *Null) Inspect() string  { return "null" }

type Array struct {
	Elements []Object
}

func (a *Array) Kind() ObjectKind { return KindArray }
func (a *Array) Inspect() string { return a.inspect(make(map[Object]bool)) }

func (a *Array) inspect(seen map[Object]bool) string {
	if seen[a] {
		return "[...]"
	}
	seen[a] = true
	defer delete(seen, a)

	out := make([]string, 0, len(a.Elements))
	for _, e := range a.Elements {
		out = append(out, reprSeen(e, seen))
	}
	return "[" + strings.Join(out, ", ") + "]"
}

// Native wraps a host value (a database handle, a socket) that scripts can
// hold and pass back to the bridges that produced it.
type Native struct {
	Type  string
	Value interface{}
}

func (n *Native) Kind() ObjectKind { return KindNative }
func (n *Native) Inspect() string  { return "<" + n.Type + ">" }

// Function is an interpreted function. Env is the environment it closes
// over; for top-level functions that is the defining module's namespace.
type Function struct {
	Name       string
	Parameters []*ast.Identifier
	Body       *ast.BlockStatement
	Env        *Environment
	Module     string
}

func (f *Function) Kind() ObjectKind { return KindFunction }
func (f *Function) Inspect() string {
	params := make([]string, 0, len(f.Parameters))
	for _, p := range f.Parameters {
		params = append(params, p.Value)
	}
	return fmt.Sprintf("func %s(%s)", f.displayName(), strings.Join(params, ", "))
}

func (f *Function) displayName() string {
	if f.Name == "" {
		return "<anonymous>"
	}
	if f.Module != "" {
		return f.Module + "." + f.Name
	}
	return f.Name
}

// Builtin is a host function: a global builtin or a host method bound to
// its receiver. Arity < 0 means the function checks its own arguments.
type Builtin struct {
	Name  string
	Arity int
	Fn    func(args ...Object) (Object, error)
}

func (b *Builtin) Kind() ObjectKind { return KindBuiltin }
func (b *Builtin) Inspect() string  { return "builtin " + b.Name }

// NativeFunc is the signature every native bridge implements.
type NativeFunc func(args ...Object) (Object, error)

// Bridge is a registered native bridge. Arity < 0 means variadic.
type Bridge struct {
	ID    string
	Arity int
	Fn    NativeFunc
}

func (b *Bridge) Kind() ObjectKind { return KindBridge }
func (b *Bridge) Inspect() string  { return "native " + b.ID }

// ModuleState tracks a module through loading. Loaded and Failed are terminal.
type ModuleState uint8

const (
	StateUnloaded ModuleState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s ModuleState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unloaded"
	}
}

// Module is a loaded (or loading) module. Its namespace is Env; exports are
// the names bound directly in Env that do not start with an underscore.
type Module struct {
	Path   string // normalized import path, e.g. "util/strings"
	Origin string // where the source came from, e.g. "<stdlib>/stack.smod"
	Size   int    // source size in bytes
	Env    *Environment

	RequiresBridge bool
	NativeRefs     []string // distinct native identifiers, in order of appearance

	State ModuleState
	Err   error // set when State is StateFailed
}

func (m *Module) Kind() ObjectKind { return KindModule }
func (m *Module) Inspect() string  { return "module " + m.Path }

// Export returns an exported binding of the module.
func (m *Module) Export(name string) (Object, bool) {
	if m.Env == nil || !IsExported(name) {
		return nil, false
	}
	return m.Env.GetLocal(name)
}

// Exports lists exported names in definition order.
func (m *Module) Exports() []string {
	if m.Env == nil {
		return nil
	}
	var names []string
	for _, name := range m.Env.Names() {
		if IsExported(name) {
			names = append(names, name)
		}
	}
	return names
}

// IsExported reports whether a module-level name is visible to importers.
// Underscore names, which include the bound native bridges, stay private.
func IsExported(name string) bool {
	return name != "" && name[0] != '_'
}

func isCallable(obj Object) bool {
	switch obj.(type) {
	case *Function, *Builtin, *Bridge:
		return true
	}
	return false
}

// repr is Inspect with strings quoted, used inside containers.
func repr(obj Object) string { return reprSeen(obj, make(map[Object]bool)) }

// reprSeen carries the containers on the current path, so a container
// that holds itself renders as [...] or {...} instead of recursing.
func reprSeen(obj Object, seen map[Object]bool) string {
	switch o := obj.(type) {
	case *String:
		return strconv.Quote(o.Value)
	case *Array:
		return o.inspect(seen)
	case *Dict:
		return o.inspect(seen)
	}
	return obj.Inspect()
}

// TypeName is the lowercase type name reported by type().
func TypeName(obj Object) string {
	return strings.ToLower(obj.Kind().String())
}
