package eval

import sonaerrors "sona/pkg/errors"

// Environment is one scope of bindings: the globals, a module namespace,
// a call frame or a loop scope. Lookups walk outward through outer.
type Environment struct {
	store  map[string]Object
	consts map[string]bool
	names  []string // definition order, for exports and listings
	outer  *Environment

	// Frozen scopes (the globals) can be read but never written through
	// assignment; assigning to a global name shadows it locally instead.
	frozen bool
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Object)}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

func (e *Environment) Get(name string) (Object, bool) {
	obj, ok := e.store[name]
	if !ok && e.outer != nil {
		obj, ok = e.outer.Get(name)
	}
	return obj, ok
}

// GetLocal looks only at this scope.
func (e *Environment) GetLocal(name string) (Object, bool) {
	obj, ok := e.store[name]
	return obj, ok
}

// Define binds name in this scope. Redefining a const is an error.
func (e *Environment) Define(name string, val Object) error {
	if e.consts[name] {
		return sonaerrors.Runtime("cannot redefine constant %s", name)
	}
	e.bind(name, val)
	return nil
}

func (e *Environment) DefineConst(name string, val Object) error {
	if err := e.Define(name, val); err != nil {
		return err
	}
	if e.consts == nil {
		e.consts = make(map[string]bool)
	}
	e.consts[name] = true
	return nil
}

// Assign updates the nearest writable binding of name, or defines it in
// this scope when there is none.
func (e *Environment) Assign(name string, val Object) error {
	for env := e; env != nil && !env.frozen; env = env.outer {
		if _, ok := env.store[name]; ok {
			if env.consts[name] {
				return sonaerrors.Runtime("cannot assign to constant %s", name)
			}
			env.store[name] = val
			return nil
		}
	}
	e.bind(name, val)
	return nil
}

func (e *Environment) bind(name string, val Object) {
	if _, exists := e.store[name]; !exists {
		e.names = append(e.names, name)
	}
	e.store[name] = val
}

// Names returns the names bound in this scope in definition order.
func (e *Environment) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Freeze makes the scope read-only for assignment.
func (e *Environment) Freeze() { e.frozen = true }

func (e *Environment) Outer() *Environment { return e.outer }
