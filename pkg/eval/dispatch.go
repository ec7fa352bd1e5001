package eval

import (
	sonaerrors "sona/pkg/errors"
)

// Member resolves a property read, receiver.name.
//
// Modules answer from their exports only. Dicts answer from their own
// entries first and fall back to the DICT host methods; every other kind
// has only host methods. A host method read yields a Builtin bound to the
// receiver.
func (e *Evaluator) Member(recv Object, name string) (Object, error) {
	switch r := recv.(type) {
	case *Module:
		if val, ok := r.Export(name); ok {
			return val, nil
		}
		return nil, sonaerrors.UndefinedExport(r.Path, name)

	case *Dict:
		if val, ok := r.GetString(name); ok {
			return val, nil
		}
	}

	if m, ok := lookupHostMethod(recv.Kind(), name); ok {
		return bindHostMethod(recv, name, m), nil
	}
	return nil, sonaerrors.UndefinedProperty(recv.Kind().String(), name)
}

// CallMember resolves and invokes receiver.name(args...).
//
// A callable dict entry is called as a method: the dict itself is passed
// as the first argument, ahead of args. Module exports are called as
// plain functions. Host methods receive the receiver directly.
func (e *Evaluator) CallMember(recv Object, name string, args []Object) (Object, error) {
	switch r := recv.(type) {
	case *Module:
		fn, ok := r.Export(name)
		if !ok {
			return nil, sonaerrors.UndefinedExport(r.Path, name)
		}
		return e.Call(fn, args)

	case *Dict:
		if val, ok := r.GetString(name); ok {
			if !isCallable(val) {
				return nil, sonaerrors.Runtime("%s.%s is %s, not a function", TypeName(recv), name, val.Kind())
			}
			withSelf := make([]Object, 0, len(args)+1)
			withSelf = append(withSelf, recv)
			withSelf = append(withSelf, args...)
			return e.Call(val, withSelf)
		}
	}

	m, ok := lookupHostMethod(recv.Kind(), name)
	if !ok {
		return nil, sonaerrors.UndefinedProperty(recv.Kind().String(), name)
	}
	return callHostMethod(recv, name, m, args)
}

// SetMember handles receiver.name = value. Only dicts are writable; module
// namespaces can be read by importers but never modified by them.
func (e *Evaluator) SetMember(recv Object, name string, val Object) error {
	switch r := recv.(type) {
	case *Dict:
		nameFunction(val, name, e.module)
		r.SetString(name, val)
		return nil
	case *Module:
		return sonaerrors.Runtime("cannot assign to %s.%s: module namespaces are read-only", r.Path, name)
	}
	return sonaerrors.UndefinedProperty(recv.Kind().String(), name)
}

func callHostMethod(recv Object, name string, m hostMethod, args []Object) (Object, error) {
	if len(args) < m.min || (m.max >= 0 && len(args) > m.max) {
		want := m.min
		if len(args) > m.min && m.max >= 0 {
			want = m.max
		}
		return nil, sonaerrors.Arity(recv.Kind().String()+"."+name, len(args), want)
	}
	result, err := m.fn(recv, args)
	if err != nil {
		return nil, err
	}
	return valueOrNull(result), nil
}

func bindHostMethod(recv Object, name string, m hostMethod) *Builtin {
	return &Builtin{
		Name:  recv.Kind().String() + "." + name,
		Arity: -1,
		Fn: func(args ...Object) (Object, error) {
			return callHostMethod(recv, name, m, args)
		},
	}
}
