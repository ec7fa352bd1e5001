package stdlib

import (
	"fmt"

	"sona/pkg/eval"
)

func stringArg(args []eval.Object, i int, what string) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing %s argument", what)
	}
	s, ok := args[i].(*eval.String)
	if !ok {
		return "", fmt.Errorf("%s must be STRING, got %s", what, args[i].Kind())
	}
	return s.Value, nil
}

func intArg(args []eval.Object, i int, what string) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing %s argument", what)
	}
	switch n := args[i].(type) {
	case *eval.Integer:
		return n.Value, nil
	case *eval.Float:
		return int64(n.Value), nil
	}
	return 0, fmt.Errorf("%s must be INTEGER, got %s", what, args[i].Kind())
}

func dictArg(args []eval.Object, i int, what string) (*eval.Dict, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing %s argument", what)
	}
	d, ok := args[i].(*eval.Dict)
	if !ok {
		return nil, fmt.Errorf("%s must be DICT, got %s", what, args[i].Kind())
	}
	return d, nil
}

// nativeArg unwraps a handle returned by an earlier bridge call. A dict
// holding the handle under "handle" is accepted too, so a bridge can sit in
// a dict entry and be called as a method.
func nativeArg[T any](args []eval.Object, i int, typ string) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, fmt.Errorf("missing %s handle", typ)
	}
	arg := args[i]
	if d, ok := arg.(*eval.Dict); ok {
		if h, found := d.GetString("handle"); found {
			arg = h
		}
	}
	n, ok := arg.(*eval.Native)
	if !ok || n.Type != typ {
		return zero, fmt.Errorf("expected a %s handle, got %s", typ, arg.Inspect())
	}
	v, ok := n.Value.(T)
	if !ok {
		return zero, fmt.Errorf("%s handle holds %T", typ, n.Value)
	}
	return v, nil
}

// optionalString returns the string entry key of d, or def when absent.
func optionalString(d *eval.Dict, key, def string) string {
	v, ok := d.GetString(key)
	if !ok {
		return def
	}
	if s, ok := v.(*eval.String); ok {
		return s.Value
	}
	if v == eval.NULL {
		return def
	}
	return v.Inspect()
}
