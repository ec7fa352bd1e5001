package eval

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	sonaerrors "sona/pkg/errors"
)

// NewGlobals builds the frozen builtin scope. print writes to out.
func NewGlobals(out io.Writer) *Environment {
	env := NewEnvironment()

	register := func(name string, arity int, fn func(args ...Object) (Object, error)) {
		env.bind(name, &Builtin{Name: name, Arity: arity, Fn: fn})
	}

	register("print", -1, func(args ...Object) (Object, error) {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = arg.Inspect()
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
		return NULL, nil
	})

	register("len", 1, func(args ...Object) (Object, error) {
		switch arg := args[0].(type) {
		case *String:
			return NewInteger(int64(utf8.RuneCountInString(arg.Value))), nil
		case *Array:
			return NewInteger(int64(len(arg.Elements))), nil
		case *Dict:
			return NewInteger(int64(arg.Len())), nil
		}
		return nil, sonaerrors.Runtime("argument to `len` not supported, got %s", args[0].Kind())
	})

	register("str", 1, func(args ...Object) (Object, error) {
		return NewString(args[0].Inspect()), nil
	})

	register("int", 1, func(args ...Object) (Object, error) {
		switch arg := args[0].(type) {
		case *Integer:
			return arg, nil
		case *Float:
			return NewInteger(int64(arg.Value)), nil
		case *Boolean:
			if arg.Value {
				return NewInteger(1), nil
			}
			return NewInteger(0), nil
		case *String:
			v, err := strconv.ParseInt(strings.TrimSpace(arg.Value), 10, 64)
			if err != nil {
				return nil, sonaerrors.Runtime("int: cannot convert %q", arg.Value)
			}
			return NewInteger(v), nil
		}
		return nil, sonaerrors.Runtime("int: cannot convert %s", args[0].Kind())
	})

	register("float", 1, func(args ...Object) (Object, error) {
		switch arg := args[0].(type) {
		case *Integer:
			return NewFloat(float64(arg.Value)), nil
		case *Float:
			return arg, nil
		case *String:
			v, err := strconv.ParseFloat(strings.TrimSpace(arg.Value), 64)
			if err != nil {
				return nil, sonaerrors.Runtime("float: cannot convert %q", arg.Value)
			}
			return NewFloat(v), nil
		}
		return nil, sonaerrors.Runtime("float: cannot convert %s", args[0].Kind())
	})

	register("type", 1, func(args ...Object) (Object, error) {
		return NewString(TypeName(args[0])), nil
	})

	register("range", -1, func(args ...Object) (Object, error) {
		if len(args) < 1 || len(args) > 3 {
			return nil, sonaerrors.Arity("range", len(args), 1)
		}
		bounds := make([]int64, len(args))
		for i, arg := range args {
			n, ok := arg.(*Integer)
			if !ok {
				return nil, sonaerrors.Runtime("range arguments must be INTEGER, got %s", arg.Kind())
			}
			bounds[i] = n.Value
		}
		start, stop, step := int64(0), bounds[0], int64(1)
		if len(bounds) >= 2 {
			start, stop = bounds[0], bounds[1]
		}
		if len(bounds) == 3 {
			step = bounds[2]
		}
		if step == 0 {
			return nil, sonaerrors.Runtime("range step must not be zero")
		}
		elements := []Object{}
		for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
			elements = append(elements, NewInteger(i))
		}
		return NewArray(elements...), nil
	})

	register("keys", 1, func(args ...Object) (Object, error) {
		switch arg := args[0].(type) {
		case *Dict:
			return NewArray(arg.Keys()...), nil
		case *Module:
			names := arg.Exports()
			out := make([]Object, 0, len(names))
			for _, n := range names {
				out = append(out, NewString(n))
			}
			return NewArray(out...), nil
		}
		return nil, sonaerrors.Runtime("argument to `keys` must be DICT or MODULE, got %s", args[0].Kind())
	})

	register("append", -1, func(args ...Object) (Object, error) {
		if len(args) < 1 {
			return nil, sonaerrors.Arity("append", 0, 1)
		}
		arr, ok := args[0].(*Array)
		if !ok {
			return nil, sonaerrors.Runtime("argument to `append` must be ARRAY, got %s", args[0].Kind())
		}
		elements := make([]Object, 0, len(arr.Elements)+len(args)-1)
		elements = append(elements, arr.Elements...)
		return NewArray(append(elements, args[1:]...)...), nil
	})

	register("assert", -1, func(args ...Object) (Object, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, sonaerrors.Arity("assert", len(args), 1)
		}
		if isTruthy(args[0]) {
			return NULL, nil
		}
		if len(args) == 2 {
			return nil, sonaerrors.Runtime("assertion failed: %s", args[1].Inspect())
		}
		return nil, sonaerrors.Runtime("assertion failed")
	})

	env.Freeze()
	return env
}
