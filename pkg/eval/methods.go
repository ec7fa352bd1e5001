package eval

import (
	"sort"
	"strings"
	"unicode/utf8"

	sonaerrors "sona/pkg/errors"
)

// hostMethod is a method the runtime provides for a kind of value. It is
// the fallback tier of dispatch: dict entries always win over it.
type hostMethod struct {
	min, max int // accepted argument counts; max < 0 means unbounded
	fn       func(recv Object, args []Object) (Object, error)
}

var hostMethods = map[ObjectKind]map[string]hostMethod{
	KindArray: {
		"push":      {1, -1, arrayPush},
		"pop":       {0, 0, arrayPop},
		"peek":      {0, 0, arrayPeek},
		"len":       {0, 0, arrayLen},
		"insert":    {2, 2, arrayInsert},
		"remove_at": {1, 1, arrayRemoveAt},
		"contains":  {1, 1, arrayContains},
		"index_of":  {1, 1, arrayIndexOf},
		"join":      {0, 1, arrayJoin},
		"slice":     {1, 2, arraySlice},
		"reverse":   {0, 0, arrayReverse},
		"clear":     {0, 0, arrayClear},
		"is_empty":  {0, 0, arrayIsEmpty},
	},
	KindString: {
		"len":         {0, 0, stringLen},
		"upper":       {0, 0, stringUpper},
		"lower":       {0, 0, stringLower},
		"trim":        {0, 0, stringTrim},
		"split":       {0, 1, stringSplit},
		"contains":    {1, 1, stringContains},
		"starts_with": {1, 1, stringStartsWith},
		"ends_with":   {1, 1, stringEndsWith},
		"replace":     {2, 2, stringReplace},
		"repeat":      {1, 1, stringRepeat},
	},
	KindDict: {
		"keys":     {0, 0, dictKeys},
		"values":   {0, 0, dictValues},
		"items":    {0, 0, dictItems},
		"has":      {1, 1, dictHas},
		"get":      {1, 2, dictGet},
		"set":      {2, 2, dictSet},
		"remove":   {1, 1, dictRemove},
		"pop":      {1, 2, dictPop},
		"len":      {0, 0, dictLen},
		"clear":    {0, 0, dictClear},
		"is_empty": {0, 0, dictIsEmpty},
	},
}

func lookupHostMethod(kind ObjectKind, name string) (hostMethod, bool) {
	m, ok := hostMethods[kind][name]
	return m, ok
}

// HostMethodNames lists the host methods of a kind, for tooling.
func HostMethodNames(kind ObjectKind) []string {
	names := make([]string, 0, len(hostMethods[kind]))
	for name := range hostMethods[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ARRAY

func arrayPush(recv Object, args []Object) (Object, error) {
	a := recv.(*Array)
	a.Elements = append(a.Elements, args...)
	return NULL, nil
}

func arrayPop(recv Object, _ []Object) (Object, error) {
	a := recv.(*Array)
	n := len(a.Elements)
	if n == 0 {
		return nil, sonaerrors.Runtime("pop from empty array")
	}
	last := a.Elements[n-1]
	a.Elements[n-1] = nil
	a.Elements = a.Elements[:n-1]
	return last, nil
}

func arrayPeek(recv Object, _ []Object) (Object, error) {
	a := recv.(*Array)
	if len(a.Elements) == 0 {
		return NULL, nil
	}
	return a.Elements[len(a.Elements)-1], nil
}

func arrayLen(recv Object, _ []Object) (Object, error) {
	return NewInteger(int64(len(recv.(*Array).Elements))), nil
}

func arrayInsert(recv Object, args []Object) (Object, error) {
	a := recv.(*Array)
	idx, ok := args[0].(*Integer)
	if !ok {
		return nil, sonaerrors.Runtime("insert index must be INTEGER, got %s", args[0].Kind())
	}
	i := int(idx.Value)
	if i < 0 {
		i += len(a.Elements)
	}
	if i < 0 || i > len(a.Elements) {
		return nil, sonaerrors.Runtime("insert index %d out of range (length %d)", idx.Value, len(a.Elements))
	}
	a.Elements = append(a.Elements, nil)
	copy(a.Elements[i+1:], a.Elements[i:])
	a.Elements[i] = args[1]
	return NULL, nil
}

func arrayRemoveAt(recv Object, args []Object) (Object, error) {
	a := recv.(*Array)
	i, err := indexFor(args[0], len(a.Elements))
	if err != nil {
		return nil, err
	}
	removed := a.Elements[i]
	a.Elements = append(a.Elements[:i], a.Elements[i+1:]...)
	return removed, nil
}

func arrayContains(recv Object, args []Object) (Object, error) {
	for _, el := range recv.(*Array).Elements {
		if objectsEqual(el, args[0]) {
			return TRUE, nil
		}
	}
	return FALSE, nil
}

func arrayIndexOf(recv Object, args []Object) (Object, error) {
	for i, el := range recv.(*Array).Elements {
		if objectsEqual(el, args[0]) {
			return NewInteger(int64(i)), nil
		}
	}
	return NewInteger(-1), nil
}

func arrayJoin(recv Object, args []Object) (Object, error) {
	sep := ""
	if len(args) == 1 {
		s, ok := args[0].(*String)
		if !ok {
			return nil, sonaerrors.Runtime("join separator must be STRING, got %s", args[0].Kind())
		}
		sep = s.Value
	}
	parts := make([]string, 0, len(recv.(*Array).Elements))
	for _, el := range recv.(*Array).Elements {
		parts = append(parts, el.Inspect())
	}
	return NewString(strings.Join(parts, sep)), nil
}

func arraySlice(recv Object, args []Object) (Object, error) {
	a := recv.(*Array)
	start, end, err := sliceBounds(args, len(a.Elements))
	if err != nil {
		return nil, err
	}
	return NewArray(append([]Object(nil), a.Elements[start:end]...)...), nil
}

func arrayReverse(recv Object, _ []Object) (Object, error) {
	els := recv.(*Array).Elements
	for i, j := 0, len(els)-1; i < j; i, j = i+1, j-1 {
		els[i], els[j] = els[j], els[i]
	}
	return recv, nil
}

func arrayClear(recv Object, _ []Object) (Object, error) {
	recv.(*Array).Elements = []Object{}
	return NULL, nil
}

func arrayIsEmpty(recv Object, _ []Object) (Object, error) {
	return nativeBoolToBooleanObject(len(recv.(*Array).Elements) == 0), nil
}

// sliceBounds clamps [start, end) to n, counting negatives from the end.
func sliceBounds(args []Object, n int) (int, int, error) {
	bound := func(obj Object) (int, error) {
		i, ok := obj.(*Integer)
		if !ok {
			return 0, sonaerrors.Runtime("slice bound must be INTEGER, got %s", obj.Kind())
		}
		v := int(i.Value)
		if v < 0 {
			v += n
		}
		if v < 0 {
			v = 0
		}
		if v > n {
			v = n
		}
		return v, nil
	}
	start, err := bound(args[0])
	if err != nil {
		return 0, 0, err
	}
	end := n
	if len(args) > 1 {
		if end, err = bound(args[1]); err != nil {
			return 0, 0, err
		}
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

// STRING

func stringArg(method string, obj Object) (string, error) {
	s, ok := obj.(*String)
	if !ok {
		return "", sonaerrors.Runtime("argument to %s must be STRING, got %s", method, obj.Kind())
	}
	return s.Value, nil
}

func stringLen(recv Object, _ []Object) (Object, error) {
	return NewInteger(int64(utf8.RuneCountInString(recv.(*String).Value))), nil
}

func stringUpper(recv Object, _ []Object) (Object, error) {
	return NewString(strings.ToUpper(recv.(*String).Value)), nil
}

func stringLower(recv Object, _ []Object) (Object, error) {
	return NewString(strings.ToLower(recv.(*String).Value)), nil
}

func stringTrim(recv Object, _ []Object) (Object, error) {
	return NewString(strings.TrimSpace(recv.(*String).Value)), nil
}

func stringSplit(recv Object, args []Object) (Object, error) {
	s := recv.(*String).Value
	var parts []string
	if len(args) == 0 {
		parts = strings.Fields(s)
	} else {
		sep, err := stringArg("split", args[0])
		if err != nil {
			return nil, err
		}
		parts = strings.Split(s, sep)
	}
	out := make([]Object, 0, len(parts))
	for _, p := range parts {
		out = append(out, NewString(p))
	}
	return NewArray(out...), nil
}

func stringContains(recv Object, args []Object) (Object, error) {
	sub, err := stringArg("contains", args[0])
	if err != nil {
		return nil, err
	}
	return nativeBoolToBooleanObject(strings.Contains(recv.(*String).Value, sub)), nil
}

func stringStartsWith(recv Object, args []Object) (Object, error) {
	prefix, err := stringArg("starts_with", args[0])
	if err != nil {
		return nil, err
	}
	return nativeBoolToBooleanObject(strings.HasPrefix(recv.(*String).Value, prefix)), nil
}

func stringEndsWith(recv Object, args []Object) (Object, error) {
	suffix, err := stringArg("ends_with", args[0])
	if err != nil {
		return nil, err
	}
	return nativeBoolToBooleanObject(strings.HasSuffix(recv.(*String).Value, suffix)), nil
}

func stringReplace(recv Object, args []Object) (Object, error) {
	old, err := stringArg("replace", args[0])
	if err != nil {
		return nil, err
	}
	repl, err := stringArg("replace", args[1])
	if err != nil {
		return nil, err
	}
	return NewString(strings.ReplaceAll(recv.(*String).Value, old, repl)), nil
}

func stringRepeat(recv Object, args []Object) (Object, error) {
	n, ok := args[0].(*Integer)
	if !ok || n.Value < 0 {
		return nil, sonaerrors.Runtime("repeat count must be a non-negative INTEGER")
	}
	return NewString(strings.Repeat(recv.(*String).Value, int(n.Value))), nil
}

// DICT

func dictKeys(recv Object, _ []Object) (Object, error) {
	return NewArray(recv.(*Dict).Keys()...), nil
}

func dictValues(recv Object, _ []Object) (Object, error) {
	pairs := recv.(*Dict).Pairs()
	out := make([]Object, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Value)
	}
	return NewArray(out...), nil
}

func dictItems(recv Object, _ []Object) (Object, error) {
	pairs := recv.(*Dict).Pairs()
	out := make([]Object, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, NewArray(p.Key, p.Value))
	}
	return NewArray(out...), nil
}

func dictHas(recv Object, args []Object) (Object, error) {
	_, ok, err := recv.(*Dict).Get(args[0])
	if err != nil {
		return nil, err
	}
	return nativeBoolToBooleanObject(ok), nil
}

func dictGet(recv Object, args []Object) (Object, error) {
	val, ok, err := recv.(*Dict).Get(args[0])
	if err != nil {
		return nil, err
	}
	if ok {
		return val, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return NULL, nil
}

func dictSet(recv Object, args []Object) (Object, error) {
	return NULL, recv.(*Dict).Set(args[0], args[1])
}

func dictRemove(recv Object, args []Object) (Object, error) {
	_, ok, err := recv.(*Dict).Delete(args[0])
	if err != nil {
		return nil, err
	}
	return nativeBoolToBooleanObject(ok), nil
}

func dictPop(recv Object, args []Object) (Object, error) {
	val, ok, err := recv.(*Dict).Delete(args[0])
	if err != nil {
		return nil, err
	}
	if ok {
		return val, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return nil, sonaerrors.Runtime("key %s not found", repr(args[0]))
}

func dictLen(recv Object, _ []Object) (Object, error) {
	return NewInteger(int64(recv.(*Dict).Len())), nil
}

func dictClear(recv Object, _ []Object) (Object, error) {
	recv.(*Dict).Clear()
	return NULL, nil
}

func dictIsEmpty(recv Object, _ []Object) (Object, error) {
	return nativeBoolToBooleanObject(recv.(*Dict).Len() == 0), nil
}
