package eval

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ToNative converts a Sona value to plain Go values for encoding (JWT
// claims, SQL parameters). Dicts become map[string]interface{}. A container
// that contains itself converts to nil at the point of the back-reference.
func ToNative(obj Object) interface{} {
	return toNative(obj, make(map[Object]bool))
}

func toNative(obj Object, seen map[Object]bool) interface{} {
	switch obj := obj.(type) {
	case *Integer:
		return obj.Value
	case *Float:
		return obj.Value
	case *String:
		return obj.Value
	case *Boolean:
		return obj.Value
	case *Null:
		return nil
	case *Array:
		if seen[obj] {
			return nil
		}
		seen[obj] = true
		defer delete(seen, obj)
		result := make([]interface{}, 0, len(obj.Elements))
		for _, elem := range obj.Elements {
			result = append(result, toNative(elem, seen))
		}
		return result
	case *Dict:
		if seen[obj] {
			return nil
		}
		seen[obj] = true
		defer delete(seen, obj)
		result := make(map[string]interface{}, obj.Len())
		for _, p := range obj.Pairs() {
			result[p.Key.Inspect()] = toNative(p.Value, seen)
		}
		return result
	case *Native:
		return obj.Value
	default:
		return obj.Inspect()
	}
}

// FromNative converts decoded Go values back to Sona values. Whole float64
// values (as produced by encoding/json) become integers. Map keys are
// sorted so the resulting dict iterates deterministically.
func FromNative(val interface{}) Object {
	switch v := val.(type) {
	case nil:
		return NULL
	case Object:
		return v
	case bool:
		return nativeBoolToBooleanObject(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return NewInteger(int64(v))
		}
		return NewFloat(v)
	case float32:
		return FromNative(float64(v))
	case int:
		return NewInteger(int64(v))
	case int32:
		return NewInteger(int64(v))
	case int64:
		return NewInteger(v)
	case uint64:
		return NewInteger(int64(v))
	case string:
		return NewString(v)
	case []byte:
		return NewString(string(v))
	case time.Time:
		return NewString(v.Format(time.RFC3339Nano))
	case []interface{}:
		elements := make([]Object, 0, len(v))
		for _, e := range v {
			elements = append(elements, FromNative(e))
		}
		return NewArray(elements...)
	case []string:
		elements := make([]Object, 0, len(v))
		for _, e := range v {
			elements = append(elements, NewString(e))
		}
		return NewArray(elements...)
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dict := NewDict()
		for _, k := range keys {
			dict.SetString(k, FromNative(v[k]))
		}
		return dict
	default:
		return NewString(fmt.Sprintf("%v", v))
	}
}
