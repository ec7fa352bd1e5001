package eval

import (
	"strconv"
	"strings"

	sonaerrors "sona/pkg/errors"
)

// HashKey identifies a dict key. Only strings, integers and booleans hash.
type HashKey struct {
	Kind  ObjectKind
	Value string
}

// HashKeyOf returns the key for obj, or false if obj cannot be a dict key.
func HashKeyOf(obj Object) (HashKey, bool) {
	switch o := obj.(type) {
	case *String:
		return HashKey{Kind: KindString, Value: o.Value}, true
	case *Integer:
		return HashKey{Kind: KindInteger, Value: strconv.FormatInt(o.Value, 10)}, true
	case *Boolean:
		return HashKey{Kind: KindBoolean, Value: strconv.FormatBool(o.Value)}, true
	}
	return HashKey{}, false
}

type DictPair struct {
	Key   Object
	Value Object
}

// Dict is the ordered mapping behind every record-like runtime object.
// Iteration follows insertion order; re-setting a key keeps its position.
type Dict struct {
	order []HashKey
	pairs map[HashKey]DictPair
}

func NewDict() *Dict {
	return &Dict{pairs: make(map[HashKey]DictPair)}
}

func (d *Dict) Kind() ObjectKind { return KindDict }
func (d *Dict) Inspect() string { return d.inspect(make(map[Object]bool)) }

func (d *Dict) inspect(seen map[Object]bool) string {
	if seen[d] {
		return "{...}"
	}
	seen[d] = true
	defer delete(seen, d)

	out := make([]string, 0, len(d.order))
	for _, p := range d.Pairs() {
		out = append(out, repr(p.Key)+": "+reprSeen(p.Value, seen))
	}
	return "{" + strings.Join(out, ", ") + "}"
}

func (d *Dict) Len() int { return len(d.order) }

func (d *Dict) Get(key Object) (Object, bool, error) {
	hk, ok := HashKeyOf(key)
	if !ok {
		return nil, false, unhashable(key)
	}
	p, found := d.pairs[hk]
	return p.Value, found, nil
}

// GetString looks up a string key, which is what member syntax addresses.
func (d *Dict) GetString(name string) (Object, bool) {
	p, ok := d.pairs[HashKey{Kind: KindString, Value: name}]
	return p.Value, ok
}

func (d *Dict) Set(key, value Object) error {
	hk, ok := HashKeyOf(key)
	if !ok {
		return unhashable(key)
	}
	d.set(hk, key, value)
	return nil
}

func (d *Dict) SetString(name string, value Object) {
	d.set(HashKey{Kind: KindString, Value: name}, NewString(name), value)
}

func (d *Dict) set(hk HashKey, key, value Object) {
	if _, exists := d.pairs[hk]; !exists {
		d.order = append(d.order, hk)
	}
	d.pairs[hk] = DictPair{Key: key, Value: value}
}

// Delete removes key and returns the value it held.
func (d *Dict) Delete(key Object) (Object, bool, error) {
	hk, ok := HashKeyOf(key)
	if !ok {
		return nil, false, unhashable(key)
	}
	p, found := d.pairs[hk]
	if !found {
		return nil, false, nil
	}
	delete(d.pairs, hk)
	for i, k := range d.order {
		if k == hk {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return p.Value, true, nil
}

func (d *Dict) Clear() {
	d.order = nil
	d.pairs = make(map[HashKey]DictPair)
}

// Pairs returns the entries in insertion order.
func (d *Dict) Pairs() []DictPair {
	out := make([]DictPair, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.pairs[k])
	}
	return out
}

func (d *Dict) Keys() []Object {
	out := make([]Object, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.pairs[k].Key)
	}
	return out
}

func unhashable(key Object) error {
	return sonaerrors.Runtime("unusable as dict key: %s", key.Kind())
}
