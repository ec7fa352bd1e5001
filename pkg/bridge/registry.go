// Package bridge holds the native bridge registry: the host functions that
// module source may call through identifiers carrying the native prefix.
//
// The registry is separate from every namespace. A module reaches a bridge
// only by naming it in its own source, which keeps native dependencies
// explicit and easy to audit.
package bridge

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	sonaerrors "sona/pkg/errors"
	"sona/pkg/eval"
	"sona/pkg/token"
)

// Registry maps native identifiers to host functions. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	bridges map[string]*eval.Bridge
	lookups atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{bridges: make(map[string]*eval.Bridge)}
}

// Register adds a bridge. Registering the same function under the same id
// again is a no-op; a different function under a taken id is a
// DuplicateBridgeError. Arity < 0 marks a variadic bridge.
func (r *Registry) Register(id string, arity int, fn eval.NativeFunc) error {
	if !token.IsNative(id) {
		return sonaerrors.Runtime("bridge id %q must start with %s", id, token.NativePrefix)
	}
	if fn == nil {
		return sonaerrors.Runtime("bridge %s: nil function", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bridges[id]; ok {
		if sameFunc(existing.Fn, fn) && existing.Arity == arity {
			return nil
		}
		return sonaerrors.DuplicateBridge(id)
	}
	r.bridges[id] = &eval.Bridge{ID: id, Arity: arity, Fn: fn}
	return nil
}

// MustRegister is Register for start-up code, where a duplicate is a
// programming error.
func (r *Registry) MustRegister(id string, arity int, fn eval.NativeFunc) {
	if err := r.Register(id, arity, fn); err != nil {
		panic(fmt.Sprintf("bridge: %v", err))
	}
}

// Resolve returns the bridge registered under id.
func (r *Registry) Resolve(id string) (*eval.Bridge, error) {
	r.lookups.Add(1)

	r.mu.RLock()
	b, ok := r.bridges[id]
	r.mu.RUnlock()
	if !ok {
		return nil, sonaerrors.UnresolvedNativeBridge("", id)
	}
	return b, nil
}

// Has reports whether id is registered. It does not count as a lookup.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bridges[id]
	return ok
}

// IDs lists the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.bridges))
	for id := range r.bridges {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bridges)
}

// Lookups is the number of Resolve calls made so far.
func (r *Registry) Lookups() int64 { return r.lookups.Load() }

// Funcs compare by code pointer.
func sameFunc(a, b eval.NativeFunc) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
