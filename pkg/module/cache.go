package module

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"sona/pkg/eval"
)

// Cache holds every module imported by one interpreter session, keyed by
// normalized path. Entries are added in the loading state before their top
// level runs and end loaded or failed; neither is ever undone.
type Cache struct {
	mu      sync.Mutex
	modules map[string]*eval.Module
	order   []string

	flight singleflight.Group
}

func NewCache() *Cache {
	return &Cache{modules: make(map[string]*eval.Module)}
}

// Entry is a point-in-time copy of a cache entry's bookkeeping.
type Entry struct {
	Path           string
	Origin         string
	Size           int
	State          eval.ModuleState
	RequiresBridge bool
	NativeRefs     []string
	Err            error
}

// snapshot is a module and its state, read under the cache lock.
type snapshot struct {
	mod   *eval.Module
	state eval.ModuleState
	err   error
}

func (c *Cache) lookup(path string) (snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mod, ok := c.modules[path]
	if !ok {
		return snapshot{state: eval.StateUnloaded}, false
	}
	return snapshot{mod: mod, state: mod.State, err: mod.Err}, true
}

// Get returns the module cached under a normalized path, in whatever state
// it is in.
func (c *Cache) Get(path string) (*eval.Module, bool) {
	s, ok := c.lookup(path)
	return s.mod, ok
}

// State reports the state of path, StateUnloaded when never imported.
func (c *Cache) State(path string) eval.ModuleState {
	s, _ := c.lookup(path)
	return s.state
}

func (c *Cache) insert(mod *eval.Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.modules[mod.Path]; !ok {
		c.order = append(c.order, mod.Path)
	}
	mod.State = eval.StateLoading
	c.modules[mod.Path] = mod
}

func (c *Cache) settle(mod *eval.Module, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		mod.State = eval.StateFailed
		mod.Err = err
		return
	}
	mod.State = eval.StateLoaded
}

// Entries lists the cache in import order.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]Entry, 0, len(c.order))
	for _, p := range c.order {
		mod := c.modules[p]
		entries = append(entries, Entry{
			Path:           mod.Path,
			Origin:         mod.Origin,
			Size:           mod.Size,
			State:          mod.State,
			RequiresBridge: mod.RequiresBridge,
			NativeRefs:     append([]string(nil), mod.NativeRefs...),
			Err:            mod.Err,
		})
	}
	return entries
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.modules)
}
