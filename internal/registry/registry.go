// Package registry holds the process-wide integration data: one coordinator
// per location key and one runtime record per loaded entry.
//
// Coordinators are never evicted. An entry unloading does not stop the
// coordinator it shared, and a later entry for the same location reuses it.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/i474232898/pirateweather/internal/entry"
	"github.com/i474232898/pirateweather/internal/weather"
)

// ErrNotLoaded is returned when an entry has no runtime record.
var ErrNotLoaded = errors.New("entry not loaded")

// Runtime is the per-entry record created at setup and removed at unload.
type Runtime struct {
	EntryID        string
	Settings       entry.Settings
	LocationKey    string
	Coordinator    *weather.Coordinator
	RemoveListener func()
}

// Registry is safe for concurrent use. The zero value is not usable; use New.
type Registry struct {
	mu           sync.RWMutex
	coordinators map[string]*weather.Coordinator
	runtimes     map[string]*Runtime
}

func New() *Registry {
	return &Registry{
		coordinators: make(map[string]*weather.Coordinator),
		runtimes:     make(map[string]*Runtime),
	}
}

// LoadOrStore returns the coordinator registered under key, or stores and
// returns the one built by create. loaded is true when an existing
// coordinator was returned. create runs under the registry lock and must not
// block.
func (r *Registry) LoadOrStore(key string, create func() *weather.Coordinator) (c *weather.Coordinator, loaded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.coordinators[key]; ok {
		return c, true
	}
	c = create()
	r.coordinators[key] = c
	return c, false
}

// Coordinator returns the coordinator registered under key.
func (r *Registry) Coordinator(key string) (*weather.Coordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.coordinators[key]
	return c, ok
}

// Keys returns the registered location keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.coordinators))
	for k := range r.coordinators {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetRuntime stores rt under its entry ID, replacing any previous record.
func (r *Registry) SetRuntime(rt *Runtime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimes[rt.EntryID] = rt
}

// Runtime returns the record stored for entryID.
func (r *Registry) Runtime(entryID string) (*Runtime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.runtimes[entryID]
	if !ok {
		return nil, ErrNotLoaded
	}
	return rt, nil
}

// DeleteRuntime removes the record stored for entryID.
func (r *Registry) DeleteRuntime(entryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runtimes, entryID)
}
