// Package storage holds the client's two stores: a process-scoped key/value
// store for session state and a durable SQLite mirror for unsynced writes.
package storage

import (
	"sort"
	"sync"
)

// Transient is a string key/value store that lives as long as the process.
// Nothing written here survives a restart.
type Transient struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewTransient returns an empty store.
func NewTransient() *Transient {
	return &Transient{values: make(map[string]string)}
}

// Get returns the value under key.
func (t *Transient) Get(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[key]
	return v, ok
}

// Set stores value under key.
func (t *Transient) Set(key, value string) {
	t.mu.Lock()
	t.values[key] = value
	t.mu.Unlock()
}

// Delete removes key. Missing keys are ignored.
func (t *Transient) Delete(key string) {
	t.mu.Lock()
	delete(t.values, key)
	t.mu.Unlock()
}

// Keys returns every key in sorted order.
func (t *Transient) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes every key.
func (t *Transient) Clear() {
	t.mu.Lock()
	t.values = make(map[string]string)
	t.mu.Unlock()
}
