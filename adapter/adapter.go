// Package adapter implements the protocol adapters that sit between a
// transport and the session manager. Both adapters share one lifecycle
// contract: start is exactly-once per session id (a duplicate start fails
// and leaves the first session untouched), stop is an idempotent no-op for
// unknown ids, and a failed start rolls back everything it created before
// re-raising the failure.
package adapter

import "sync"

// Kind names an adapter for error messages and logging.
type Kind string

const (
	// KindVoice is the streaming voice adapter.
	KindVoice Kind = "voice"
	// KindText is the request/response text adapter.
	KindText Kind = "text"
)

// table is the adapter-level session registry. Insert is an atomic
// check-and-insert; remove tolerates absent ids. Operations on different ids
// never block each other beyond the map access itself.
type table[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{entries: make(map[string]T)}
}

// insert registers v under id, reporting false if id is already present.
func (t *table[T]) insert(id string, v T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[id]; exists {
		return false
	}
	t.entries[id] = v
	return true
}

// remove deletes the entry for id, returning it if it was present.
func (t *table[T]) remove(id string) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return v, ok
}

// get returns the entry for id.
func (t *table[T]) get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[id]
	return v, ok
}

// len returns the number of registered entries.
func (t *table[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
