// Package memory persists session-memory snapshots (verified identity,
// inferred intent) across reconnects. Adapters save a snapshot on stop and
// restore it on the next start for the same caller.
package memory

import (
	"context"
	"sync"

	"github.com/convocore/convocore/core"
)

// Store persists session-memory snapshots keyed by session id.
type Store interface {
	Save(ctx context.Context, sessionID string, mem core.SessionMemory) error
	Load(ctx context.Context, sessionID string) (core.SessionMemory, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// InMemoryStore is a volatile Store backed by a process-local map. It is
// safe for concurrent use and suited to tests and single-process deployments.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]core.SessionMemory
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[string]core.SessionMemory)}
}

// Save stores a snapshot, overwriting any previous one.
func (s *InMemoryStore) Save(_ context.Context, sessionID string, mem core.SessionMemory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[sessionID] = mem
	return nil
}

// Load returns the stored snapshot and whether one exists.
func (s *InMemoryStore) Load(_ context.Context, sessionID string) (core.SessionMemory, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mem, ok := s.snapshots[sessionID]
	return mem, ok, nil
}

// Delete removes a snapshot; deleting an absent id is a no-op.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, sessionID)
	return nil
}
