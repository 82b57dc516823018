// Package storage implements SessionStore, the durable key->session mapping
// spec.md §4.3 describes, with an in-memory implementation for tests, a
// crash-safe file-backed implementation for production, and an optional
// Postgres-backed implementation for fleets sharing a database.
package storage

import (
	"sort"
	"sync"

	"github.com/bivory/grove/internal/core"
)

// SessionStore is the persistence interface every backend satisfies.
type SessionStore interface {
	// Get retrieves a session by id. A missing session is (nil, nil), not
	// an error.
	Get(id string) (*core.SessionState, error)
	// Put creates or atomically replaces the session stored under
	// session.ID.
	Put(session *core.SessionState) error
	// List returns up to limit sessions, most recently updated first.
	List(limit int) ([]core.SessionState, error)
	// Delete removes a session. Deleting an absent session is not an
	// error.
	Delete(id string) error
}

// Exists is the default existence check every backend can share: it is not
// part of the interface so backends with a cheaper native check (e.g. a SQL
// EXISTS) are free to implement their own.
func Exists(store SessionStore, id string) (bool, error) {
	s, err := store.Get(id)
	if err != nil {
		return false, err
	}
	return s != nil, nil
}

// MemoryStore is a thread-safe in-memory SessionStore, used by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]core.SessionState
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]core.SessionState)}
}

func (m *MemoryStore) Get(id string) (*core.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

func (m *MemoryStore) Put(session *core.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = *session
	return nil
}

func (m *MemoryStore) List(limit int) ([]core.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]core.SessionState, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports the number of sessions currently stored, for test assertions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
