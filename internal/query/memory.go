package query

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore provides thread-safe in-memory storage for cache entries.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) Invalidate(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, e := range m.entries {
		_, key := splitScoped(k)
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		e.Invalidated = true
		m.entries[k] = e
		n++
	}
	return n, nil
}

func (m *MemoryStore) DeleteScope(_ context.Context, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.entries {
		if s, _ := splitScoped(k); s == scope {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *MemoryStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, e := range m.entries {
		if e.FetchedAt.Before(cutoff) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
