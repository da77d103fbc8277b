package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, namespace, key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[namespace+"/"+key]
	if !ok {
		return nil, nil
	}
	out := entry
	return &out, nil
}

func (m *MemoryStore) Put(_ context.Context, namespace, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[namespace+"/"+key] = Entry{
		Key:       key,
		CreatedAt: time.Now().UTC(),
		Payload:   append([]byte(nil), payload...),
	}
	return nil
}

func (m *MemoryStore) Invalidate(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, namespace+"/"+key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
