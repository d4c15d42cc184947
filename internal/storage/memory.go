package storage

import (
	"context"
	"sort"
	"sync"

	"bfsp/ingestion/internal/models"
)

// MemoryStore is an in-process Store used by tests and dry runs. Payloads
// are copied on write so callers cannot mutate stored artifacts.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Exists(_ context.Context, key models.ArtifactKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key.ObjectKey()]
	return ok, nil
}

func (m *MemoryStore) Put(_ context.Context, key models.ArtifactKey, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.objects[key.ObjectKey()] = cp
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns a copy of a stored payload, or nil when absent
func (m *MemoryStore) Get(key models.ArtifactKey) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key.ObjectKey()]
	if !ok {
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp
}

// Len returns the number of stored objects
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
