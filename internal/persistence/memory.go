package persistence

import (
	"context"
	"sync"
)

// MemoryTokenStore keeps values in process memory. Values do not survive a restart.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ TokenStore = (*MemoryTokenStore)(nil)

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{values: make(map[string]string)}
}

func (m *MemoryTokenStore) LoadToken(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryTokenStore) SaveToken(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokenStore) ClearToken(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

// Has reports whether key currently holds a value.
func (m *MemoryTokenStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok
}
