package store

import (
	"context"
	"sync"
)

// Memory is an in-process KeyValue. It does not survive restarts and exists
// for tests and for hosts that explicitly opt out of persistence.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory KeyValue.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements [KeyValue].
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

// Set implements [KeyValue].
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete implements [KeyValue]. All keys go under one lock acquisition, so a
// concurrent reader observes either all values or none of them removed.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// Len reports the number of stored keys. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
