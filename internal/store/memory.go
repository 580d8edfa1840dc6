package store

import (
	"context"
	"sync"
)

// Memory is an in-process store. Useful for tests and for running without
// persistence.
type Memory struct {
	mu     sync.Mutex
	values map[string]float64

	// Err, if set, is returned by every operation.
	Err error

	Saves int
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{values: map[string]float64{}}
}

// Load returns a copy of the stored values.
func (m *Memory) Load(ctx context.Context) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return copyValues(m.values), nil
}

// Save stores one value.
func (m *Memory) Save(ctx context.Context, name string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.values[name] = value
	m.Saves++
	return nil
}

// Replace discards all values and stores the given ones.
func (m *Memory) Replace(ctx context.Context, values map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.values = copyValues(values)
	m.Saves++
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
