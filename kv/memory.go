package kv

import (
	"context"
	"sync"
)

// Memory is an in-process [Store]. It is safe for concurrent use and keeps
// batched writes atomic with a single lock.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// MultiGet returns one entry per key, in order.
func (m *Memory) MultiGet(ctx context.Context, keys []string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKeys(keys); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(keys))
	for i, k := range keys {
		v, ok := m.values[k]
		out[i] = Entry{Key: k, Value: v, Present: ok}
	}
	return out, nil
}

// MultiSet stores all pairs under one lock.
func (m *Memory) MultiSet(ctx context.Context, pairs []Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePairs(pairs); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range pairs {
		m.values[p.Key] = p.Value
	}
	return nil
}

// SetItem stores a single value.
func (m *Memory) SetItem(ctx context.Context, key, value string) error {
	return m.MultiSet(ctx, []Pair{{Key: key, Value: value}})
}

// MultiRemove deletes keys; missing keys are ignored.
func (m *Memory) MultiRemove(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKeys(keys); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
