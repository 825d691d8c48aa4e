package kvbackends

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps everything in a map. Used for tests and ephemeral sessions.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string][]byte
	used  int64
	quota int64
}

// NewMemory returns an empty in-memory backend. quota <= 0 disables the limit.
func NewMemory(quota int64) *MemoryBackend {
	return &MemoryBackend{
		items: make(map[string][]byte),
		quota: quota,
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.used + entrySize(key, value)
	if prev, ok := m.items[key]; ok {
		next -= entrySize(key, prev)
	}
	if m.quota > 0 && next > m.quota {
		return ErrQuotaExceeded
	}

	m.items[key] = slices.Clone(value)
	m.used = next
	return nil
}

func (m *MemoryBackend) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.items[key]; ok {
		m.used -= entrySize(key, prev)
		delete(m.items, key)
	}
	return nil
}

func (m *MemoryBackend) Keys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Used reports the bytes currently counted against the quota.
func (m *MemoryBackend) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

func (m *MemoryBackend) Close() error { return nil }

func (m *MemoryBackend) Kind() Kind { return KindMemory }

func (m *MemoryBackend) sealed() {}

func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

var _ Backend = (*MemoryBackend)(nil)
