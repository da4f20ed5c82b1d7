// Package cache provides the read-through cache capability the resource
// services use to hold their latest known collection or item. Consistency
// comes from invalidate-and-refetch after every mutation, never from
// patching cached entries in place.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Cache is the capability interface services depend on. Values are
// JSON-encoded strings; a miss is reported via ok=false, not an error.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
	Key(parts ...string) string
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is a process-local Cache used when no Redis address is
// configured, and as the fake in service tests.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	namespace string
}

func NewMemory(namespace string) *Memory {
	return &Memory{
		entries:   make(map[string]memoryEntry),
		namespace: namespace,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Invalidate(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Key(parts ...string) string {
	return m.namespace + ":" + strings.Join(parts, ":")
}
