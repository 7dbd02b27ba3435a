// Package cache is the short-lived lookup cache in front of the
// entitlement and user stores. Invalidation happens per kind and is the
// write side's responsibility: every append/upsert clears its kind
// synchronously, so the TTL only bounds staleness for data that changed
// outside this process.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache stores serialized lookup results under (kind, key). A cached
// value may encode "definitely absent"; that is the caller's encoding
// concern, not the cache's.
type Cache interface {
	Get(ctx context.Context, kind, key string) ([]byte, bool)
	Set(ctx context.Context, kind, key string, value []byte)
	InvalidateKind(ctx context.Context, kind string)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process TTL cache. InvalidateKind swaps out the whole
// per-kind map in one step, so readers racing an invalidation see either
// the old complete state or an empty one, never a partial clear.
type Memory struct {
	mu    sync.RWMutex
	ttl   time.Duration
	kinds map[string]map[string]memoryEntry
	now   func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:   ttl,
		kinds: make(map[string]map[string]memoryEntry),
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, kind, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.kinds[kind][key]
	if !ok || m.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

func (m *Memory) Set(_ context.Context, kind, key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.kinds[kind]
	if !ok {
		bucket = make(map[string]memoryEntry)
		m.kinds[kind] = bucket
	}
	bucket[key] = memoryEntry{value: value, expiresAt: m.now().Add(m.ttl)}
}

func (m *Memory) InvalidateKind(_ context.Context, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kinds, kind)
}
