package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 16

// Memory is an in-process Store with TTL expiry. Keys are distributed over
// independent shards so concurrent access to different keys never contends
// on a single lock.
type Memory struct {
	shards [shardCount]*shard
	ttl    time.Duration
	now    func() time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	value     []byte
	createdAt time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source. Used by tests to simulate TTL expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an in-memory store whose entries expire after ttl.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{ttl: ttl, now: time.Now}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]entry)}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value for key if it exists and its TTL has not elapsed.
// Expired entries are evicted lazily.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	s := m.shardFor(key)

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if m.now().Sub(e.createdAt) >= m.ttl {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := s.entries[key]; ok && m.now().Sub(cur.createdAt) >= m.ttl {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set overwrites the value unconditionally, resetting the TTL window.
func (m *Memory) Set(_ context.Context, key string, value []byte) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.entries[key] = entry{value: value, createdAt: m.now()}
	s.mu.Unlock()
}

// Len returns the number of entries across all shards, including expired
// entries not yet evicted. Useful for test assertions.
func (m *Memory) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

func (m *Memory) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

var _ Store = (*Memory)(nil)
