package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

func init() {
	Register("memory", newMemoryCache)
}

// memoryCache wraps hashicorp/golang-lru/v2/expirable to implement the Cache interface.
// Entries written by SetIfAbsent also carry their own deadline, which is
// checked on read since the LRU only knows the cache-wide TTL.
type memoryCache struct {
	mu    sync.Mutex
	inner *lru.LRU[string, memoryEntry]
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func newMemoryCache(cfg ProviderConfig) (Cache, error) {
	size := cfg.Size
	if size <= 0 {
		size = 64
	}
	return &memoryCache{
		inner: lru.NewLRU[string, memoryEntry](size, nil, cfg.TTL),
	}, nil
}

func (m *memoryCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(key, time.Now())
}

func (m *memoryCache) get(key string, now time.Time) ([]byte, bool) {
	entry, ok := m.inner.Get(key)
	if !ok {
		return nil, false
	}
	if entry.expired(now) {
		m.inner.Remove(key)
		return nil, false
	}
	return entry.value, true
}

func (m *memoryCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inner.Add(key, memoryEntry{value: value})
}

func (m *memoryCache) SetIfAbsent(key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if _, ok := m.get(key, now); ok {
		return false, nil
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.inner.Add(key, entry)
	return true, nil
}

func (m *memoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	count := 0
	for _, entry := range m.inner.Values() {
		if !entry.expired(now) {
			count++
		}
	}
	return count
}

func (m *memoryCache) Close() error {
	return nil
}
