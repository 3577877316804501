package cache

import (
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry is a cached payload with its expiry
type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is an in-memory LRU cache with TTL support
type MemoryCache struct {
	cache     *lru.Cache[string, *cacheEntry]
	ttl       time.Duration
	mu        sync.Mutex // orders expiry removal against Set
	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache holding at most size entries
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	cache, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		return nil, err
	}

	mc := &MemoryCache{
		cache: cache,
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	go mc.cleanupLoop()

	return mc, nil
}

// Get retrieves a value from the cache
func (mc *MemoryCache) Get(key string) ([]byte, bool) {
	entry, ok := mc.cache.Get(key)
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		mc.removeIfExpired(key)
		return nil, false
	}

	return entry.data, true
}

// Set stores a value in the cache
func (mc *MemoryCache) Set(key string, value []byte) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.cache.Add(key, &cacheEntry{
		data:      append([]byte(nil), value...),
		expiresAt: time.Now().Add(mc.ttl),
	})
}

// Len returns the number of entries, expired ones included
func (mc *MemoryCache) Len() int {
	return mc.cache.Len()
}

// Close stops the cleanup goroutine
func (mc *MemoryCache) Close() {
	mc.closeOnce.Do(func() {
		close(mc.stop)
	})
}

// cleanupLoop periodically removes expired entries
func (mc *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(mc.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.removeExpired()
		case <-mc.stop:
			return
		}
	}
}

// removeExpired removes all expired entries from the cache
func (mc *MemoryCache) removeExpired() {
	for _, key := range mc.cache.Keys() {
		mc.removeIfExpired(key)
	}
}

// NoopCache is a cache that does nothing (used when caching is disabled)
type NoopCache struct{}

// NewNoopCache creates a new no-op cache
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// Get always returns not found
func (nc *NoopCache) Get(key string) ([]byte, bool) {
	return nil, false
}

// Set does nothing
func (nc *NoopCache) Set(key string, value []byte) {}

// Close does nothing
func (nc *NoopCache) Close() {}

// removeIfExpired removes key only if the entry currently stored is expired
func (mc *MemoryCache) removeIfExpired(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if entry, ok := mc.cache.Peek(key); ok && time.Now().After(entry.expiresAt) {
		mc.cache.Remove(key)
	}
}
