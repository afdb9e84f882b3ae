// Package cache provides the single keyed client-side cache used by every
// feature that memoizes remote data (market prices, weather, translations).
// Each entry is {value, timestamp, ttl}; expired entries are kept so callers
// can fall back to stale data when a refetch fails.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is the freshness window for cached remote data.
const DefaultTTL = 6 * time.Hour

type entry struct {
	value     interface{}
	timestamp time.Time
	ttl       time.Duration
}

// Cache is a thread-safe keyed cache with per-entry TTLs.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time // injectable for tests
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock creates a Cache with an injected clock.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get returns the cached value for key. fresh reports whether the entry is
// within its TTL; ok reports whether any entry exists at all. A stale entry
// is still returned so the caller can serve it when a refetch fails.
func (c *Cache) Get(key string) (value interface{}, fresh bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	return e.value, c.now().Sub(e.timestamp) < e.ttl, true
}

// Set stores value under key with the given TTL. A non-positive ttl uses
// DefaultTTL.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, timestamp: c.now(), ttl: ttl}
}

// Invalidate removes the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
