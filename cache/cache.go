package cache

import (
	"sync"
	"time"

	"github.com/alorle/tuner-proxy/metrics"
)

// entry holds a cached value together with the time it was stored.
type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a named in-memory store whose entries share a single TTL.
// All operations on one Cache are serialized; independent Cache instances
// never contend with each other.
//
// A TTL of zero means entries never expire.
type Cache[V any] struct {
	name string
	ttl  time.Duration

	mu      sync.Mutex
	entries map[string]entry[V]
	hits    uint64
	misses  uint64

	// now is replaceable in tests
	now func() time.Time
}

// New creates a named cache with the given TTL.
func New[V any](name string, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		name:    name,
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Name returns the cache's name.
func (c *Cache[V]) Name() string {
	return c.name
}

// TTL returns the cache's time-to-live.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// expired reports whether an entry is past the TTL. Callers must hold c.mu.
func (c *Cache[V]) expired(e entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl
}

// Get returns the value stored under key. An entry past the TTL is evicted
// and reported as a miss. Hit/miss counters are updated on every call.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.expired(e) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		metrics.RecordCacheMiss(c.name)
		var zero V
		return zero, false
	}

	c.hits++
	metrics.RecordCacheHit(c.name)
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// Has reports whether key holds a live entry. Expired entries are evicted.
// Unlike Get, Has does not touch the hit/miss counters.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.expired(e) {
		delete(c.entries, key)
		return false
	}
	return ok
}

// Delete removes the entry stored under key, if any.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry[V])
}

// Size returns the number of live entries, evicting expired ones first.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
		}
	}
	return len(c.entries)
}
