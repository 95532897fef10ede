// Package cache is the process-scoped TTL cache shared by the resource clients.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL is the maximum age of a cached response
const DefaultTTL = 5 * time.Minute

type entry struct {
	data      any
	timestamp time.Time
}

// Cache stores responses keyed by endpoint and parameters.
// Expired entries are evicted lazily on read; there is no size cap.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	clock   clockwork.Clock
}

// Option configures a Cache
type Option func(*Cache)

// WithClock overrides the time source
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

// New creates an empty cache. A non-positive ttl selects DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the value stored under key if it is younger than the TTL.
// A stale entry is removed and reported as absent.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Since(e.timestamp) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

// Set stores data under key, resetting its timestamp
func (c *Cache) Set(key string, data any) {
	c.mu.Lock()
	c.entries[key] = entry{data: data, timestamp: c.clock.Now()}
	c.mu.Unlock()
}

// Invalidate with no pattern clears the cache. With patterns, it removes every
// key containing any of them and returns the number of removed entries.
func (c *Cache) Invalidate(patterns ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(patterns) == 0 {
		n := len(c.entries)
		c.entries = make(map[string]entry)
		return n
	}

	removed := 0
	for k := range c.entries {
		for _, p := range patterns {
			if strings.Contains(k, p) {
				delete(c.entries, k)
				removed++
				break
			}
		}
	}
	return removed
}

// Len counts stored entries, including stale ones not yet evicted
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Lookup is a typed Get. A value of another type is treated as a miss.
func Lookup[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
