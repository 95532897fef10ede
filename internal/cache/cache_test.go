package cache_test

import (
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/booksync/internal/cache"
)

func newTestCache(t *testing.T) (*cache.Cache, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	return cache.New(cache.DefaultTTL, cache.WithClock(clock)), clock
}

func TestCache_GetBeforeTTL(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("k", []string{"a", "b"})
	clock.Advance(cache.DefaultTTL - time.Millisecond)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)
}

func TestCache_GetAfterTTLEvicts(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("k", 42)
	clock.Advance(cache.DefaultTTL)

	v, ok := c.Get("k")
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, 0, c.Len())
}

func TestCache_SetResetsTimestamp(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("k", 1)
	clock.Advance(4 * time.Minute)
	c.Set("k", 2)
	clock.Advance(4 * time.Minute)

	v, ok := cache.Lookup[int](c, "k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_GetDoesNotRefresh(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("k", 1)
	clock.Advance(3 * time.Minute)
	_, ok := c.Get("k")
	require.True(t, ok)
	clock.Advance(3 * time.Minute)

	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_InvalidatePattern(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set(cache.BooksKey("calibre"), 1)
	c.Set(cache.BooksKey("kobo"), 2)
	c.Set(cache.MetadataKey(7), 3)
	c.Set(cache.CoverKey(7), 4)
	c.Set(cache.FamilyCompare, 5)

	removed := c.Invalidate(cache.FamilyBooks)
	assert.Equal(t, 2, removed)

	_, ok := c.Get(cache.BooksKey("calibre"))
	assert.False(t, ok)
	_, ok = c.Get(cache.BooksKey("kobo"))
	assert.False(t, ok)

	for _, key := range []string{cache.MetadataKey(7), cache.CoverKey(7), cache.FamilyCompare} {
		_, ok := c.Get(key)
		assert.True(t, ok, key)
	}
}

func TestCache_InvalidateMultiplePatterns(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set(cache.BooksKey("calibre"), 1)
	c.Set(cache.MetadataKey(1), 2)
	c.Set(cache.CoverKey(1), 3)
	c.Set(cache.FamilyStatus, 4)

	assert.Equal(t, 3, c.Invalidate(cache.BookFamilies()...))
	assert.Equal(t, 1, c.Len())
}

func TestCache_InvalidateAll(t *testing.T) {
	c, _ := newTestCache(t)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}

	assert.Equal(t, 10, c.Invalidate())
	assert.Equal(t, 0, c.Len())
}

func TestLookup_WrongTypeIsMiss(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("k", "string value")

	_, ok := cache.Lookup[int](c, "k")
	assert.False(t, ok)
}

func TestNew_DefaultTTL(t *testing.T) {
	assert.Equal(t, cache.DefaultTTL, cache.New(0).TTL())
	assert.Equal(t, time.Second, cache.New(time.Second).TTL())
}

func TestKey_Deterministic(t *testing.T) {
	a := cache.Key("/history", url.Values{"limit": {"20"}, "dry_run": {"false"}})
	b := cache.Key("/history", url.Values{"dry_run": {"false"}, "limit": {"20"}})
	c := cache.Key("/history", url.Values{"limit": {"21"}, "dry_run": {"false"}})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "/compare", cache.Key("/compare", nil))
	assert.NotEqual(t, cache.MetadataKey(1), cache.CoverKey(1))
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := cache.MetadataKey(i % 5)
			c.Set(key, i)
			c.Get(key)
			if i%10 == 0 {
				c.Invalidate(cache.FamilyMetadata)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 5)
}
