// Package loading tracks outstanding requests behind a single loading flag.
package loading

import (
	"sync"

	"github.com/mmcdole/booksync/internal/domain"
)

// Counter counts in-flight requests. The flag is true while the count is positive
// and observers are told only when it flips.
type Counter struct {
	mu        sync.Mutex
	n         int
	reported  bool
	notifying bool
	observer  domain.LoadingObserver
}

// NewCounter creates a counter reporting to observer (nil discards)
func NewCounter(observer domain.LoadingObserver) *Counter {
	if observer == nil {
		observer = domain.NoOpLoadingObserver{}
	}
	return &Counter{observer: observer}
}

// Acquire registers one in-flight request and returns its release function.
// Release is idempotent so it is safe to defer alongside explicit calls.
func (c *Counter) Acquire() (release func()) {
	c.add(1)
	var once sync.Once
	return func() {
		once.Do(func() { c.add(-1) })
	}
}

// add updates the count and reports flips outside the lock. One caller at a
// time delivers; flips that happen meanwhile are picked up by its loop, so
// observers see flips in order and may call back into the counter.
func (c *Counter) add(delta int) {
	c.mu.Lock()
	c.n += delta
	if c.n < 0 {
		c.n = 0
	}
	if c.notifying {
		c.mu.Unlock()
		return
	}
	c.notifying = true
	defer func() {
		c.notifying = false
		c.mu.Unlock()
	}()

	for {
		loading := c.n > 0
		if loading == c.reported {
			return
		}
		c.reported = loading
		c.mu.Unlock()
		c.observer.LoadingChanged(loading)
		c.mu.Lock()
	}
}

// Count returns the number of in-flight requests
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Loading reports whether any request is in flight
func (c *Counter) Loading() bool {
	return c.Count() > 0
}
