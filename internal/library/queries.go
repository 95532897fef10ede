package library

import (
	"github.com/mmcdole/booksync/internal/cache"
	"github.com/mmcdole/booksync/internal/domain"
)

// Queries provides synchronous, cache-only reads.
type Queries struct {
	cache *cache.Cache
}

// NewQueries creates a new Queries instance.
func NewQueries(c *cache.Cache) *Queries {
	return &Queries{cache: c}
}

func (q *Queries) CachedBooks(locationID string) ([]domain.Book, bool) {
	if locationID == "" {
		locationID = domain.DefaultLocationID
	}
	return cache.Lookup[[]domain.Book](q.cache, cache.BooksKey(locationID))
}
