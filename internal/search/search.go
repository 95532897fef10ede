// Package search filters the cached book listing as the user types.
package search

import (
	"log/slog"
	"sort"
	"strings"

	fuzzysearch "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/booksync/internal/domain"
)

// Field names the attribute a result matched on
type Field string

const (
	FieldTitle  Field = "title"
	FieldAuthor Field = "author"
)

// Result is a matching book with match metadata for highlighting
type Result struct {
	Book           domain.Book
	Field          Field
	MatchedIndexes []int // byte offsets in the title, empty for author matches
	Score          int   // title: higher is better; author: edit distance, lower is better
}

// BookQueries provides cache-only access to listings
type BookQueries interface {
	CachedBooks(locationID string) ([]domain.Book, bool)
}

// titleIndex implements fuzzy.Source over pre-lowered titles
type titleIndex struct {
	lowerTitles []string
}

func (idx titleIndex) String(i int) string { return idx.lowerTitles[i] }

func (idx titleIndex) Len() int { return len(idx.lowerTitles) }

// Filter ranks books against query. Title matches come first, then books
// whose authors match but whose title did not.
func Filter(query string, books []domain.Book) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(books) == 0 {
		return nil
	}

	idx := titleIndex{lowerTitles: make([]string, len(books))}
	for i, b := range books {
		idx.lowerTitles[i] = strings.ToLower(b.Title)
	}

	matched := make(map[int]bool)
	var results []Result

	for _, m := range fuzzy.FindFrom(query, idx) {
		matched[m.Index] = true
		results = append(results, Result{
			Book:           books[m.Index],
			Field:          FieldTitle,
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		})
	}

	authorLines := make([]string, len(books))
	for i, b := range books {
		authorLines[i] = b.AuthorLine()
	}
	ranks := fuzzysearch.RankFindFold(query, authorLines)
	sort.Stable(ranks)

	for _, r := range ranks {
		if matched[r.OriginalIndex] {
			continue
		}
		matched[r.OriginalIndex] = true
		results = append(results, Result{
			Book:  books[r.OriginalIndex],
			Field: FieldAuthor,
			Score: r.Distance,
		})
	}

	return results
}

// Service searches listings already held in the cache.
type Service struct {
	queries BookQueries
	logger  *slog.Logger
}

// NewService creates a new search service
func NewService(queries BookQueries, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{queries: queries, logger: logger}
}

// FilterCached filters the cached listing of locationID. The bool is false
// when nothing is cached for that location.
func (s *Service) FilterCached(query, locationID string) ([]Result, bool) {
	books, ok := s.queries.CachedBooks(locationID)
	if !ok {
		s.logger.Debug("no cached listing to search", "location", locationID)
		return nil, false
	}
	results := Filter(query, books)
	s.logger.Debug("filtered books", "query", query, "candidates", len(books), "results", len(results))
	return results, true
}
