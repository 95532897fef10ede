package search_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/booksync/internal/cache"
	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/library"
	"github.com/mmcdole/booksync/internal/search"
)

var shelf = []domain.Book{
	{ID: 1, Title: "Dune", Authors: []string{"Frank Herbert"}},
	{ID: 2, Title: "Dune Messiah", Authors: []string{"Frank Herbert"}},
	{ID: 3, Title: "Emma", Authors: []string{"Jane Austen"}},
	{ID: 4, Title: "Persuasion", Authors: []string{"Jane Austen"}},
}

func ids(results []search.Result) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Book.ID
	}
	return out
}

func TestFilter_EmptyQuery(t *testing.T) {
	assert.Nil(t, search.Filter("  ", shelf))
	assert.Nil(t, search.Filter("dune", nil))
}

func TestFilter_TitleMatches(t *testing.T) {
	results := search.Filter("DUNE", shelf)

	require.Len(t, results, 2)
	assert.ElementsMatch(t, []int{1, 2}, ids(results))
	for _, r := range results {
		assert.Equal(t, search.FieldTitle, r.Field)
		assert.Equal(t, []int{0, 1, 2, 3}, r.MatchedIndexes)
	}
}

func TestFilter_AuthorFallback(t *testing.T) {
	results := search.Filter("austen", shelf)

	assert.ElementsMatch(t, []int{3, 4}, ids(results))
	for _, r := range results {
		assert.Equal(t, search.FieldAuthor, r.Field)
		assert.Empty(t, r.MatchedIndexes)
	}
}

func TestFilter_TitleBeforeAuthor(t *testing.T) {
	books := []domain.Book{
		{ID: 1, Title: "Collected Stories", Authors: []string{"Emma Donoghue"}},
		{ID: 2, Title: "Emma", Authors: []string{"Jane Austen"}},
	}

	results := search.Filter("emma", books)

	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Book.ID)
	assert.Equal(t, search.FieldTitle, results[0].Field)
	assert.Equal(t, search.FieldAuthor, results[1].Field)
}

func TestFilter_NoMatch(t *testing.T) {
	assert.Empty(t, search.Filter("zzzz", shelf))
}

func TestService_FilterCached(t *testing.T) {
	c := cache.New(time.Minute)
	svc := search.NewService(library.NewQueries(c), nil)

	_, ok := svc.FilterCached("dune", "calibre")
	assert.False(t, ok)

	c.Set(cache.BooksKey("calibre"), shelf)
	results, ok := svc.FilterCached("persuasion", "")
	require.True(t, ok)
	assert.Equal(t, []int{4}, ids(results))
}
