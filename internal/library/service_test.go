package library_test

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mmcdole/booksync/internal/cache"
	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/domain/mocks"
	"github.com/mmcdole/booksync/internal/library"
	"github.com/mmcdole/booksync/internal/retry"
	"github.com/mmcdole/booksync/internal/transport"
)

type fixture struct {
	srv   *httptest.Server
	calls atomic.Int32
	cache *cache.Cache
	svc   *library.Service
}

func newFixture(t *testing.T, handler http.HandlerFunc, opts ...transport.Option) *fixture {
	t.Helper()
	f := &fixture{cache: cache.New(time.Minute)}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.srv.Close)

	api := transport.New(transport.Config{
		BaseURL:   f.srv.URL,
		APIPrefix: "/api/v1",
		Policy:    retry.Policy{BaseDelay: time.Millisecond, MaxRetries: 1, Retryable: retry.DefaultRetryable()},
	}, opts...)
	f.svc = library.NewService(api, f.cache, nil)
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestBooks_CachesListing(t *testing.T) {
	var path string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		writeJSON(w, map[string]any{"books": []domain.Book{{ID: 1, Title: "Dune"}}, "total": 1})
	})
	ctx := context.Background()

	books, err := f.svc.Books(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/libraries/calibre/books", path)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)

	_, err = f.svc.Books(ctx, domain.DefaultLocationID, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load(), "second read served from cache")

	_, err = f.svc.Books(ctx, domain.DefaultLocationID, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load(), "useCache=false always dispatches")

	cached, ok := library.NewQueries(f.cache).CachedBooks("")
	require.True(t, ok)
	assert.Equal(t, books, cached)
}

func TestBooks_MissingArrayIsInvalidResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify("Unexpected response from server", domain.SeverityError)

	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"total": 0})
	}, transport.WithNotifier(notifier))

	_, err := f.svc.Books(context.Background(), "calibre", true)
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
	assert.ErrorIs(t, err, domain.ErrUnknown)
	assert.Equal(t, 0, f.cache.Len())
}

func TestBooks_EmptyListingIsValid(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"books": []domain.Book{}})
	})

	books, err := f.svc.Books(context.Background(), "calibre", true)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestBooks_CoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, map[string]any{"books": []domain.Book{{ID: 7}}})
	})

	var wg sync.WaitGroup
	results := make([][]domain.Book, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = f.svc.Books(context.Background(), "calibre", true)
		}(i)
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	for _, r := range results {
		require.Len(t, r, 1)
		assert.Equal(t, 7, r[0].ID)
	}
}

func TestMetadata(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/books/42/metadata", r.URL.Path)
		writeJSON(w, map[string]any{"metadata": domain.BookMetadata{ID: 42, Title: "Emma", Series: "Austen", SeriesIndex: 2}})
	})
	ctx := context.Background()

	md, err := f.svc.Metadata(ctx, 42, true)
	require.NoError(t, err)
	assert.Equal(t, "Austen #2", md.SeriesLine())

	_, err = f.svc.Metadata(ctx, 42, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestMetadata_MissingField(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{})
	})

	_, err := f.svc.Metadata(context.Background(), 1, false)
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestCover_CachedBytes(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/*", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	})
	ctx := context.Background()

	img, err := f.svc.Cover(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, img)

	_, err = f.svc.Cover(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestValidation_NeverDispatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Times(0)

	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}, transport.WithNotifier(notifier))
	ctx := context.Background()
	file := &domain.BookFile{Name: "b.epub", Content: []byte("epub")}

	tests := []struct {
		name  string
		call  func() error
		cause error
	}{
		{"metadata zero id", func() error { _, err := f.svc.Metadata(ctx, 0, true); return err }, domain.ErrInvalidBookID},
		{"cover negative id", func() error { _, err := f.svc.Cover(ctx, -1); return err }, domain.ErrInvalidBookID},
		{"delete zero id", func() error { _, err := f.svc.Delete(ctx, 0); return err }, domain.ErrInvalidBookID},
		{"blank title", func() error {
			_, err := f.svc.Add(ctx, domain.AddBookRequest{Title: "   ", Authors: []string{"A"}, File: file})
			return err
		}, domain.ErrMissingTitle},
		{"blank authors", func() error {
			_, err := f.svc.Add(ctx, domain.AddBookRequest{Title: "T", Authors: []string{" ", ""}, File: file})
			return err
		}, domain.ErrMissingAuthors},
		{"missing file", func() error {
			_, err := f.svc.Add(ctx, domain.AddBookRequest{Title: "T", Authors: []string{"A"}})
			return err
		}, domain.ErrMissingFile},
		{"empty file", func() error {
			_, err := f.svc.Add(ctx, domain.AddBookRequest{Title: "T", Authors: []string{"A"}, File: &domain.BookFile{Name: "x"}})
			return err
		}, domain.ErrMissingFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestAdd_MultipartForm(t *testing.T) {
	type part struct{ name, value string }
	var parts []part

	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/books/add", r.URL.Path)

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			data, _ := io.ReadAll(p)
			parts = append(parts, part{p.FormName(), string(data)})
		}
		writeJSON(w, domain.AddBookResponse{ID: 9, Title: "Dune", Message: "ok"})
	})

	resp, err := f.svc.Add(context.Background(), domain.AddBookRequest{
		Title:       "  Dune ",
		Authors:     []string{"Frank Herbert", " ", "Brian Herbert"},
		Publisher:   " ",
		ISBN:        "978-0441013593",
		SeriesIndex: 1.5,
		Comments:    "classic",
		File:        &domain.BookFile{Name: "dune.epub", Content: []byte("EPUB")},
	})
	require.NoError(t, err)
	assert.Equal(t, 9, resp.ID)

	assert.Equal(t, []part{
		{"title", "Dune"},
		{"authors", "Frank Herbert,Brian Herbert"},
		{"isbn", "978-0441013593"},
		{"series_index", "1.5"},
		{"comments", "classic"},
		{"file", "EPUB"},
	}, parts)
}

func TestMutations_InvalidateBookFamilies(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			assert.Equal(t, "/api/v1/books/5", r.URL.Path)
			writeJSON(w, domain.DeleteBookResponse{Message: "deleted", DeletedID: 5})
		case strings.HasSuffix(r.URL.Path, "/books/add"):
			writeJSON(w, domain.AddBookResponse{ID: 6})
		}
	})

	seed := func() {
		f.cache.Set(cache.BooksKey("calibre"), []domain.Book{})
		f.cache.Set(cache.MetadataKey(5), &domain.BookMetadata{})
		f.cache.Set(cache.CoverKey(5), []byte{1})
		f.cache.Set(cache.FamilyCompare, domain.ComparisonResult{})
	}

	seed()
	del, err := f.svc.Delete(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, del.DeletedID)
	assert.Equal(t, 1, f.cache.Len(), "only the comparison survives")

	seed()
	_, err = f.svc.Add(context.Background(), domain.AddBookRequest{
		Title: "T", Authors: []string{"A"}, File: &domain.BookFile{Name: "t.pdf", Content: []byte("%PDF")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Len())
}

func TestDelete_FailureKeepsCache(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	f.cache.Set(cache.BooksKey("calibre"), []domain.Book{{ID: 5}})

	_, err := f.svc.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrPermanent)
	assert.Equal(t, 1, f.cache.Len())
}

func TestRefresh_BypassesCache(t *testing.T) {
	var served atomic.Int32
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		n := served.Add(1)
		writeJSON(w, map[string]any{"books": []domain.Book{{ID: int(n)}}})
	})
	ctx := context.Background()

	first, err := f.svc.Books(ctx, "calibre", true)
	require.NoError(t, err)
	f.cache.Set(cache.BooksKey("replica"), []domain.Book{})

	refreshed, err := f.svc.Refresh(ctx, "calibre")
	require.NoError(t, err)
	assert.Equal(t, 1, first[0].ID)
	assert.Equal(t, 2, refreshed[0].ID)

	_, ok := library.NewQueries(f.cache).CachedBooks("replica")
	assert.False(t, ok, "refresh drops every listing")
}

func TestClearCache_DropsEveryFamily(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"books": []domain.Book{{ID: 1}}})
	})
	ctx := context.Background()

	_, err := f.svc.Books(ctx, "calibre", true)
	require.NoError(t, err)
	f.cache.Set(cache.CoverKey(1), []byte("jpeg"))

	f.svc.ClearCache()
	assert.Zero(t, f.cache.Len())

	_, err = f.svc.Books(ctx, "calibre", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load(), "listing is fetched again after clearing")
}
