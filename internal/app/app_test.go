package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mmcdole/booksync/internal/adapter"
	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/domain/mocks"
)

type recordingSink struct {
	messages []string
	loading  []bool
}

func (r *recordingSink) Notify(message string, _ domain.Severity) {
	r.messages = append(r.messages, message)
}

func (r *recordingSink) LoadingChanged(loading bool) {
	r.loading = append(r.loading, loading)
}

func TestRelay_ForwardsToAttachedSink(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	relay := NewRelay(first)

	relay.Notify("one", domain.SeverityInfo)
	prev := relay.Attach(second)
	relay.Notify("two", domain.SeverityError)
	relay.LoadingChanged(true)

	assert.Same(t, first, prev)
	assert.Equal(t, []string{"one"}, first.messages)
	assert.Equal(t, []string{"two"}, second.messages)
	assert.Equal(t, []bool{true}, second.loading)
}

func TestRelay_NilSinkIsSilent(t *testing.T) {
	relay := NewRelay(nil)

	assert.NotPanics(t, func() {
		relay.Notify("dropped", domain.SeverityInfo)
		relay.LoadingChanged(false)
	})
}

func TestRelay_WithMockNotifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	observer := mocks.NewMockLoadingObserver(ctrl)

	notifier.EXPECT().Notify("saved", domain.SeveritySuccess)
	observer.EXPECT().LoadingChanged(true)

	relay := NewRelay(struct {
		domain.Notifier
		domain.LoadingObserver
	}{notifier, observer})

	relay.Notify("saved", domain.SeveritySuccess)
	relay.LoadingChanged(true)
}

func TestConsole_PrintsOneLinePerNotice(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Notify("Sync started", domain.SeveritySuccess)
	c.Notify("Server error", domain.SeverityError)
	c.LoadingChanged(true)

	out := buf.String()
	assert.Contains(t, out, "Sync started")
	assert.Contains(t, out, "Server error")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}

func testConfig(t *testing.T, serverURL string) *adapter.Config {
	t.Helper()
	cfg := adapter.DefaultConfig()
	cfg.Server.URL = serverURL
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Archive.Dir = t.TempDir()
	return cfg
}

func TestNew_WiresPipelineToRelay(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/libraries/calibre/books", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"unknown location"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sink := &recordingSink{}
	c, err := New(testConfig(t, srv.URL), adapter.NullLogger(), sink, "test")
	require.NoError(t, err)

	_, err = c.Library.Books(context.Background(), "", true)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPermanent)
	assert.Equal(t, []string{"unknown location"}, sink.messages)
	assert.Equal(t, []bool{true, false}, sink.loading)
	assert.Equal(t, 0, c.Loading.Count())
}

func TestNew_SearchSeesCachedListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/libraries/calibre/books", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"books":[{"id":1,"title":"Dune","authors":["Frank Herbert"]},{"id":2,"title":"Emma","authors":["Jane Austen"]}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(testConfig(t, srv.URL), adapter.NullLogger(), nil, "test")
	require.NoError(t, err)

	_, ok := c.Search.FilterCached("dune", "calibre")
	assert.False(t, ok)

	_, err = c.Library.Books(context.Background(), "", true)
	require.NoError(t, err)

	results, ok := c.Search.FilterCached("dune", "calibre")
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Book.ID)
}

func TestExportHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/sync/history", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"timestamp":"2024-05-01T10:00:00","status":"success"},{"id":2,"timestamp":"2024-05-02T10:00:00","status":"failed"}]`))
	})
	mux.HandleFunc("GET /api/v1/sync/history/stats", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"total_syncs":2,"successful_syncs":1,"failed_syncs":1,"average_duration":3}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	c, err := New(cfg, adapter.NullLogger(), nil, "test")
	require.NoError(t, err)

	res, err := c.ExportHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, srv.URL, res.Summary.Server)
	assert.Equal(t, 2, res.Summary.Stats.TotalSyncs)
	assert.Equal(t, cfg.Archive.Dir, filepath.Dir(filepath.Dir(res.Path)))

	// a second export merges by run ID
	again, err := c.ExportHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Added)
	assert.Equal(t, 2, again.Total)
}

func TestBuild_MissingConfigFile(t *testing.T) {
	_, _, err := Build(context.Background(), Options{ConfigFile: filepath.Join(t.TempDir(), "absent.yaml")})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to load config")
}

func TestNew_BadCAFile(t *testing.T) {
	cfg := testConfig(t, "https://nas.local")
	cfg.Server.CAFile = filepath.Join(t.TempDir(), "missing.pem")

	_, err := New(cfg, adapter.NullLogger(), nil, "test")

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to read CA file")
}
