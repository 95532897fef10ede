// Package syncjob is the Sync Client: it triggers and inspects the
// server's synchronization job, its history and the library comparison.
package syncjob

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/booksync/internal/cache"
	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/transport"
)

// DefaultHistoryLimit is the number of runs loaded by RefreshHistory
const DefaultHistoryLimit = 20

// API is the part of the request pipeline the sync client needs
type API interface {
	Do(ctx context.Context, req *transport.Request) (*transport.Response, error)
	InvalidResponse(req *transport.Request, cause error) *domain.Error
}

// Client talks to the sync endpoints.
type Client struct {
	api           API
	cache         *cache.Cache
	logger        *slog.Logger
	clock         clockwork.Clock
	healthTimeout time.Duration
	historyLimit  int
}

// Option configures a Client
type Option func(*Client)

// WithClock sets the clock used to stamp history snapshots
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithHealthTimeout overrides the health check timeout
func WithHealthTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.healthTimeout = d
		}
	}
}

// WithHistoryLimit sets how many runs RefreshHistory loads
func WithHistoryLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

// New creates a sync client sharing the given cache with the book client.
func New(api API, c *cache.Cache, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.New(cache.DefaultTTL)
	}
	client := &Client{
		api:           api,
		cache:         c,
		logger:        logger,
		clock:         clockwork.NewRealClock(),
		healthTimeout: transport.HealthTimeout,
		historyLimit:  DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Trigger starts a sync run. A run already in progress is reported as
// SyncStatusAlreadyRunning rather than an error.
func (c *Client) Trigger(ctx context.Context, dryRun bool) (*domain.SyncStatusResponse, error) {
	req := &transport.Request{
		Op:     "sync.trigger",
		Method: http.MethodPost,
		Path:   "/sync/trigger",
		Query:  url.Values{"dry_run": {strconv.FormatBool(dryRun)}},
		Body:   []byte("{}"),
	}
	var out domain.SyncStatusResponse
	if err := c.decode(ctx, req, &out); err != nil {
		return nil, err
	}

	n := c.cache.Invalidate(cache.FamilyBooks, cache.FamilyStatus)
	c.logger.Info("sync triggered", "dry_run", dryRun, "status", out.Status, "invalidated", n)
	return &out, nil
}

// Status fetches the job status. Failures are never shown to the user.
func (c *Client) Status(ctx context.Context, useCache bool) (*domain.SyncStatusResponse, error) {
	if useCache {
		if st, ok := cache.Lookup[*domain.SyncStatusResponse](c.cache, cache.FamilyStatus); ok {
			return st, nil
		}
	}

	req := &transport.Request{
		Op:         "sync.status",
		Method:     http.MethodGet,
		Path:       "/sync/status",
		Background: true,
	}
	var out domain.SyncStatusResponse
	if err := c.decode(ctx, req, &out); err != nil {
		return nil, err
	}
	c.cache.Set(cache.FamilyStatus, &out)
	return &out, nil
}

// Compare diffs the primary library against every replica.
func (c *Client) Compare(ctx context.Context, useCache bool) (*domain.ComparisonResult, error) {
	if useCache {
		if res, ok := cache.Lookup[*domain.ComparisonResult](c.cache, cache.FamilyCompare); ok {
			return res, nil
		}
	}

	req := &transport.Request{
		Op:     "sync.compare",
		Method: http.MethodGet,
		Path:   "/libraries/compare-all",
	}
	var out domain.ComparisonResult
	if err := c.decode(ctx, req, &out); err != nil {
		return nil, err
	}
	c.cache.Set(cache.FamilyCompare, &out)
	c.logger.Debug("compared libraries", "replicas", len(out.Replicas), "differences", out.TotalDifferences())
	return &out, nil
}

// History lists recorded runs, newest first. limit <= 0 lets the server decide.
func (c *Client) History(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	req := &transport.Request{
		Op:     "sync.history",
		Method: http.MethodGet,
		Path:   "/sync/history",
	}
	if limit > 0 {
		req.Query = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var out []domain.HistoryEntry
	if err := c.decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns aggregate history statistics
func (c *Client) Stats(ctx context.Context) (*domain.HistoryStats, error) {
	req := &transport.Request{
		Op:     "sync.stats",
		Method: http.MethodGet,
		Path:   "/sync/history/stats",
	}
	var out domain.HistoryStats
	if err := c.decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Latest returns the most recent run, or nil when there is none
func (c *Client) Latest(ctx context.Context) (*domain.HistoryEntry, error) {
	req := &transport.Request{
		Op:     "sync.latest",
		Method: http.MethodGet,
		Path:   "/sync/history/latest",
	}
	var out *domain.HistoryEntry
	if err := c.decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClearHistory deletes all recorded runs
func (c *Client) ClearHistory(ctx context.Context) error {
	if _, err := c.api.Do(ctx, &transport.Request{
		Op:     "sync.clear_history",
		Method: http.MethodDelete,
		Path:   "/sync/history",
	}); err != nil {
		return err
	}
	c.cache.Invalidate(cache.FamilyStatus)
	c.logger.Info("cleared sync history")
	return nil
}

// Health checks server liveness at the server root with a short timeout.
func (c *Client) Health(ctx context.Context) (*domain.HealthStatus, error) {
	resp, err := c.api.Do(ctx, &transport.Request{
		Op:      "health",
		Method:  http.MethodGet,
		Path:    "/health",
		Root:    true,
		Timeout: c.healthTimeout,
	})
	if err != nil {
		return nil, err
	}

	// Some deployments answer with plain text
	var out domain.HealthStatus
	if err := resp.Decode(&out); err != nil {
		out.Status = "ok"
	}
	return &out, nil
}

// RefreshHistory loads history and stats together.
func (c *Client) RefreshHistory(ctx context.Context) (*domain.HistorySnapshot, error) {
	var (
		entries []domain.HistoryEntry
		stats   *domain.HistoryStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = c.History(gctx, c.historyLimit)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = c.Stats(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug("refreshed history", "entries", len(entries), "total_syncs", stats.TotalSyncs)
	return &domain.HistorySnapshot{
		Entries:  entries,
		Stats:    *stats,
		LoadedAt: c.clock.Now(),
	}, nil
}

func (c *Client) decode(ctx context.Context, req *transport.Request, v any) error {
	resp, err := c.api.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Decode(v); err != nil {
		return c.api.InvalidResponse(req, err)
	}
	return nil
}
