// Package app wires configuration into the client layer used by the CLI.
package app

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.trai.ch/zerr"

	"github.com/mmcdole/booksync/internal/adapter"
	"github.com/mmcdole/booksync/internal/cache"
	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/library"
	"github.com/mmcdole/booksync/internal/loading"
	"github.com/mmcdole/booksync/internal/search"
	"github.com/mmcdole/booksync/internal/store"
	"github.com/mmcdole/booksync/internal/syncjob"
	"github.com/mmcdole/booksync/internal/transport"
)

// Options are the global command-line settings that affect wiring
type Options struct {
	ConfigFile string
	LogLevel   string // overrides logging.level when set
	LogFile    string // overrides logging.file when set
	Version    string
	Stderr     io.Writer
}

// Components is everything a command needs, built once per invocation.
type Components struct {
	Config  *adapter.Config
	Logger  *slog.Logger
	Relay   *Relay
	Loading *loading.Counter
	Cache   *cache.Cache

	Library *library.Service
	Queries *library.Queries
	Search  *search.Service
	Sync    *syncjob.Client
	Viewer  *adapter.Viewer
	Console *Console // nil unless built by Build
}

// Build loads configuration and constructs the client layer. The returned
// cleanup releases the log file.
func Build(_ context.Context, opts Options) (*Components, func(), error) {
	cfg, err := adapter.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to load config")
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.Logging.File = opts.LogFile
	}

	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
		closer = nil
	}
	slog.SetDefault(logger)
	logger.Info("starting booksync", "version", opts.Version, "server", cfg.Server.URL)

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	console := NewConsole(stderr)
	c, err := New(cfg, logger, console, opts.Version)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}
	c.Console = console
	cleanup := func() {
		logger.Info("shutting down")
		if closer != nil {
			_ = closer.Close()
		}
	}
	return c, cleanup, nil
}

// New builds the client layer from a validated config. Notifications go to sink
// until another sink is attached to the relay.
func New(cfg *adapter.Config, logger *slog.Logger, sink Sink, version string) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient, err := adapter.HTTPClient(cfg.Server)
	if err != nil {
		return nil, err
	}

	relay := NewRelay(sink)
	counter := loading.NewCounter(relay)
	responses := cache.New(cfg.Cache.TTL)

	pipeline := transport.New(cfg.PipelineConfig(version),
		transport.WithLogger(logger),
		transport.WithNotifier(relay),
		transport.WithLoadingCounter(counter),
		transport.WithHTTPClient(httpClient),
	)

	lib := library.NewService(pipeline, responses, logger)
	queries := library.NewQueries(responses)

	return &Components{
		Config:  cfg,
		Logger:  logger,
		Relay:   relay,
		Loading: counter,
		Cache:   responses,
		Library: lib,
		Queries: queries,
		Search:  search.NewService(queries, logger),
		Sync: syncjob.New(pipeline, responses, logger,
			syncjob.WithHealthTimeout(cfg.Server.HealthTimeout),
			syncjob.WithHistoryLimit(cfg.Poll.HistoryLimit),
		),
		Viewer: adapter.NewViewer(cfg.Viewer, logger),
	}, nil
}

// ExportResult describes a history export
type ExportResult struct {
	Path    string
	Added   int
	Total   int
	Summary store.Summary
}

// ExportHistory reloads history from the server and merges it into the
// per-server archive file.
func (c *Components) ExportHistory(ctx context.Context) (*ExportResult, error) {
	snap, err := c.Sync.RefreshHistory(ctx)
	if err != nil {
		return nil, err
	}
	return ExportSnapshot(store.ArchivePath(c.Config.Archive.Dir, c.Config.Server.URL), c.Config.Server.URL, snap)
}

// ExportSnapshot writes snap into the archive at path
func ExportSnapshot(path, serverURL string, snap *domain.HistorySnapshot) (*ExportResult, error) {
	archive, err := store.OpenArchive(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = archive.Close() }()

	added, err := archive.Export(serverURL, snap)
	if err != nil {
		return nil, err
	}

	summary, _, err := archive.Summary()
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Path:    archive.Path(),
		Added:   added,
		Total:   summary.Runs,
		Summary: summary,
	}, nil
}
