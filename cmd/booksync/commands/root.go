// Package commands implements the booksync command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmcdole/booksync/internal/app"
	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/poller"
	"github.com/mmcdole/booksync/internal/search"
)

// Library is the Book Client surface used by the commands
type Library interface {
	Books(ctx context.Context, locationID string, useCache bool) ([]domain.Book, error)
	Metadata(ctx context.Context, bookID int, useCache bool) (*domain.BookMetadata, error)
	Cover(ctx context.Context, bookID int) ([]byte, error)
	Add(ctx context.Context, in domain.AddBookRequest) (*domain.AddBookResponse, error)
	Delete(ctx context.Context, bookID int) (*domain.DeleteBookResponse, error)
	Refresh(ctx context.Context, locationID string) ([]domain.Book, error)
	ClearCache()
}

// Sync is the Sync Client surface used by the commands
type Sync interface {
	Trigger(ctx context.Context, dryRun bool) (*domain.SyncStatusResponse, error)
	Status(ctx context.Context, useCache bool) (*domain.SyncStatusResponse, error)
	Compare(ctx context.Context, useCache bool) (*domain.ComparisonResult, error)
	History(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
	Stats(ctx context.Context) (*domain.HistoryStats, error)
	Latest(ctx context.Context) (*domain.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
	Health(ctx context.Context) (*domain.HealthStatus, error)
	RefreshHistory(ctx context.Context) (*domain.HistorySnapshot, error)
}

// Searcher filters cached listings
type Searcher interface {
	FilterCached(query, locationID string) ([]search.Result, bool)
}

// Opener opens a local file in an external program
type Opener interface {
	Open(path string) error
}

// Env is what the commands run against.
type Env struct {
	Library   Library
	Sync      Sync
	Search    Searcher
	Viewer    Opener
	Relay     *app.Relay
	Intervals poller.Intervals
	Export    func(ctx context.Context) (*app.ExportResult, error)
	Logger    *slog.Logger

	// Reported reports whether a message was already shown to the user. May be nil.
	Reported func(message string) bool
}

// Builder constructs the Env for one invocation. cleanup may be nil.
type Builder func(ctx context.Context, opts app.Options) (env *Env, cleanup func(), err error)

// DefaultBuilder wires the real client layer from configuration
func DefaultBuilder(ctx context.Context, opts app.Options) (*Env, func(), error) {
	c, cleanup, err := app.Build(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return &Env{
		Library:   c.Library,
		Sync:      c.Sync,
		Search:    c.Search,
		Viewer:    c.Viewer,
		Relay:     c.Relay,
		Intervals: c.Config.PollIntervals(),
		Export:    c.ExportHistory,
		Logger:    c.Logger,
		Reported:  c.Console.Printed,
	}, cleanup, nil
}

// CLI represents the booksync command line
type CLI struct {
	version string
	build   Builder
	rootCmd *cobra.Command

	opts    app.Options
	jsonOut bool
	env     *Env
	cleanup func()
}

// New creates the command tree. build is called lazily by the first command that needs the server.
func New(version string, build Builder) *CLI {
	if build == nil {
		build = DefaultBuilder
	}

	rootCmd := &cobra.Command{
		Use:           "booksync",
		Short:         "Drive a library sync server from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		version: version,
		build:   build,
		rootCmd: rootCmd,
	}
	c.opts.Version = version

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.opts.ConfigFile, "config", "", "Config file (default ~/.config/booksync/config.yaml)")
	pf.StringVar(&c.opts.LogLevel, "log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")
	pf.StringVar(&c.opts.LogFile, "log-file", "", `Log file, "-" for stderr`)
	pf.BoolVar(&c.jsonOut, "json", false, "Print JSON instead of text")

	rootCmd.AddCommand(c.newBooksCmd())
	rootCmd.AddCommand(c.newSyncCmd())
	rootCmd.AddCommand(c.newCompareCmd())
	rootCmd.AddCommand(c.newHistoryCmd())
	rootCmd.AddCommand(c.newHealthCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	defer func() {
		if c.cleanup != nil {
			c.cleanup()
		}
	}()
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// ErrorText returns what to print for err, or "" when the user already saw it.
func (c *CLI) ErrorText(err error) string {
	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	if c.env != nil && c.env.Reported != nil && c.env.Reported(msg) {
		return ""
	}
	return msg
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// environment builds the Env on first use
func (c *CLI) environment(cmd *cobra.Command) (*Env, error) {
	if c.env != nil {
		return c.env, nil
	}
	opts := c.opts
	opts.Stderr = cmd.ErrOrStderr()

	env, cleanup, err := c.build(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	c.env, c.cleanup = env, cleanup
	return env, nil
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "booksync version %s\n", c.version)
		},
	}
}
