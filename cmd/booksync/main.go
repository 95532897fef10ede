// Package main is the entry point for the booksync command.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmcdole/booksync/cmd/booksync/commands"
	"github.com/mmcdole/booksync/internal/tui/styles"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, commands.DefaultBuilder))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, build commands.Builder) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New(Version, build)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		if msg := cli.ErrorText(err); msg != "" {
			_, _ = fmt.Fprintln(stderr, styles.ErrorStyle.Render("Error: "+msg))
		}
		return 1
	}
	return 0
}
