package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/poller"
	"github.com/mmcdole/booksync/internal/tui"
	"github.com/mmcdole/booksync/internal/tui/styles"
)

func (c *CLI) newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run and watch the sync job",
	}
	cmd.AddCommand(c.newSyncTriggerCmd())
	cmd.AddCommand(c.newSyncStatusCmd())
	cmd.AddCommand(c.newSyncWatchCmd())
	return cmd
}

func (c *CLI) newSyncTriggerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Start a sync run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			resp, err := env.Sync.Trigger(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, resp); done {
				return err
			}

			w := cmd.OutOrStdout()
			switch {
			case resp.AlreadyRunning():
				_, _ = fmt.Fprintln(w, styles.InfoStyle.Render("A sync is already running"))
			case dryRun:
				_, _ = fmt.Fprintln(w, styles.SuccessStyle.Render("Dry run started"))
			default:
				_, _ = fmt.Fprintln(w, styles.SuccessStyle.Render("Sync started"))
			}
			return nil
		},
	}
	cmd.Flags().BoolP("dry-run", "n", false, "Report what would change without changing replicas")
	return cmd
}

func (c *CLI) newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync job status and last result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			status, err := env.Sync.Status(cmd.Context(), false)
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, status); done {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func printStatus(w io.Writer, status *domain.SyncStatusResponse) {
	_, _ = fmt.Fprintf(w, "%s %s\n", styles.Badge(status.State()), status.Status)
	if t, ok := status.LastSyncTime(); ok {
		field(w, "Last sync", t.Format("2006-01-02 15:04:05"))
	}
	result := status.Result()
	if len(result) > 0 {
		field(w, "Result", result.Summary().String())
		tw := newTable(w)
		for _, replica := range result.Replicas() {
			o := result[replica]
			name := domain.ReplicaDisplayName(replica)
			if o.Kind == domain.OutcomeError {
				_, _ = fmt.Fprintf(tw, "  %s\t%s\n", name, styles.ErrorStyle.Render(o.Err))
				continue
			}
			s := o.Stats
			_, _ = fmt.Fprintf(tw, "  %s\t+%d\t~%d\t-%d\t%d unchanged\t%d ignored\n",
				name, s.Added, s.Updated, s.Deleted, s.Unchanged, s.Ignored)
		}
		_ = tw.Flush()
	}
	if status.Details != nil && status.Details.Errors != "" {
		_, _ = fmt.Fprintln(w, styles.ErrorStyle.Render(status.Details.Errors))
	}
}

func (c *CLI) newSyncWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the sync job, polling fast while it runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			plain, _ := cmd.Flags().GetBool("plain")
			untilIdle, _ := cmd.Flags().GetBool("until-idle")

			if !plain && !untilIdle && !c.jsonOut && isTerminal(cmd.OutOrStdout()) {
				return runWatchTUI(cmd.Context(), env)
			}
			return runWatchPlain(cmd.Context(), env, cmd.OutOrStdout(), untilIdle)
		},
	}
	cmd.Flags().Bool("plain", false, "Print one line per poll instead of the interactive view")
	cmd.Flags().Bool("until-idle", false, "Exit at the first poll that finds no job running (implies --plain)")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runWatchTUI runs the poller under the bubbletea view. Client signals are
// routed to the view for its lifetime.
func runWatchTUI(ctx context.Context, env *Env) error {
	bridge := tui.NewBridge(64)
	if env.Relay != nil {
		prev := env.Relay.Attach(bridge)
		defer env.Relay.Attach(prev)
	}

	p := poller.New(env.Sync, env.Sync,
		poller.WithIntervals(env.Intervals),
		poller.WithLogger(env.Logger),
		poller.WithHandler(bridge.OnPoll),
	)
	task := p.Start(ctx)
	defer task.Stop()

	model := tui.NewModel(bridge, env.Sync, p.Kick, env.Intervals).WithClearCache(env.Library.ClearCache)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	env.Logger.Info("starting watch view")
	if _, err := program.Run(); err != nil {
		env.Logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runWatchPlain prints one line per poll until ctx is done. With untilIdle it
// returns at the first successful poll that finds no job running.
func runWatchPlain(ctx context.Context, env *Env, w io.Writer, untilIdle bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := poller.New(env.Sync, env.Sync,
		poller.WithIntervals(env.Intervals),
		poller.WithLogger(env.Logger),
		poller.WithHandler(func(ev poller.Event) {
			printEvent(w, ev)
			if untilIdle && ev.Status != nil && ev.State.LastKnown == domain.JobIdle {
				cancel()
			}
		}),
	)

	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printEvent(w io.Writer, ev poller.Event) {
	if ev.Status == nil {
		_, _ = fmt.Fprintf(w, "%s status unavailable: %s (next poll in %s)\n",
			styles.ErrorStyle.Render("✗"), domain.UserMessage(ev.Err), ev.State.Interval)
		return
	}
	line := fmt.Sprintf("%s %s", styles.Badge(ev.State.LastKnown), ev.Status.Status)
	if result := ev.Status.Result(); len(result) > 0 {
		line += "  last result: " + result.Summary().String()
	}
	_, _ = fmt.Fprintf(w, "%s (next poll in %s)\n", line, ev.State.Interval)

	switch {
	case ev.Err != nil:
		_, _ = fmt.Fprintf(w, "%s job finished, history unavailable: %s\n",
			styles.ErrorStyle.Render("✗"), domain.UserMessage(ev.Err))
	case ev.History != nil:
		st := ev.History.Stats
		_, _ = fmt.Fprintf(w, "%s %d runs, %d ok, %d failed\n",
			styles.SuccessStyle.Render("job finished:"), st.TotalSyncs, st.SuccessfulSyncs, st.FailedSyncs)
	}
}
