package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/tui/styles"
)

func (c *CLI) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded sync runs",
	}
	cmd.AddCommand(c.newHistoryListCmd())
	cmd.AddCommand(c.newHistoryStatsCmd())
	cmd.AddCommand(c.newHistoryLatestCmd())
	cmd.AddCommand(c.newHistoryClearCmd())
	cmd.AddCommand(c.newHistoryExportCmd())
	return cmd
}

func (c *CLI) newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			entries, err := env.Sync.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, entries); done {
				return err
			}

			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(w, styles.DimStyle.Render("No sync runs recorded"))
				return nil
			}
			tw := newTable(w)
			_, _ = fmt.Fprintln(tw, "ID\tTIME\tSTATUS\tMODE\tDURATION\tRESULT")
			for _, e := range entries {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1fs\t%s\n",
					e.ID, e.Timestamp, e.Status, runMode(e), e.Duration, e.Result.Summary())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of runs, 0 for the server default")
	return cmd
}

func runMode(e domain.HistoryEntry) string {
	if e.DryRun {
		return "dry run"
	}
	return "sync"
}

func (c *CLI) newHistoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate run statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			stats, err := env.Sync.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, stats); done {
				return err
			}
			printStats(cmd.OutOrStdout(), *stats)
			return nil
		},
	}
}

func printStats(w io.Writer, st domain.HistoryStats) {
	field(w, "Runs", fmt.Sprint(st.TotalSyncs))
	field(w, "Successful", fmt.Sprint(st.SuccessfulSyncs))
	field(w, "Failed", fmt.Sprint(st.FailedSyncs))
	field(w, "Avg time", fmt.Sprintf("%.1fs", st.AverageDuration))
}

func (c *CLI) newHistoryLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			entry, err := env.Sync.Latest(cmd.Context())
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, entry); done {
				return err
			}

			w := cmd.OutOrStdout()
			if entry == nil {
				_, _ = fmt.Fprintln(w, styles.DimStyle.Render("No sync runs recorded"))
				return nil
			}
			heading(w, fmt.Sprintf("Run #%d", entry.ID))
			field(w, "Time", entry.Timestamp)
			field(w, "Status", entry.Status)
			field(w, "Mode", runMode(*entry))
			field(w, "Duration", fmt.Sprintf("%.1fs", entry.Duration))
			field(w, "Result", entry.Result.Summary().String())
			for _, replica := range entry.Result.Replicas() {
				o := entry.Result[replica]
				if o.Kind == domain.OutcomeError {
					_, _ = fmt.Fprintf(w, "  %s: %s\n", domain.ReplicaDisplayName(replica), styles.ErrorStyle.Render(o.Err))
				}
			}
			if entry.Errors != "" {
				_, _ = fmt.Fprintln(w, styles.ErrorStyle.Render(entry.Errors))
			}
			return nil
		},
	}
}

func (c *CLI) newHistoryClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errNotConfirmed
			}
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			if err := env.Sync.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s History cleared\n", styles.SuccessStyle.Render("✓"))
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Confirm clearing history")
	return cmd
}

func (c *CLI) newHistoryExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Save history into the local archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			res, err := env.Export(cmd.Context())
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, res); done {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %d new runs (%d archived) to %s\n",
				styles.SuccessStyle.Render("✓"), res.Added, res.Total, res.Path)
			return nil
		},
	}
}
