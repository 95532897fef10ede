package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/mmcdole/booksync/internal/tui/styles"
)

var errUnhealthy = zerr.New("server reported unhealthy")

func (c *CLI) newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the main library against every replica",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			refresh, _ := cmd.Flags().GetBool("refresh")
			books, _ := cmd.Flags().GetBool("books")

			result, err := env.Sync.Compare(cmd.Context(), !refresh)
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, result); done {
				return err
			}

			w := cmd.OutOrStdout()
			field(w, "Library", result.CurrentLibraryPath)
			tw := newTable(w)
			_, _ = fmt.Fprintln(tw, "REPLICA\tONLY IN LIBRARY\tONLY IN REPLICA\tCOMMON\tNOTE")
			for _, r := range result.Replicas {
				if r.Failed() {
					_, _ = fmt.Fprintf(tw, "%s\t-\t-\t-\t%s\n", r.Name, styles.ErrorStyle.Render(r.Error))
					continue
				}
				_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n",
					r.Name, r.UniqueToMainLibrary, r.UniqueToReplica, r.CommonBooks, r.Note)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if books {
				for _, r := range result.Replicas {
					for _, b := range r.UniqueToMainLibraryBooks {
						_, _ = fmt.Fprintf(w, "  %s %s: %s (%s)\n", styles.AccentStyle.Render("+"), r.Name, b.Title, b.AuthorLine())
					}
					for _, b := range r.UniqueToReplicaBooks {
						_, _ = fmt.Fprintf(w, "  %s %s: %s (%s)\n", styles.ErrorStyle.Render("-"), r.Name, b.Title, b.AuthorLine())
					}
				}
			}
			_, _ = fmt.Fprintln(w, styles.DimStyle.Render(fmt.Sprintf("%d differences", result.TotalDifferences())))
			return nil
		},
	}
	cmd.Flags().BoolP("refresh", "r", false, "Bypass the cache")
	cmd.Flags().Bool("books", false, "List the differing books")
	return cmd
}

func (c *CLI) newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			health, err := env.Sync.Health(cmd.Context())
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, health); done {
				return err
			}
			if !health.Healthy() {
				return zerr.With(errUnhealthy, "status", health.Status)
			}
			line := styles.SuccessStyle.Render("✓") + " server is " + health.Status
			if health.Status == "" {
				line = styles.SuccessStyle.Render("✓") + " server is up"
			}
			if health.Version != "" {
				line += " (version " + health.Version + ")"
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
}
