package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/mmcdole/booksync/internal/tui/styles"
)

var errNotConfirmed = zerr.New("refusing without --yes")

// printJSON writes v as indented JSON when --json is set. The bool reports whether it did.
func (c *CLI) printJSON(cmd *cobra.Command, v any) (bool, error) {
	if !c.jsonOut {
		return false, nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return true, zerr.Wrap(err, "failed to encode output")
	}
	return true, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func heading(w io.Writer, text string) {
	_, _ = fmt.Fprintln(w, styles.TitleStyle.Render(text))
}

func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", styles.SubtitleStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
}

func parseBookID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, zerr.With(zerr.New("book ID must be a number"), "arg", arg)
	}
	return id, nil
}
