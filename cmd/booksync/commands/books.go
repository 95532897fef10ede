package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/tui/styles"
)

func (c *CLI) newBooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Browse and manage the main library",
	}
	cmd.AddCommand(c.newBooksListCmd())
	cmd.AddCommand(c.newBooksShowCmd())
	cmd.AddCommand(c.newBooksCoverCmd())
	cmd.AddCommand(c.newBooksAddCmd())
	cmd.AddCommand(c.newBooksDeleteCmd())
	cmd.AddCommand(c.newBooksSearchCmd())
	return cmd
}

func (c *CLI) newBooksListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the books of a library location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			location, _ := cmd.Flags().GetString("location")
			refresh, _ := cmd.Flags().GetBool("refresh")

			var books []domain.Book
			if refresh {
				books, err = env.Library.Refresh(cmd.Context(), location)
			} else {
				books, err = env.Library.Books(cmd.Context(), location, true)
			}
			if err != nil {
				return err
			}

			if done, err := c.printJSON(cmd, books); done {
				return err
			}
			w := cmd.OutOrStdout()
			if len(books) == 0 {
				_, _ = fmt.Fprintln(w, styles.DimStyle.Render("No books"))
				return nil
			}
			tw := newTable(w)
			_, _ = fmt.Fprintln(tw, "ID\tTITLE\tAUTHORS\tFORMATS\tSIZE")
			for _, b := range books {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
					b.ID, styles.Truncate(b.Title, 50), styles.Truncate(b.AuthorLine(), 30),
					strings.Join(b.Formats, ","), b.FormattedSize)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(w, styles.DimStyle.Render(fmt.Sprintf("%d books", len(books))))
			return nil
		},
	}
	cmd.Flags().StringP("location", "l", domain.DefaultLocationID, "Library location")
	cmd.Flags().BoolP("refresh", "r", false, "Bypass the cache")
	return cmd
}

func (c *CLI) newBooksShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the metadata of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			refresh, _ := cmd.Flags().GetBool("refresh")

			meta, err := env.Library.Metadata(cmd.Context(), id, !refresh)
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, meta); done {
				return err
			}

			w := cmd.OutOrStdout()
			heading(w, meta.Title)
			field(w, "Authors", strings.Join(meta.Authors, ", "))
			field(w, "Series", meta.SeriesLine())
			field(w, "Publisher", meta.Publisher)
			field(w, "Published", meta.Published)
			field(w, "ISBN", meta.ISBN)
			field(w, "Language", meta.Language)
			field(w, "Tags", strings.Join(meta.Tags, ", "))
			if meta.Rating > 0 {
				field(w, "Rating", fmt.Sprintf("%g", meta.Rating))
			}
			if meta.Comments != "" {
				_, _ = fmt.Fprintln(w)
				_, _ = fmt.Fprintln(w, meta.Comments)
			}
			return nil
		},
	}
	cmd.Flags().BoolP("refresh", "r", false, "Bypass the cache")
	return cmd
}

func (c *CLI) newBooksCoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cover <id>",
		Short: "Download the cover image of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			open, _ := cmd.Flags().GetBool("open")

			data, err := env.Library.Cover(cmd.Context(), id)
			if err != nil {
				return err
			}

			if out == "" {
				name := fmt.Sprintf("booksync-cover-%d.jpg", id)
				if open {
					out = filepath.Join(os.TempDir(), name)
				} else {
					out = name
				}
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to write cover"), "path", out)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved cover to %s (%d bytes)\n", out, len(data))

			if open {
				return env.Viewer.Open(out)
			}
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default booksync-cover-<id>.jpg)")
	cmd.Flags().Bool("open", false, "Open the cover in the configured viewer")
	return cmd
}

func (c *CLI) newBooksAddCmd() *cobra.Command {
	var in domain.AddBookRequest

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Upload a book to the main library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to read book file"), "path", args[0])
			}
			in.File = &domain.BookFile{Name: filepath.Base(args[0]), Content: content}

			if in.Title == "" {
				in.Title = strings.TrimSuffix(in.File.Name, filepath.Ext(in.File.Name))
			}

			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			resp, err := env.Library.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, resp); done {
				return err
			}
			msg := resp.Message
			if msg == "" {
				msg = "Book added"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (ID %d)\n", styles.SuccessStyle.Render("✓"), msg, resp.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&in.Title, "title", "t", "", "Title (default: file name)")
	f.StringSliceVarP(&in.Authors, "author", "a", nil, "Author, repeatable")
	f.StringVar(&in.Publisher, "publisher", "", "Publisher")
	f.StringVar(&in.Published, "published", "", "Publication date")
	f.StringVar(&in.ISBN, "isbn", "", "ISBN")
	f.StringVar(&in.Language, "language", "", "Language code")
	f.StringVar(&in.Series, "series", "", "Series name")
	f.Float64Var(&in.SeriesIndex, "series-index", 0, "Position in the series")
	f.StringVar(&in.Comments, "comments", "", "Description")
	return cmd
}

func (c *CLI) newBooksDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book from the main library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseBookID(args[0])
			if err != nil {
				return err
			}
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return zerr.With(errNotConfirmed, "book_id", id)
			}
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}

			resp, err := env.Library.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if done, err := c.printJSON(cmd, resp); done {
				return err
			}
			msg := resp.Message
			if msg == "" {
				msg = "Book deleted"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styles.SuccessStyle.Render("✓"), msg)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Confirm the deletion")
	return cmd
}

func (c *CLI) newBooksSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Fuzzy-search titles and authors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.environment(cmd)
			if err != nil {
				return err
			}
			location, _ := cmd.Flags().GetString("location")
			limit, _ := cmd.Flags().GetInt("limit")
			query := strings.Join(args, " ")

			start := time.Now()
			// Populate the cache the filter reads from
			if _, err := env.Library.Books(cmd.Context(), location, true); err != nil {
				return err
			}
			results, _ := env.Search.FilterCached(query, location)
			env.Logger.Debug("search finished", "query", query, "results", len(results), "duration_ms", time.Since(start).Milliseconds())

			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}
			if done, err := c.printJSON(cmd, results); done {
				return err
			}

			w := cmd.OutOrStdout()
			if len(results) == 0 {
				_, _ = fmt.Fprintln(w, styles.DimStyle.Render("No matches"))
				return nil
			}
			tw := newTable(w)
			for _, r := range results {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
					r.Book.ID, highlight(r.Book.Title, r.MatchedIndexes), r.Book.AuthorLine(),
					styles.DimStyle.Render(string(r.Field)))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringP("location", "l", domain.DefaultLocationID, "Library location")
	cmd.Flags().IntP("limit", "n", 20, "Maximum results, 0 for all")
	return cmd
}

// highlight renders the runes starting at the matched byte offsets in the accent color
func highlight(s string, indexes []int) string {
	if len(indexes) == 0 {
		return s
	}
	matched := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		matched[i] = true
	}
	var b strings.Builder
	for i, r := range s {
		if matched[i] {
			b.WriteString(styles.AccentStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
