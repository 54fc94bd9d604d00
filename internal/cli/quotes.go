package cli

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

// NewRandomCommand creates the random command.
func NewRandomCommand(rootOpts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Print a random quote",
		Long: `Print a random quote from --category. Without --category the stored
filter applies, as it does in the web client.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			if category == "" {
				category, _ = s.store.LastFilter(cmd.Context())
			}

			q, err := s.store.Random(category)
			if err != nil {
				return fmt.Errorf("no quotes in category %q", cmp.Or(category, domain.FilterAll))
			}

			return newPrinter(rootOpts, cmd.OutOrStdout()).print(q, func(w io.Writer) { writeQuote(w, q) })
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category to pick from")

	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			quotes := s.store.Filter(category)

			return newPrinter(rootOpts, cmd.OutOrStdout()).print(quotes, func(w io.Writer) { writeQuotes(w, quotes) })
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", domain.FilterAll, "only quotes in this category")

	return cmd
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories in first-seen order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			categories := s.store.Categories()

			return newPrinter(rootOpts, cmd.OutOrStdout()).print(categories, func(w io.Writer) {
				fmt.Fprintln(w, strings.Join(categories, "\n"))
			})
		},
	}
}

// addResult is the JSON output of add.
type addResult struct {
	Quote    domain.Quote     `json:"quote"`
	Upstream *ports.RemoteAck `json:"upstream,omitempty"`
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		category string
		post     bool
	)

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a quote",
		Long: `Add a quote to the collection. Text and category are trimmed and must
not be blank. With --post the quote is also sent to the remote collection;
a failed post is reported but does not undo the add.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			q, err := s.store.Append(cmd.Context(), domain.Quote{Text: args[0], Category: category})
			if err != nil {
				return err
			}

			result := addResult{Quote: q}

			if post {
				r, err := s.reconciler()
				if err != nil {
					return err
				}

				result.Upstream = r.PostQuote(cmd.Context(), q)
			}

			return newPrinter(rootOpts, cmd.OutOrStdout()).print(result, func(w io.Writer) {
				fmt.Fprint(w, "added: ")
				writeQuote(w, q)

				switch {
				case !post:
				case result.Upstream == nil:
					fmt.Fprintln(w, "upstream post failed")
				default:
					fmt.Fprintf(w, "posted upstream as id %s\n", result.Upstream.ID)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category for the quote (required)")
	cmd.Flags().BoolVar(&post, "post", false, "also post the quote to the remote collection")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

// filterResult is the JSON output of filter.
type filterResult struct {
	Category string `json:"category"`
	Stored   bool   `json:"stored"`
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filter [category]",
		Short: "Show or set the stored category filter",
		Long: `Without an argument, print the stored category filter. With one, store
it. The category must be "all" or one that currently exists.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			var result filterResult

			if len(args) == 0 {
				category, ok := s.store.LastFilter(cmd.Context())
				result = filterResult{Category: cmp.Or(category, domain.FilterAll), Stored: ok}
			} else {
				category := cmp.Or(strings.TrimSpace(args[0]), domain.FilterAll)
				if category != domain.FilterAll && !slices.Contains(s.store.Categories(), category) {
					return fmt.Errorf("unknown category %q", category)
				}

				if err := s.store.SetLastFilter(cmd.Context(), category); err != nil {
					return err
				}

				result = filterResult{Category: category, Stored: true}
			}

			return newPrinter(rootOpts, cmd.OutOrStdout()).print(result, func(w io.Writer) {
				fmt.Fprintln(w, result.Category)
			})
		},
	}
}
