package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/transfer"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the collection as a JSON document",
		Long: `Write every quote as an indented JSON array, to stdout or to --out.
The document can be read back by import and by the web client.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			quotes := s.store.Snapshot()

			if out == "" || out == "-" {
				return transfer.Export(cmd.OutOrStdout(), quotes)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}

			if err := transfer.Export(f, quotes); err != nil {
				_ = f.Close()
				return err
			}

			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", out, err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d quotes to %s\n", len(quotes), out)

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")

	return cmd
}

// importResult is the JSON output of import.
type importResult struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
	Posted   int `json:"posted,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var post bool

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Append quotes from a JSON document",
		Long: `Append every quote of a JSON array to the collection, in document
order. Nothing is stored unless every entry has a non-blank text and
category. Use - to read stdin. With --post the imported quotes are also
sent to the remote collection.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			var r io.Reader = cmd.InOrStdin()

			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening %s: %w", args[0], err)
				}
				defer f.Close()

				r = f
			}

			added, err := transfer.Import(cmd.Context(), io.LimitReader(r, transfer.MaxDocumentBytes), s.store)
			if err != nil {
				return err
			}

			result := importResult{Imported: len(added), Total: len(s.store.Snapshot())}

			if post && len(added) > 0 {
				rec, err := s.reconciler()
				if err != nil {
					return err
				}

				result.Posted = rec.PostQuotes(cmd.Context(), added)
			}

			return newPrinter(rootOpts, cmd.OutOrStdout()).print(result, func(w io.Writer) {
				fmt.Fprintf(w, "imported %d quotes, %d total\n", result.Imported, result.Total)

				if post {
					fmt.Fprintf(w, "posted %d of %d upstream\n", result.Posted, result.Imported)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&post, "post", false, "also post imported quotes to the remote collection")

	return cmd
}
