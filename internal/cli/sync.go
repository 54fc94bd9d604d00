package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotekeeper/internal/app"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle against the remote collection",
		Long: `Fetch the remote collection and append every quote whose text is not
already present, filed under the Server category. Local quotes always
survive. If the fetch fails the collection is left untouched and the
command exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			r, err := s.reconciler()
			if err != nil {
				return err
			}

			result := r.RunCycle(cmd.Context(), app.TriggerManual)

			err = newPrinter(rootOpts, cmd.OutOrStdout()).print(result, func(w io.Writer) {
				fmt.Fprintf(w, "fetched %d, added %d, total %d\n", result.Fetched, len(result.Added), result.Total)
				writeQuotes(w, result.Added)
			})
			if err != nil {
				return err
			}

			if result.Error != "" {
				return errors.New("sync failed: " + result.Error)
			}

			return nil
		},
	}
}
