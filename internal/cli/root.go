// Package cli implements quotectl, an offline client that works directly on
// the configured quote storage.
package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Profile string
	Format  string // "text" | "json"
	Verbose bool

	// Version is printed by --version.
	Version string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the quotectl root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cmd := &cobra.Command{
		Use:     "quotectl",
		Short:   "Manage the quote collection",
		Version: version,
		Long: `quotectl reads and edits the quote collection in the storage the
service is configured with, and can run a sync cycle against the remote
collection without the HTTP service running.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Profile, "profile", profile, "config profile (configs/<profile>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr at debug level")

	cmd.AddCommand(
		NewRandomCommand(opts),
		NewListCommand(opts),
		NewCategoriesCommand(opts),
		NewAddCommand(opts),
		NewFilterCommand(opts),
		NewExportCommand(opts),
		NewImportCommand(opts),
		NewSyncCommand(opts),
	)

	return cmd
}
