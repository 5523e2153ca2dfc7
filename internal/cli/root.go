package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string // local SQLite path
	Remote     string // websocket gateway URL, overrides Database when set
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the circulate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "circulate",
		Short: "Track reusable coupon codes through issuance and redemption",
		Long: `circulate keeps an append-style ledger of coupon issuance and redemption
records and derives, at any moment, which codes are outstanding and which are
available for reissue.

Records live in a local SQLite database by default, or behind a realtime sync
gateway when --remote is given.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			// Flags win over config values.
			if !cmd.Flags().Changed("db") && cfg.Database != "" {
				opts.Database = cfg.Database
			}
			if !cmd.Flags().Changed("remote") && cfg.Remote != "" {
				opts.Remote = cfg.Remote
			}

			logLevel := slog.LevelWarn
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "circulate.db", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Remote, "remote", "", "websocket URL of a sync gateway")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to yaml config file")

	// Add subcommands
	cmd.AddCommand(NewIssueCommand(opts))
	cmd.AddCommand(NewRedeemCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewRmCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewCodesCommand(opts, "available"))
	cmd.AddCommand(NewCodesCommand(opts, "outstanding"))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
