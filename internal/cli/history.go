package cli

import (
	"github.com/spf13/cobra"

	"github.com/tkoster/circulate/internal/ledger"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <code>",
		Short: "Show every record for a coupon code",
		Long: `History prints all records carrying the given coupon code in sequence
order, oldest first.

Example:
  circulate history A100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

func runHistory(opts *RootOptions, cmd *cobra.Command, code string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	sess, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	records := ledger.History(sess.svc.Records(), ledger.NormalizeCode(code))

	if opts.Format == "json" {
		return formatter.Success(records)
	}

	renderRecords(cmd.OutOrStdout(), records)
	return nil
}
