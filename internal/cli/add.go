package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkoster/circulate/internal/ledger"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Issued   string
	Redeemed string
	Remarks  string
}

// NewAddCommand creates the add command for manual record entry.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <code>",
		Short: "Manually enter a record",
		Long: `Add appends a manually entered record. This is the only way a brand-new
coupon code enters the ledger; afterwards the code participates in the
issue/redeem cycle like any other.

Example:
  circulate add A100 --issued 2024-01-01
  circulate add B200 --issued 2024-01-01 --redeemed 2024-01-15 --remarks "backfill"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Issued, "issued", "", "issue date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&opts.Redeemed, "redeemed", "", "redeem date (YYYY-MM-DD, optional)")
	cmd.Flags().StringVar(&opts.Remarks, "remarks", "", "free-text remarks")
	_ = cmd.MarkFlagRequired("issued")

	return cmd
}

func runAdd(opts *AddOptions, code string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	in := ledger.RecordInput{
		Code:       code,
		IssueDate:  opts.Issued,
		RedeemDate: opts.Redeemed,
		Remarks:    opts.Remarks,
	}
	if err := sess.svc.CreateManual(cmd.Context(), in); err != nil {
		return formatter.CommandError(err)
	}
	return formatter.Success(fmt.Sprintf("added record for %s", code))
}
