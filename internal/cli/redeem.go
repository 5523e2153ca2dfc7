package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RedeemOptions holds flags for the redeem command.
type RedeemOptions struct {
	*RootOptions
	Date    string
	Remarks string
}

// NewRedeemCommand creates the redeem command.
func NewRedeemCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RedeemOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "redeem <code>",
		Short: "Take an outstanding coupon code back in",
		Long: `Redeem closes the latest open record for an outstanding coupon code by
setting its redeem date. Non-empty remarks replace the record's remarks.

Example:
  circulate redeem A100 --date 2024-02-20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRedeem(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "redeem date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&opts.Remarks, "remarks", "", "replacement remarks (optional)")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func runRedeem(opts *RedeemOptions, code string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.svc.Redeem(cmd.Context(), code, opts.Date, opts.Remarks); err != nil {
		return formatter.CommandError(err)
	}
	return formatter.Success(fmt.Sprintf("redeemed %s on %s", code, opts.Date))
}
