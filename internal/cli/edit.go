package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tkoster/circulate/internal/ledger"
)

// EditOptions holds flags for the edit command.
type EditOptions struct {
	*RootOptions
	Code     string
	Issued   string
	Redeemed string
	Remarks  string
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <seq>",
		Short: "Rewrite the fields of an existing record",
		Long: `Edit replaces every user-editable field of the record with the given
sequence number. Flags left unset clear the corresponding field, so pass the
full intended state of the record.

Example:
  circulate edit 12 --code A100 --issued 2024-01-03 --redeemed 2024-01-20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid sequence number %q", args[0]))
			}
			return runEdit(opts, seq, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Code, "code", "", "coupon code (required)")
	cmd.Flags().StringVar(&opts.Issued, "issued", "", "issue date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&opts.Redeemed, "redeemed", "", "redeem date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Remarks, "remarks", "", "free-text remarks")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("issued")

	return cmd
}

func runEdit(opts *EditOptions, seq int64, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	in := ledger.RecordInput{
		Code:       opts.Code,
		IssueDate:  opts.Issued,
		RedeemDate: opts.Redeemed,
		Remarks:    opts.Remarks,
	}
	if err := sess.svc.UpdateManual(cmd.Context(), seq, in); err != nil {
		return formatter.CommandError(err)
	}
	return formatter.Success(fmt.Sprintf("updated record %d", seq))
}
