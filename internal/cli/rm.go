package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tkoster/circulate/internal/ledger"
)

// RmOptions holds flags for the rm command.
type RmOptions struct {
	*RootOptions
	Force bool
}

// NewRmCommand creates the rm command.
func NewRmCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RmOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rm <seq>",
		Short: "Delete a record",
		Long: `Rm removes a single record from the ledger. Removing the latest record of
an outstanding code silently returns that code to the available pool even
though the physical coupon is still out, so that case demands --force.

Example:
  circulate rm 12
  circulate rm 12 --force`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid sequence number %q", args[0]))
			}
			return runRm(opts, seq, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "delete even when the record is an open issuance")

	return cmd
}

func runRm(opts *RmOptions, seq int64, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	if !opts.Force {
		if target, ok := openIssuance(sess.svc.Records(), seq); ok {
			return formatter.Error(ExitFailure, "OPEN_ISSUANCE",
				fmt.Sprintf("record %d is the open issuance of %s; redeem it first or pass --force", seq, target))
		}
	}

	if err := sess.svc.Delete(cmd.Context(), seq); err != nil {
		return formatter.CommandError(err)
	}
	return formatter.Success(fmt.Sprintf("deleted record %d", seq))
}

// openIssuance reports whether seq is the latest record of its code and that
// record is still outstanding. Deleting such a record flips the code's
// derived status while the coupon is physically out.
func openIssuance(records []ledger.Record, seq int64) (code string, open bool) {
	for _, r := range records {
		if r.Seq != seq {
			continue
		}
		latest, ok := ledger.Latest(records, r.Code)
		if ok && latest.Seq == seq && latest.Outstanding() {
			return r.Code, true
		}
		return "", false
	}
	return "", false
}
