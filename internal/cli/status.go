package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkoster/circulate/internal/ledger"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <code>",
		Short: "Show the derived status of a coupon code",
		Long: `Status reports whether a coupon code is outstanding, available, or unknown,
based on its most recent record.

Example:
  circulate status A100`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

type statusReport struct {
	Code   string         `json:"couponCode"`
	Status string         `json:"status"`
	Latest *ledger.Record `json:"latest,omitempty"`
}

func runStatus(opts *RootOptions, cmd *cobra.Command, code string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	sess, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	code = ledger.NormalizeCode(code)
	records := sess.svc.Records()
	status := ledger.StatusOf(records, code)

	report := statusReport{Code: code, Status: status.String()}
	if latest, ok := ledger.Latest(records, code); ok {
		report.Latest = &latest
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", report.Code, report.Status)
	if report.Latest != nil {
		r := report.Latest
		fmt.Fprintf(cmd.OutOrStdout(), "latest: seq %d issued %s", r.Seq, r.IssueDate)
		if r.Redeemed() {
			fmt.Fprintf(cmd.OutOrStdout(), " redeemed %s", r.RedeemDate)
		}
		if r.Remarks != "" {
			fmt.Fprintf(cmd.OutOrStdout(), " (%s)", r.Remarks)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
