package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// IssueOptions holds flags for the issue command.
type IssueOptions struct {
	*RootOptions
	Date    string
	Remarks string
}

// NewIssueCommand creates the issue command.
func NewIssueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IssueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "issue <code>",
		Short: "Hand out an available coupon code",
		Long: `Issue appends a new open record for a coupon code whose latest record has
been redeemed. A code that is still outstanding cannot be issued again, and a
code with no prior records must be entered with "add" first.

Example:
  circulate issue A100 --date 2024-02-01 --remarks "given to Ms. Zhou"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssue(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "issue date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&opts.Remarks, "remarks", "", "free-text remarks (name, phone, ...)")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func runIssue(opts *IssueOptions, code string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.svc.Issue(cmd.Context(), code, opts.Date, opts.Remarks); err != nil {
		return formatter.CommandError(err)
	}
	return formatter.Success(fmt.Sprintf("issued %s on %s", code, opts.Date))
}
