package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkoster/circulate/internal/ledger"
)

// NewCodesCommand creates the available or outstanding command, both of which
// print a derived set of coupon codes one per line.
func NewCodesCommand(rootOpts *RootOptions, name string) *cobra.Command {
	var short, long string
	var derive func([]ledger.Record) []string

	switch name {
	case "available":
		short = "List codes whose latest record is redeemed"
		long = "Available lists every coupon code that can be issued again."
		derive = ledger.AvailableCodes
	case "outstanding":
		short = "List codes with an open issuance"
		long = "Outstanding lists every coupon code currently issued and not yet redeemed."
		derive = ledger.OutstandingCodes
	default:
		panic(fmt.Sprintf("unknown codes command %q", name))
	}

	cmd := &cobra.Command{
		Use:           name,
		Short:         short,
		Long:          long,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCodes(rootOpts, cmd, derive)
		},
	}

	return cmd
}

func runCodes(opts *RootOptions, cmd *cobra.Command, derive func([]ledger.Record) []string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	sess, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	codes := derive(sess.svc.Records())

	if opts.Format == "json" {
		return formatter.Success(codes)
	}

	for _, code := range codes {
		fmt.Fprintln(cmd.OutOrStdout(), code)
	}
	return nil
}
