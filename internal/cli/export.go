package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tkoster/circulate/internal/export"
	"github.com/tkoster/circulate/internal/ledger"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Search string
	Sort   string
	Desc   bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Export records to an xlsx workbook",
		Long: `Export writes the record set to an Excel workbook. The same search and sort
flags as list apply, so the exported sheet matches what list would print.

Example:
  circulate export coupons.xlsx --sort code`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "filter by code or remarks substring")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort key (code|issued|redeemed)")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "sort descending")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command, path string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if !strings.HasSuffix(path, ".xlsx") {
		return NewExitError(ExitCommandError, fmt.Sprintf("output file %q must end in .xlsx", path))
	}

	key := ledger.SortKey(opts.Sort)
	if opts.Sort != "" && !isValidSortKey(key) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid sort key %q: must be one of %v", opts.Sort, ledger.ValidSortKeys))
	}

	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	records := ledger.Search(sess.svc.Records(), opts.Search)
	records = ledger.Sort(records, key, opts.Desc)

	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to create workbook", err)
	}
	defer f.Close()

	if err := export.WriteXLSX(f, records); err != nil {
		return WrapExitError(ExitFailure, "failed to write workbook", err)
	}
	if err := f.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to close workbook", err)
	}

	return formatter.Success(fmt.Sprintf("exported %d records to %s", len(records), path))
}
