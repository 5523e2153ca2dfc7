package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tkoster/circulate/internal/ledger"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Search string
	Sort   string
	Desc   bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records with search and sort",
		Long: `List prints the full record set, optionally filtered by a case-insensitive
substring match on code or remarks and sorted by a column.

Example:
  circulate list
  circulate list --search zhou --sort issued --desc`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "filter by code or remarks substring")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort key (code|issued|redeemed)")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "sort descending")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

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

	if opts.Format == "json" {
		return formatter.Success(records)
	}

	renderRecords(cmd.OutOrStdout(), records)
	return nil
}

func isValidSortKey(key ledger.SortKey) bool {
	for _, k := range ledger.ValidSortKeys {
		if k == key {
			return true
		}
	}
	return false
}

// renderRecords prints the record table followed by the circulation summary.
func renderRecords(w io.Writer, records []ledger.Record) {
	rows := make([][]string, 0, len(records))
	redeemed := 0
	for _, r := range records {
		status := "open"
		if r.Redeemed() {
			status = "redeemed"
			redeemed++
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.Seq, 10),
			r.Code,
			r.IssueDate,
			r.RedeemDate,
			status,
			r.Remarks,
		})
	}

	renderTable(w, []string{"SEQ", "CODE", "ISSUED", "REDEEMED", "STATUS", "REMARKS"}, rows)
	fmt.Fprintf(w, "\n%d records: %d outstanding, %d available, %d redeemed\n",
		len(records),
		len(ledger.OutstandingCodes(records)),
		len(ledger.AvailableCodes(records)),
		redeemed,
	)
}
