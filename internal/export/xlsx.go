// Package export converts the record set into spreadsheet form.
// It is a pure formatting concern: the rows are derived from whatever record
// list the caller passes in, typically after search and sort.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tkoster/circulate/internal/ledger"
)

// SheetName is the worksheet the records land on.
const SheetName = "Coupon Records"

// unusedMarker stands in for an absent redeem date in exported rows.
const unusedMarker = "unused"

var header = []string{"Coupon Code", "Issue Date", "Redeem Date", "Remarks", "Created At"}

// Rows renders records as spreadsheet rows, header first. Unredeemed records
// carry the "unused" marker in the redeem date column.
func Rows(records []ledger.Record) [][]string {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, header)
	for _, r := range records {
		redeem := r.RedeemDate
		if redeem == "" {
			redeem = unusedMarker
		}
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{r.Code, r.IssueDate, redeem, r.Remarks, created})
	}
	return rows
}

// WriteXLSX writes a single-sheet workbook of the record set to w.
func WriteXLSX(w io.Writer, records []ledger.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(sheet)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for i, row := range Rows(records) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
