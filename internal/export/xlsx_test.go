package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tkoster/circulate/internal/ledger"
	"github.com/tkoster/circulate/internal/testutil"
)

func TestRows_MarksUnredeemedAsUnused(t *testing.T) {
	a := testutil.Rec(1, "A100", "2024-01-01", "2024-01-10")
	a.Remarks = "Ms. Zhou"
	b := testutil.Rec(2, "B200", "2024-02-01", "")

	rows := Rows([]ledger.Record{a, b})
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Coupon Code", "Issue Date", "Redeem Date", "Remarks", "Created At"}, rows[0])
	assert.Equal(t, "2024-01-10", rows[1][2])
	assert.Equal(t, "unused", rows[2][2])
	assert.Equal(t, "Ms. Zhou", rows[1][3])
	assert.Equal(t, "2024-06-01T12:00:00Z", rows[1][4])
}

func TestRows_EmptyLedgerIsHeaderOnly(t *testing.T) {
	rows := Rows(nil)
	require.Len(t, rows, 1)
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	records := []ledger.Record{
		testutil.Rec(1, "A100", "2024-01-01", "2024-01-10"),
		testutil.Rec(2, "B200", "2024-02-01", ""),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList(), "only the records sheet remains")

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "A100", got[1][0])
	assert.Equal(t, "unused", got[2][2])
}
