package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkoster/circulate/internal/ledger"
	"github.com/tkoster/circulate/internal/testutil"
)

// TestCirculationLifecycle walks a code through the full issue/redeem/reissue
// cycle and checks the derived views at every step.
func TestCirculationLifecycle(t *testing.T) {
	clock := ledger.NewClock()
	now := testutil.FixedTime

	// A code enters the ledger through manual entry.
	records, err := ledger.CreateManual(nil, clock, ledger.RecordInput{
		Code:      "A100",
		IssueDate: "2024-01-01",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"A100"}, ledger.OutstandingCodes(records))
	assert.Empty(t, ledger.AvailableCodes(records))

	// Redeeming returns it to the available pool.
	records, err = ledger.Redeem(records, "A100", "2024-01-10", "returned by Li", now)
	require.NoError(t, err)
	assert.Empty(t, ledger.OutstandingCodes(records))
	assert.Equal(t, []string{"A100"}, ledger.AvailableCodes(records))

	// Reissue succeeds while the prior redeemed record remains in history.
	records, err = ledger.Issue(records, clock, "A100", "2024-02-01", "", now)
	require.NoError(t, err)
	require.Len(t, records, 2)
	latest, ok := ledger.Latest(records, "A100")
	require.True(t, ok)
	assert.Equal(t, int64(2), latest.Seq)
	assert.Equal(t, []string{"A100"}, ledger.OutstandingCodes(records))

	// Issuing again while outstanding fails and leaves the set unchanged.
	_, err = ledger.Issue(records, clock, "A100", "2024-02-02", "", now)
	require.Error(t, err)
	assert.True(t, ledger.IsCommandError(err, ledger.ErrCodeNotAvailable))
	assert.Len(t, records, 2)
}

func TestCreateManual_Validation(t *testing.T) {
	clock := ledger.NewClock()
	now := testutil.FixedTime

	tests := []struct {
		name string
		in   ledger.RecordInput
		code ledger.CommandErrorCode
	}{
		{"missing code", ledger.RecordInput{IssueDate: "2024-01-01"}, ledger.ErrCodeMissingField},
		{"blank code", ledger.RecordInput{Code: "   ", IssueDate: "2024-01-01"}, ledger.ErrCodeMissingField},
		{"missing issue date", ledger.RecordInput{Code: "A100"}, ledger.ErrCodeMissingField},
		{"malformed issue date", ledger.RecordInput{Code: "A100", IssueDate: "01/02/2024"}, ledger.ErrCodeBadDate},
		{"malformed redeem date", ledger.RecordInput{Code: "A100", IssueDate: "2024-01-01", RedeemDate: "soon"}, ledger.ErrCodeBadDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.CreateManual(nil, clock, tt.in, now)
			require.Error(t, err)
			assert.True(t, ledger.IsCommandError(err, tt.code), "got %v", err)
		})
	}

	assert.Equal(t, int64(0), clock.Current(), "failed commands must not consume sequence numbers")
}

func TestCreateManual_DoesNotMutateInput(t *testing.T) {
	clock := ledger.NewClockAt(1)
	base := []ledger.Record{testutil.Rec(1, "A100", "2024-01-01", "")}

	next, err := ledger.CreateManual(base, clock, ledger.RecordInput{
		Code:      "B200",
		IssueDate: "2024-03-01",
	}, testutil.FixedTime)
	require.NoError(t, err)

	assert.Len(t, base, 1, "input list must stay untouched")
	require.Len(t, next, 2)
	assert.Equal(t, int64(2), next[1].Seq)
	assert.Equal(t, testutil.FixedTime, next[1].CreatedAt)
}

func TestIssue_NeverIssuedCodeIsNotAvailable(t *testing.T) {
	// Quick issue only reaches codes with a redeemed history record; new
	// codes must go through manual entry.
	clock := ledger.NewClock()
	_, err := ledger.Issue(nil, clock, "NEW-1", "2024-01-01", "", testutil.FixedTime)
	require.Error(t, err)
	assert.True(t, ledger.IsCommandError(err, ledger.ErrCodeNotAvailable))
}

func TestRedeem_TargetsLatestOpenRecord(t *testing.T) {
	records := []ledger.Record{
		testutil.Rec(1, "A100", "2024-01-01", "2024-01-05"),
		testutil.Rec(2, "A100", "2024-02-01", ""),
	}

	next, err := ledger.Redeem(records, "A100", "2024-02-20", "", testutil.FixedTime)
	require.NoError(t, err)

	hist := ledger.History(next, "A100")
	require.Len(t, hist, 2)
	assert.Equal(t, "2024-01-05", hist[0].RedeemDate, "older record untouched")
	assert.Equal(t, "2024-02-20", hist[1].RedeemDate)
	assert.Equal(t, testutil.FixedTime, hist[1].UpdatedAt)
}

func TestRedeem_PreservesRemarksWhenEmpty(t *testing.T) {
	base := testutil.Rec(1, "A100", "2024-01-01", "")
	base.Remarks = "issued to Wang"

	next, err := ledger.Redeem([]ledger.Record{base}, "A100", "2024-01-10", "", testutil.FixedTime)
	require.NoError(t, err)
	assert.Equal(t, "issued to Wang", next[0].Remarks)

	next, err = ledger.Redeem([]ledger.Record{base}, "A100", "2024-01-10", "damaged", testutil.FixedTime)
	require.NoError(t, err)
	assert.Equal(t, "damaged", next[0].Remarks)
}

func TestRedeem_NotOutstanding(t *testing.T) {
	records := []ledger.Record{
		testutil.Rec(1, "A100", "2024-01-01", "2024-01-05"),
	}

	_, err := ledger.Redeem(records, "A100", "2024-02-01", "", testutil.FixedTime)
	require.Error(t, err)
	assert.True(t, ledger.IsCommandError(err, ledger.ErrCodeNotOutstanding))

	_, err = ledger.Redeem(records, "ZZ99", "2024-02-01", "", testutil.FixedTime)
	require.Error(t, err)
	assert.True(t, ledger.IsCommandError(err, ledger.ErrCodeNotOutstanding))
}

func TestUpdateManual_ReplacesFieldsKeepingSeq(t *testing.T) {
	records := []ledger.Record{
		testutil.Rec(1, "A100", "2024-01-01", ""),
		testutil.Rec(2, "B200", "2024-01-02", ""),
	}

	next, err := ledger.UpdateManual(records, 2, ledger.RecordInput{
		Code:       "B200",
		IssueDate:  "2024-01-03",
		RedeemDate: "2024-01-20",
		Remarks:    "corrected",
	}, testutil.FixedTime)
	require.NoError(t, err)

	assert.Equal(t, int64(2), next[1].Seq)
	assert.Equal(t, "2024-01-03", next[1].IssueDate)
	assert.Equal(t, "2024-01-20", next[1].RedeemDate)
	assert.Equal(t, "corrected", next[1].Remarks)
	assert.Equal(t, testutil.FixedTime, next[1].UpdatedAt)
	assert.Equal(t, records[0], next[0], "other records untouched")
}

func TestUpdateManual_NoSuchRecord(t *testing.T) {
	_, err := ledger.UpdateManual(nil, 99, ledger.RecordInput{
		Code:      "A100",
		IssueDate: "2024-01-01",
	}, testutil.FixedTime)
	require.Error(t, err)
	assert.True(t, ledger.IsCommandError(err, ledger.ErrCodeNoSuchRecord))
}

func TestDelete_RemovesRecordAndCode(t *testing.T) {
	records := []ledger.Record{
		testutil.Rec(1, "A100", "2024-01-01", "2024-01-05"),
		testutil.Rec(2, "B200", "2024-01-02", ""),
	}

	next, err := ledger.Delete(records, 2)
	require.NoError(t, err)
	require.Len(t, next, 1)

	// The deleted record was B200's only one: the code vanishes from every
	// derived view.
	assert.Equal(t, ledger.StatusNone, ledger.StatusOf(next, "B200"))
	assert.NotContains(t, ledger.AvailableCodes(next), "B200")
	assert.NotContains(t, ledger.OutstandingCodes(next), "B200")
}

func TestDelete_NoSuchRecord(t *testing.T) {
	_, err := ledger.Delete(nil, 1)
	require.Error(t, err)
	assert.True(t, ledger.IsCommandError(err, ledger.ErrCodeNoSuchRecord))
}
