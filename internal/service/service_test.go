package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkoster/circulate/internal/ledger"
	"github.com/tkoster/circulate/internal/store"
	"github.com/tkoster/circulate/internal/testutil"
)

func newTestService(t *testing.T, seed []ledger.Record) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	if seed != nil {
		require.NoError(t, mem.WriteAll(context.Background(), seed))
	}
	svc := New(mem, WithNow(func() time.Time { return testutil.FixedTime }))
	svc.Start()
	t.Cleanup(svc.Stop)
	return svc, mem
}

func TestService_StartSeedsSnapshotAndClock(t *testing.T) {
	seed := []ledger.Record{testutil.Rec(7, "A100", "2024-01-01", "2024-01-05")}
	svc, _ := newTestService(t, seed)

	assert.Equal(t, seed, svc.Records())

	// A fresh issuance must number past the seeded snapshot.
	require.NoError(t, svc.Issue(context.Background(), "A100", "2024-02-01", ""))
	latest, ok := ledger.Latest(svc.Records(), "A100")
	require.True(t, ok)
	assert.Equal(t, int64(8), latest.Seq)
}

func TestService_IssueRedeemRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	require.NoError(t, svc.CreateManual(ctx, ledger.RecordInput{
		Code:      "A100",
		IssueDate: "2024-01-01",
	}))
	assert.Equal(t, []string{"A100"}, svc.Outstanding())
	assert.Empty(t, svc.Available())

	require.NoError(t, svc.Redeem(ctx, "A100", "2024-01-10", ""))
	assert.Equal(t, []string{"A100"}, svc.Available())
	assert.Empty(t, svc.Outstanding())

	require.NoError(t, svc.Issue(ctx, "A100", "2024-02-01", ""))
	assert.Equal(t, []string{"A100"}, svc.Outstanding())

	// Second issue while outstanding: rejected, snapshot untouched.
	err := svc.Issue(ctx, "A100", "2024-02-02", "")
	require.Error(t, err)
	assert.True(t, ledger.IsCommandError(err, ledger.ErrCodeNotAvailable))
	assert.Len(t, svc.Records(), 2)
}

func TestService_OfflineRejectsMutationsNotQueries(t *testing.T) {
	ctx := context.Background()
	seed := []ledger.Record{testutil.Rec(1, "A100", "2024-01-01", "2024-01-05")}
	svc, _ := newTestService(t, seed)

	svc.SetOnline(false)

	err := svc.Issue(ctx, "A100", "2024-02-01", "")
	require.Error(t, err)
	assert.True(t, ledger.IsCommandError(err, ledger.ErrCodeOffline))

	err = svc.Delete(ctx, 1)
	require.Error(t, err)
	assert.True(t, ledger.IsCommandError(err, ledger.ErrCodeOffline))

	// Read-only queries keep working against the last snapshot.
	assert.Equal(t, []string{"A100"}, svc.Available())
	assert.Equal(t, ledger.StatusAvailable, svc.Status("A100"))

	svc.SetOnline(true)
	require.NoError(t, svc.Issue(ctx, "A100", "2024-02-01", ""))
}

func TestService_WriteFailureRetainsErrorAndState(t *testing.T) {
	ctx := context.Background()
	seed := []ledger.Record{testutil.Rec(1, "A100", "2024-01-01", "2024-01-05")}
	svc, mem := newTestService(t, seed)

	mem.FailNextWrite(assert.AnError)

	err := svc.Issue(ctx, "A100", "2024-02-01", "")
	require.ErrorIs(t, err, assert.AnError)

	// Nothing applied optimistically; the prior snapshot stays.
	assert.Equal(t, seed, svc.Records())
	require.ErrorIs(t, svc.Err(), assert.AnError)

	// Re-triggering the command recovers and clears the retained error.
	require.NoError(t, svc.Issue(ctx, "A100", "2024-02-01", ""))
	assert.NoError(t, svc.Err())
	assert.Equal(t, []string{"A100"}, svc.Outstanding())
}

func TestService_PushReplacesSnapshot(t *testing.T) {
	svc, mem := newTestService(t, nil)

	var observed [][]ledger.Record
	cancel := svc.Observe(func(records []ledger.Record) {
		observed = append(observed, records)
	})
	defer cancel()

	// A remote writer replaces the set; the service reconciles on push.
	remote := []ledger.Record{testutil.Rec(3, "B200", "2024-01-05", "")}
	mem.Push(remote)

	assert.Equal(t, remote, svc.Records())
	assert.Equal(t, []string{"B200"}, svc.Outstanding())
	require.Len(t, observed, 1)
	assert.Equal(t, remote, observed[0])

	// Replaying the same snapshot is harmless and derives the same views.
	mem.Push(remote)
	assert.Equal(t, remote, svc.Records())
	assert.Equal(t, []string{"B200"}, svc.Outstanding())
}

func TestService_DeleteRemovesSoleRecord(t *testing.T) {
	ctx := context.Background()
	seed := []ledger.Record{testutil.Rec(1, "B200", "2024-01-01", "")}
	svc, _ := newTestService(t, seed)

	require.NoError(t, svc.Delete(ctx, 1))
	assert.Empty(t, svc.Available())
	assert.Empty(t, svc.Outstanding())
	assert.Empty(t, svc.Records())
}
