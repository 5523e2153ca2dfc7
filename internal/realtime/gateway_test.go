package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkoster/circulate/internal/ledger"
	"github.com/tkoster/circulate/internal/store"
	"github.com/tkoster/circulate/internal/testutil"
)

// startTestGateway serves a gateway over a fresh in-memory store and returns
// the websocket URL.
func startTestGateway(t *testing.T) (*store.Memory, string) {
	t.Helper()
	mem := store.NewMemory()
	g := NewGateway(nil, mem)
	srv := httptest.NewServer(g.Router())
	t.Cleanup(func() {
		g.Close()
		srv.Close()
	})
	return mem, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialTestClient(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// waitForSnapshot blocks until the client pushes a snapshot satisfying ok.
func waitForSnapshot(t *testing.T, c *Client, ok func([]ledger.Record) bool) []ledger.Record {
	t.Helper()
	got := make(chan []ledger.Record, 16)
	cancel := c.Subscribe(func(records []ledger.Record) { got <- records }, nil)
	defer cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case records := <-got:
			if ok(records) {
				return records
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestGateway_InitialSnapshotOnConnect(t *testing.T) {
	mem, url := startTestGateway(t)

	seed := []ledger.Record{testutil.Rec(1, "A100", "2024-01-01", "")}
	require.NoError(t, mem.WriteAll(context.Background(), seed))

	c := dialTestClient(t, url)

	got, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seed, got)
	assert.True(t, c.Online())
}

func TestGateway_WriteRoundTrip(t *testing.T) {
	mem, url := startTestGateway(t)
	c := dialTestClient(t, url)
	ctx := context.Background()

	want := []ledger.Record{
		testutil.Rec(1, "A100", "2024-01-01", "2024-01-10"),
		testutil.Rec(2, "B200", "2024-02-01", ""),
	}
	require.NoError(t, c.WriteAll(ctx, want))

	// The write landed in the backing store.
	stored, err := mem.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, stored)

	// The push delivers the same set back; derived views are unchanged by
	// the round trip.
	got := waitForSnapshot(t, c, func(r []ledger.Record) bool { return len(r) == 2 })
	assert.Equal(t, ledger.AvailableCodes(want), ledger.AvailableCodes(got))
	assert.Equal(t, ledger.OutstandingCodes(want), ledger.OutstandingCodes(got))
}

func TestGateway_BroadcastsToOtherClients(t *testing.T) {
	_, url := startTestGateway(t)
	writer := dialTestClient(t, url)
	watcher := dialTestClient(t, url)

	want := []ledger.Record{testutil.Rec(1, "A100", "2024-01-01", "")}
	require.NoError(t, writer.WriteAll(context.Background(), want))

	got := waitForSnapshot(t, watcher, func(r []ledger.Record) bool { return len(r) == 1 })
	assert.Equal(t, want, got)
}

func TestGateway_RemoteWritesReachClientViaService(t *testing.T) {
	// The client satisfies the RecordStore contract well enough to sit
	// under the command layer.
	mem, url := startTestGateway(t)
	c := dialTestClient(t, url)

	remote := []ledger.Record{testutil.Rec(5, "C300", "2024-03-01", "")}
	mem.Push(remote)

	got := waitForSnapshot(t, c, func(r []ledger.Record) bool { return len(r) == 1 })
	assert.Equal(t, remote, got)
}

func TestClient_GoesOfflineWhenGatewayDrops(t *testing.T) {
	mem := store.NewMemory()
	g := NewGateway(nil, mem)
	srv := httptest.NewServer(g.Router())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close()

	g.Close()
	srv.Close()

	require.Eventually(t, func() bool { return !c.Online() },
		5*time.Second, 10*time.Millisecond, "client should observe the disconnect")

	// Mutations are rejected while offline; the last snapshot still serves.
	err = c.WriteAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Snapshot(context.Background())
	assert.NoError(t, err)
}
