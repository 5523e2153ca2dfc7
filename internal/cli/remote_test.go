package cli

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkoster/circulate/internal/realtime"
	"github.com/tkoster/circulate/internal/store"
)

// runRemote executes the command tree against a sync gateway URL.
func runRemote(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--remote", url))
	err := cmd.Execute()
	return buf.String(), err
}

func TestCommandsOverGateway(t *testing.T) {
	st := store.NewMemory()
	gw := realtime.NewGateway(nil, st)
	defer gw.Close()

	srv := httptest.NewServer(gw.Router())
	defer srv.Close()
	url := "ws" + srv.URL[len("http"):] + "/ws"

	out, err := runRemote(t, url, "add", "A100", "--issued", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "added record for A100")

	out, err = runRemote(t, url, "outstanding")
	require.NoError(t, err)
	assert.Equal(t, "A100\n", out)

	out, err = runRemote(t, url, "redeem", "A100", "--date", "2024-01-10")
	require.NoError(t, err)
	assert.Contains(t, out, "redeemed A100 on 2024-01-10")

	out, err = runRemote(t, url, "available")
	require.NoError(t, err)
	assert.Equal(t, "A100\n", out)
}
