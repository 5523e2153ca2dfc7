package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkoster/circulate/internal/realtime"
	"github.com/tkoster/circulate/internal/service"
	"github.com/tkoster/circulate/internal/store"
)

// dialTimeout bounds the gateway handshake for remote sessions.
const dialTimeout = 10 * time.Second

// session bundles an opened record store with a started service for the
// lifetime of one command invocation.
type session struct {
	svc *service.Service
	st  store.RecordStore
}

// openSession opens the store selected by the global flags and starts a
// service over it. The initial subscribe push seeds the snapshot and the
// sequence clock before this returns.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	st, err := openStore(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}

	svc := service.New(st)
	svc.Start()
	return &session{svc: svc, st: st}, nil
}

func openStore(ctx context.Context, opts *RootOptions) (store.RecordStore, error) {
	if opts.Remote != "" {
		if ctx == nil {
			ctx = context.Background()
		}
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		c, err := realtime.Dial(dctx, opts.Remote, nil)
		if err != nil {
			// An unreachable backend is the offline state: rejected up
			// front, nothing attempted.
			return nil, WrapExitError(ExitFailure, "sync gateway unreachable", err)
		}
		return c, nil
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func (s *session) Close() {
	s.svc.Stop()
	_ = s.st.Close()
}
