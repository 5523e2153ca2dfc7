package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkoster/circulate/internal/realtime"
	"github.com/tkoster/circulate/internal/store"
)

// DefaultListen is the bind address when neither flag nor config sets one.
const DefaultListen = ":8632"

// shutdownTimeout bounds graceful drain of in-flight connections.
const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the realtime sync gateway",
		Long: `Serve runs a websocket sync gateway over the local database. Clients
connect with --remote, receive the full record set on connect and after every
write, and push full-set replacement writes back.

Endpoints: /ws (websocket), /healthz, /metrics (Prometheus).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "bind address (default "+DefaultListen+")")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	addr := opts.Listen
	if addr == "" {
		cfg, err := LoadConfig(opts.ConfigPath)
		if err != nil {
			return err
		}
		addr = cfg.Listen
	}
	if addr == "" {
		addr = DefaultListen
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	log := slog.Default()
	gw := realtime.NewGateway(log, st)
	defer gw.Close()

	srv := &http.Server{
		Addr:         addr,
		Handler:      gw.Router(),
		ReadTimeout:  0, // websocket connections are long-lived
		WriteTimeout: 0,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening", "addr", addr, "db", opts.Database)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "gateway failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down gateway")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return WrapExitError(ExitFailure, "gateway shutdown failed", err)
	}
	return nil
}
