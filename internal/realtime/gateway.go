package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tkoster/circulate/internal/ledger"
	"github.com/tkoster/circulate/internal/store"
)

const (
	gatewayDefaultWriteTimeout  = 5 * time.Second
	gatewayDefaultSendQueueSize = 64
)

// Gateway is the websocket entrypoint for the sync backend.
//
// It serves whole-snapshot pushes over a local RecordStore: every connected
// client receives the full record set on connect and after every applied
// write, from whichever client it originated. Writes are full-set replaces;
// the store's last-write-wins semantics carry over unchanged.
type Gateway struct {
	log   *slog.Logger
	store store.RecordStore

	writeTimeout  time.Duration
	sendQueueSize int

	mu        sync.Mutex
	conns     map[*gatewayConn]struct{}
	cancelSub func()
}

// NewGateway constructs a gateway over st and subscribes to its pushes.
func NewGateway(log *slog.Logger, st store.RecordStore) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	g := &Gateway{
		log:           log,
		store:         st,
		writeTimeout:  gatewayDefaultWriteTimeout,
		sendQueueSize: gatewayDefaultSendQueueSize,
		conns:         make(map[*gatewayConn]struct{}),
	}
	g.cancelSub = st.Subscribe(g.broadcastSnapshot, g.broadcastError)
	return g
}

// Close cancels the store subscription and disconnects every client.
func (g *Gateway) Close() {
	if g.cancelSub != nil {
		g.cancelSub()
		g.cancelSub = nil
	}
	g.mu.Lock()
	conns := make([]*gatewayConn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()
	for _, c := range conns {
		c.conn.Close(websocket.StatusGoingAway, "gateway shutting down")
	}
}

// Router returns the HTTP surface: /ws, /healthz and /metrics.
func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(g.requestLogger)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", g.handleWS)
	return r
}

// requestLogger logs each HTTP request at debug level. Websocket upgrades
// are logged on disconnect instead, with the session duration.
func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		g.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

// handleWS upgrades the request and runs the session loop until the client
// disconnects.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		g.log.Info("ws accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	gc := &gatewayConn{
		conn: conn,
		send: make(chan Envelope, g.sendQueueSize),
	}

	g.mu.Lock()
	g.conns[gc] = struct{}{}
	g.mu.Unlock()
	metricConnections.Inc()
	g.log.Info("client connected", "remote", r.RemoteAddr)

	defer func() {
		g.mu.Lock()
		delete(g.conns, gc)
		g.mu.Unlock()
		metricConnections.Dec()
		conn.Close(websocket.StatusInternalError, "session ended")
		g.log.Info("client disconnected", "remote", r.RemoteAddr)
	}()

	ctx := r.Context()
	go gc.writeLoop(ctx, g.writeTimeout, g.log)

	// Initial push: the current full set, like a realtime backend's
	// on-subscribe delivery.
	snapshot, err := g.store.Snapshot(ctx)
	if err != nil {
		g.sendError(gc, "READ_FAILED", err.Error(), "")
	} else {
		g.sendSnapshot(gc, snapshot)
	}

	g.readLoop(ctx, gc)
}

func (g *Gateway) readLoop(ctx context.Context, gc *gatewayConn) {
	for {
		_, data, err := gc.conn.Read(ctx)
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			g.sendError(gc, "BAD_ENVELOPE", "malformed frame", "")
			continue
		}
		if err := env.Validate(); err != nil {
			g.sendError(gc, "BAD_ENVELOPE", err.Error(), env.ID)
			continue
		}

		switch env.Type {
		case TypeHello:
			ack, err := NewEnvelope(TypeHelloAck, struct{}{})
			if err == nil {
				gc.trySend(ack, g.log)
			}

		case TypeWrite:
			g.handleWrite(ctx, gc, env)

		default:
			g.sendError(gc, "UNEXPECTED_TYPE", "type not accepted from clients: "+env.Type, env.ID)
		}
	}
}

// handleWrite applies a full-set replace and acks. The store's own push then
// broadcasts the new snapshot to every client, the writer included.
func (g *Gateway) handleWrite(ctx context.Context, gc *gatewayConn, env Envelope) {
	var payload WritePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		g.sendError(gc, "BAD_PAYLOAD", "malformed write payload", env.ID)
		return
	}

	records, err := FromWire(payload.Records)
	if err != nil {
		g.sendError(gc, "BAD_PAYLOAD", err.Error(), env.ID)
		return
	}

	if err := g.store.WriteAll(ctx, records); err != nil {
		g.log.Error("write failed", "error", err, "records", len(records))
		g.sendError(gc, "WRITE_FAILED", err.Error(), env.ID)
		return
	}

	metricWrites.Inc()
	ack, err := NewEnvelope(TypeWriteAck, WriteAckPayload{Ref: env.ID})
	if err == nil {
		gc.trySend(ack, g.log)
	}
}

// broadcastSnapshot pushes the record set to every connected client.
func (g *Gateway) broadcastSnapshot(records []ledger.Record) {
	env, err := NewEnvelope(TypeSnapshot, SnapshotPayload{Records: ToWire(records)})
	if err != nil {
		g.log.Error("snapshot encode failed", "error", err)
		return
	}

	g.mu.Lock()
	conns := make([]*gatewayConn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		if c.trySend(env, g.log) {
			metricSnapshots.Inc()
		}
	}
}

func (g *Gateway) broadcastError(err error) {
	g.log.Error("store push failed", "error", err)
}

func (g *Gateway) sendSnapshot(gc *gatewayConn, records []ledger.Record) {
	env, err := NewEnvelope(TypeSnapshot, SnapshotPayload{Records: ToWire(records)})
	if err != nil {
		g.log.Error("snapshot encode failed", "error", err)
		return
	}
	if gc.trySend(env, g.log) {
		metricSnapshots.Inc()
	}
}

func (g *Gateway) sendError(gc *gatewayConn, code, message, ref string) {
	env, err := NewEnvelope(TypeError, ErrorPayload{Code: code, Message: message, Ref: ref})
	if err != nil {
		return
	}
	if gc.trySend(env, g.log) {
		metricErrors.Inc()
	}
}

// gatewayConn is one connected client with its outbound queue.
type gatewayConn struct {
	conn *websocket.Conn
	send chan Envelope
}

// trySend enqueues an envelope without blocking. A full queue means the
// client is not draining; the frame is dropped and the next snapshot will
// carry the complete state anyway.
func (c *gatewayConn) trySend(env Envelope, log *slog.Logger) bool {
	select {
	case c.send <- env:
		return true
	default:
		log.Warn("send queue full, dropping frame", "type", env.Type)
		return false
	}
}

func (c *gatewayConn) writeLoop(ctx context.Context, timeout time.Duration, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-c.send:
			data, err := json.Marshal(env)
			if err != nil {
				log.Error("envelope encode failed", "error", err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err = c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
