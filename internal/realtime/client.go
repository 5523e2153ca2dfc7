package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/tkoster/circulate/internal/ledger"
	"github.com/tkoster/circulate/internal/store"
)

// ErrClosed is returned by client operations after the connection dropped.
var ErrClosed = errors.New("realtime: connection closed")

// Client is a RecordStore backed by a remote gateway.
//
// The connection state doubles as the network-availability signal: while the
// websocket is up the client is online and writes are attempted; once the
// read loop fails, Online turns false, pending writes fail, and queries keep
// serving the last received snapshot.
type Client struct {
	log    *slog.Logger
	conn   *websocket.Conn
	cancel context.CancelFunc

	online atomic.Bool

	mu       sync.Mutex
	snapshot []ledger.Record
	pending  map[string]chan error
	subs     map[int]clientSub
	subNext  int

	firstSnap chan struct{}
	firstOnce sync.Once
	done      chan struct{}
}

type clientSub struct {
	onChange func([]ledger.Record)
	onErr    func(error)
}

var _ store.RecordStore = (*Client)(nil)

// Dial connects to a gateway, performs the hello handshake, and waits for
// the initial snapshot so that Snapshot is immediately answerable. The
// context bounds the whole handshake.
func Dial(ctx context.Context, url string, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		log:       log,
		conn:      conn,
		cancel:    cancel,
		pending:   make(map[string]chan error),
		subs:      make(map[int]clientSub),
		firstSnap: make(chan struct{}),
		done:      make(chan struct{}),
	}
	c.online.Store(true)

	hello, err := NewEnvelope(TypeHello, struct{}{})
	if err == nil {
		err = c.write(ctx, hello)
	}
	if err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("handshake: %w", err)
	}

	go c.readLoop(readCtx)

	select {
	case <-c.firstSnap:
		return c, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		c.Close()
		return nil, fmt.Errorf("waiting for initial snapshot: %w", ctx.Err())
	}
}

// Online reports whether the gateway connection is up.
func (c *Client) Online() bool {
	return c.online.Load()
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "client closing")
}

// WriteAll sends a full-set replace and waits for the gateway's ack. The
// caller's context bounds the wait; an unacknowledged write must not be
// assumed applied.
func (c *Client) WriteAll(ctx context.Context, records []ledger.Record) error {
	if !c.Online() {
		return ErrClosed
	}

	env, err := NewEnvelope(TypeWrite, WritePayload{Records: ToWire(records)})
	if err != nil {
		return err
	}

	ack := make(chan error, 1)
	c.mu.Lock()
	c.pending[env.ID] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, env.ID)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, env); err != nil {
		return fmt.Errorf("send write: %w", err)
	}

	select {
	case err := <-ack:
		return err
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the last received record set.
func (c *Client) Snapshot(ctx context.Context) ([]ledger.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ledger.Record, len(c.snapshot))
	copy(out, c.snapshot)
	return out, nil
}

// Subscribe registers callbacks and immediately delivers the last snapshot.
func (c *Client) Subscribe(onChange func([]ledger.Record), onErr func(error)) func() {
	c.mu.Lock()
	id := c.subNext
	c.subNext++
	c.subs[id] = clientSub{onChange: onChange, onErr: onErr}
	current := make([]ledger.Record, len(c.snapshot))
	copy(current, c.snapshot)
	c.mu.Unlock()

	if onChange != nil {
		onChange(current)
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Client) write(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) readLoop(ctx context.Context) {
	defer c.teardown()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("malformed frame from gateway", "error", err)
			continue
		}
		if err := env.Validate(); err != nil {
			c.log.Warn("invalid envelope from gateway", "error", err)
			continue
		}

		switch env.Type {
		case TypeHelloAck:
			// Session established; nothing to do.

		case TypeSnapshot:
			c.handleSnapshot(env)

		case TypeWriteAck:
			var payload WriteAckPayload
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				c.log.Warn("malformed write ack", "error", err)
				continue
			}
			c.resolvePending(payload.Ref, nil)

		case TypeError:
			var payload ErrorPayload
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				c.log.Warn("malformed error envelope", "error", err)
				continue
			}
			remoteErr := fmt.Errorf("gateway error %s: %s", payload.Code, payload.Message)
			if payload.Ref != "" {
				c.resolvePending(payload.Ref, remoteErr)
			} else {
				c.notifyErr(remoteErr)
			}
		}
	}
}

func (c *Client) handleSnapshot(env Envelope) {
	var payload SnapshotPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		c.log.Warn("malformed snapshot", "error", err)
		return
	}
	records, err := FromWire(payload.Records)
	if err != nil {
		c.log.Warn("unusable snapshot", "error", err)
		return
	}

	c.mu.Lock()
	c.snapshot = records
	subs := make([]clientSub, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	c.firstOnce.Do(func() { close(c.firstSnap) })

	for _, s := range subs {
		if s.onChange != nil {
			out := make([]ledger.Record, len(records))
			copy(out, records)
			s.onChange(out)
		}
	}
}

func (c *Client) resolvePending(ref string, err error) {
	c.mu.Lock()
	ch, ok := c.pending[ref]
	c.mu.Unlock()
	if ok {
		ch <- err
	}
}

func (c *Client) notifyErr(err error) {
	c.mu.Lock()
	subs := make([]clientSub, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()
	for _, s := range subs {
		if s.onErr != nil {
			s.onErr(err)
		}
	}
}

// teardown marks the client offline and fails everything waiting on the
// connection.
func (c *Client) teardown() {
	c.online.Store(false)
	close(c.done)
	c.notifyErr(ErrClosed)
	c.log.Info("gateway connection closed")
}
