// Package service owns the authoritative in-memory record snapshot and runs
// the read-modify-write cycle against the record store.
//
// Every mutation reads the latest pushed snapshot, computes the new full set
// with the pure ledger commands, and writes it back with a full-set replace.
// Changes are never applied optimistically: the store's subsequent push is
// what updates the local snapshot and closes the loop.
//
// Known limitation: two actors computing from the same base snapshot race,
// and the second write silently overwrites the first. The backing store is
// last-write-wins and no compare-and-swap is provided.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tkoster/circulate/internal/ledger"
	"github.com/tkoster/circulate/internal/store"
)

// Service is the command layer over a RecordStore. All methods are safe for
// concurrent use.
type Service struct {
	store store.RecordStore
	clock *ledger.Clock
	log   *slog.Logger
	now   func() time.Time

	online atomic.Bool

	mu        sync.RWMutex
	records   []ledger.Record
	lastErr   error
	observers map[int]func([]ledger.Record)
	obsNext   int

	cancelSub func()
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the sequence clock. Defaults to a fresh clock; it is
// advanced to the max seq of every pushed snapshot either way.
func WithClock(c *ledger.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithNow sets the wall-clock source for CreatedAt/UpdatedAt stamps.
// Tests use a fixed instant.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over st. Call Start to begin receiving pushes.
func New(st store.RecordStore, opts ...Option) *Service {
	s := &Service{
		store:     st,
		clock:     ledger.NewClock(),
		log:       slog.Default(),
		now:       time.Now,
		observers: make(map[int]func([]ledger.Record)),
	}
	s.online.Store(true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the store. The initial push seeds the snapshot and the
// clock before Start returns (stores deliver the current set on subscribe).
func (s *Service) Start() {
	s.cancelSub = s.store.Subscribe(s.applySnapshot, s.retainErr)
}

// Stop cancels the store subscription.
func (s *Service) Stop() {
	if s.cancelSub != nil {
		s.cancelSub()
		s.cancelSub = nil
	}
}

// applySnapshot replaces the local snapshot with a pushed set. Replaying the
// same snapshot is a no-op in effect: derived views are recomputed from
// whatever arrived, and the clock only ever moves forward.
func (s *Service) applySnapshot(records []ledger.Record) {
	s.clock.Observe(ledger.MaxSeq(records))

	s.mu.Lock()
	s.records = records
	s.lastErr = nil
	obs := make([]func([]ledger.Record), 0, len(s.observers))
	for _, fn := range s.observers {
		obs = append(obs, fn)
	}
	s.mu.Unlock()

	s.log.Debug("snapshot applied", "records", len(records))
	for _, fn := range obs {
		fn(copyRecords(records))
	}
}

// retainErr records a store read failure. The last successfully pushed
// snapshot stays authoritative.
func (s *Service) retainErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.log.Error("store push failed", "error", err)
}

// Observe registers a callback invoked after every applied push. The
// returned function cancels the registration.
func (s *Service) Observe(fn func([]ledger.Record)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.obsNext
	s.obsNext++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// SetOnline flips the external network-availability signal. While offline,
// mutating commands are rejected up front; queries keep serving the last
// snapshot.
func (s *Service) SetOnline(online bool) {
	s.online.Store(online)
}

// onlineReporter is implemented by stores that know their own connectivity,
// such as the realtime client.
type onlineReporter interface {
	Online() bool
}

// Online reports the current network-availability signal. A store that tracks
// its own connection state overrides the manual flag when it is down.
func (s *Service) Online() bool {
	if r, ok := s.store.(onlineReporter); ok && !r.Online() {
		return false
	}
	return s.online.Load()
}

// Err returns the retained error from the last failed store operation, if
// any. It is cleared by the next successful write or push.
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Records returns a copy of the current snapshot.
func (s *Service) Records() []ledger.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRecords(s.records)
}

// Available returns the codes currently eligible for issuance.
func (s *Service) Available() []string {
	return ledger.AvailableCodes(s.Records())
}

// Outstanding returns the codes currently in circulation.
func (s *Service) Outstanding() []string {
	return ledger.OutstandingCodes(s.Records())
}

// Status derives the current status of a single code.
func (s *Service) Status(code string) ledger.Status {
	return ledger.StatusOf(s.Records(), code)
}

// Issue hands out an available coupon code.
func (s *Service) Issue(ctx context.Context, code, issueDate, remarks string) error {
	return s.mutate(ctx, "issue", func(records []ledger.Record) ([]ledger.Record, error) {
		return ledger.Issue(records, s.clock, code, issueDate, remarks, s.now())
	})
}

// Redeem takes an outstanding coupon code back in.
func (s *Service) Redeem(ctx context.Context, code, redeemDate, remarks string) error {
	return s.mutate(ctx, "redeem", func(records []ledger.Record) ([]ledger.Record, error) {
		return ledger.Redeem(records, code, redeemDate, remarks, s.now())
	})
}

// CreateManual appends a manually entered record.
func (s *Service) CreateManual(ctx context.Context, in ledger.RecordInput) error {
	return s.mutate(ctx, "create", func(records []ledger.Record) ([]ledger.Record, error) {
		return ledger.CreateManual(records, s.clock, in, s.now())
	})
}

// UpdateManual rewrites the fields of an existing record.
func (s *Service) UpdateManual(ctx context.Context, seq int64, in ledger.RecordInput) error {
	return s.mutate(ctx, "update", func(records []ledger.Record) ([]ledger.Record, error) {
		return ledger.UpdateManual(records, seq, in, s.now())
	})
}

// Delete removes a record unconditionally. Callers are expected to confirm
// first: deleting the sole outstanding record for a code returns that code
// to the available pool.
func (s *Service) Delete(ctx context.Context, seq int64) error {
	return s.mutate(ctx, "delete", func(records []ledger.Record) ([]ledger.Record, error) {
		return ledger.Delete(records, seq)
	})
}

// mutate runs one read-modify-write cycle: validate against the current
// snapshot, write the new full set, and leave snapshot application to the
// store's push.
func (s *Service) mutate(ctx context.Context, op string, cmd func([]ledger.Record) ([]ledger.Record, error)) error {
	if !s.Online() {
		return ledger.NewOfflineError()
	}

	next, err := cmd(s.Records())
	if err != nil {
		return err
	}

	if err := s.store.WriteAll(ctx, next); err != nil {
		wrapped := fmt.Errorf("%s: persist: %w", op, err)
		s.mu.Lock()
		s.lastErr = wrapped
		s.mu.Unlock()
		s.log.Error("write failed", "op", op, "error", err)
		return wrapped
	}

	s.log.Info("record set written", "op", op, "records", len(next))
	return nil
}

func copyRecords(records []ledger.Record) []ledger.Record {
	out := make([]ledger.Record, len(records))
	copy(out, records)
	return out
}
