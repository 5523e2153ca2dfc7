package store

import (
	"context"
	"sync"

	"github.com/tkoster/circulate/internal/ledger"
)

// RecordStore is the persistence contract for the coupon record set.
//
// The store is a single mapping from sequence number to record, fully
// replaced on every write. Subscribers receive the complete set immediately
// on subscribe and again after every successful write (push semantics).
type RecordStore interface {
	// WriteAll replaces the entire record set. On failure the previously
	// persisted set remains authoritative.
	WriteAll(ctx context.Context, records []ledger.Record) error

	// Snapshot reads the current full record set, ordered by seq ascending.
	Snapshot(ctx context.Context) ([]ledger.Record, error)

	// Subscribe registers callbacks for snapshot pushes and read errors.
	// The returned function cancels the subscription.
	Subscribe(onChange func([]ledger.Record), onErr func(error)) (cancel func())

	// Close releases the store's resources.
	Close() error
}

// subscriberSet tracks snapshot subscribers for push delivery.
// Safe for concurrent use.
type subscriberSet struct {
	mu   sync.Mutex
	next int
	subs map[int]subscriber
}

type subscriber struct {
	onChange func([]ledger.Record)
	onErr    func(error)
}

func newSubscriberSet() *subscriberSet {
	return &subscriberSet{subs: make(map[int]subscriber)}
}

// add registers a subscriber and returns its cancel function.
func (s *subscriberSet) add(onChange func([]ledger.Record), onErr func(error)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{onChange: onChange, onErr: onErr}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// broadcast pushes a snapshot to every subscriber. Each subscriber gets its
// own copy so callbacks cannot alias each other's state.
func (s *subscriberSet) broadcast(records []ledger.Record) {
	for _, sub := range s.snapshotSubs() {
		if sub.onChange != nil {
			sub.onChange(copyRecords(records))
		}
	}
}

// broadcastErr reports a read failure to every subscriber.
func (s *subscriberSet) broadcastErr(err error) {
	for _, sub := range s.snapshotSubs() {
		if sub.onErr != nil {
			sub.onErr(err)
		}
	}
}

// snapshotSubs copies the subscriber list so callbacks run without the lock
// held - a callback may itself subscribe or cancel.
func (s *subscriberSet) snapshotSubs() []subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out
}

func copyRecords(records []ledger.Record) []ledger.Record {
	out := make([]ledger.Record, len(records))
	copy(out, records)
	return out
}
