package store

import (
	"context"
	"sync"

	"github.com/tkoster/circulate/internal/ledger"
)

// Memory is an in-process RecordStore for tests and dev. It holds the record
// set behind an RWMutex and pushes snapshots the same way the durable stores
// do.
type Memory struct {
	mu      sync.RWMutex
	records []ledger.Record
	nextErr error
	subs    *subscriberSet
}

var _ RecordStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{subs: newSubscriberSet()}
}

// WriteAll replaces the record set and pushes it to subscribers.
func (m *Memory) WriteAll(ctx context.Context, records []ledger.Record) error {
	m.mu.Lock()
	if err := m.nextErr; err != nil {
		m.nextErr = nil
		m.mu.Unlock()
		return err
	}
	m.records = copyRecords(records)
	snapshot := copyRecords(m.records)
	m.mu.Unlock()

	m.subs.broadcast(snapshot)
	return nil
}

// Snapshot returns a copy of the current record set.
func (m *Memory) Snapshot(ctx context.Context) ([]ledger.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRecords(m.records), nil
}

// Subscribe registers callbacks and immediately delivers the current set.
func (m *Memory) Subscribe(onChange func([]ledger.Record), onErr func(error)) func() {
	cancel := m.subs.add(onChange, onErr)
	if onChange != nil {
		snapshot, _ := m.Snapshot(context.Background())
		onChange(snapshot)
	}
	return cancel
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

// FailNextWrite makes the next WriteAll return err without mutating the
// stored set. Used by tests to simulate persistence failures.
func (m *Memory) FailNextWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextErr = err
}

// Push injects a snapshot as if it arrived from a remote writer, replacing
// the stored set and notifying subscribers. Used by tests to simulate
// concurrent actors.
func (m *Memory) Push(records []ledger.Record) {
	m.mu.Lock()
	m.records = copyRecords(records)
	snapshot := copyRecords(m.records)
	m.mu.Unlock()

	m.subs.broadcast(snapshot)
}
