package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tkoster/circulate/internal/ledger"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on records.code
const currentSchemaVersion = 1

// SQLite is a durable RecordStore backed by a local SQLite file.
type SQLite struct {
	db   *sql.DB
	subs *subscriberSet
}

var _ RecordStore = (*SQLite)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db, subs: newSubscriberSet()}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WriteAll replaces the full record set in a single transaction, then pushes
// the new set to subscribers. A failed transaction leaves the previous set in
// place and pushes nothing.
func (s *SQLite) WriteAll(ctx context.Context, records []ledger.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write records: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("write records: clear: %w", err)
	}

	for _, r := range records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records
			(seq, code, issue_date, redeem_date, remarks, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			r.Seq,
			r.Code,
			r.IssueDate,
			r.RedeemDate,
			r.Remarks,
			marshalTime(r.CreatedAt),
			marshalTime(r.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("write records: insert seq %d: %w", r.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write records: commit: %w", err)
	}

	// Push the committed set. Re-read so subscribers see exactly what a
	// fresh Snapshot would return (seq-ascending order).
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		s.subs.broadcastErr(err)
		return nil
	}
	s.subs.broadcast(snapshot)
	return nil
}

// Snapshot reads the full record set ordered by seq ascending.
func (s *SQLite) Snapshot(ctx context.Context) ([]ledger.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, code, issue_date, redeem_date, remarks, created_at, updated_at
		FROM records
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	defer rows.Close()

	records := make([]ledger.Record, 0)
	for rows.Next() {
		var r ledger.Record
		var created, updated string
		if err := rows.Scan(&r.Seq, &r.Code, &r.IssueDate, &r.RedeemDate, &r.Remarks, &created, &updated); err != nil {
			return nil, fmt.Errorf("read records: scan: %w", err)
		}
		if r.CreatedAt, err = unmarshalTime(created); err != nil {
			return nil, fmt.Errorf("read records: seq %d created_at: %w", r.Seq, err)
		}
		if r.UpdatedAt, err = unmarshalTime(updated); err != nil {
			return nil, fmt.Errorf("read records: seq %d updated_at: %w", r.Seq, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}

// Subscribe registers callbacks and immediately delivers the current
// snapshot, mirroring the on-subscribe push of a realtime backend.
func (s *SQLite) Subscribe(onChange func([]ledger.Record), onErr func(error)) func() {
	cancel := s.subs.add(onChange, onErr)

	snapshot, err := s.Snapshot(context.Background())
	switch {
	case err != nil && onErr != nil:
		onErr(err)
	case err == nil && onChange != nil:
		onChange(snapshot)
	}

	return cancel
}

// MaxSeq returns the greatest stored sequence number, or 0 for an empty set.
// Used to seed the ledger clock on startup.
func (s *SQLite) MaxSeq(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM records`).Scan(&max); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return max.Int64, nil
}

// marshalTime stores timestamps as RFC 3339 text; the zero time stores as
// the empty string.
func marshalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func unmarshalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the code index for databases created before v1.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_records_code ON records(code)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
