// Package profilestore archives call-profile reports in a SQLite database
// so runs can be listed and compared after the evaluating process exits.
package profilestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chazu/kestrel/vm/profile"
)

// ErrRunNotFound indicates the requested run isn't archived.
var ErrRunNotFound = errors.New("profile run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	mode       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	time_ns    INTEGER NOT NULL,
	allocated  INTEGER NOT NULL,
	report     BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS rows (
	run_id              TEXT NOT NULL REFERENCES runs(id),
	position            INTEGER NOT NULL,
	function            TEXT NOT NULL,
	calls               INTEGER NOT NULL,
	time_ns             INTEGER NOT NULL,
	time_inclusive_ns   INTEGER NOT NULL,
	allocated           INTEGER NOT NULL,
	allocated_inclusive INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS rows_function ON rows(function);
`

// Run describes one archived report without its rows.
type Run struct {
	ID        string
	Mode      string
	CreatedAt time.Time
	Time      time.Duration
	Allocated int64
}

// Store is a SQLite-backed profile archive.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the archive at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save archives r, replacing any earlier report with the same run ID.
func (s *Store) Save(ctx context.Context, r *profile.Report) error {
	if r.RunID == "" {
		return errors.New("saving report: empty run id")
	}
	blob, err := profile.MarshalReport(r)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM rows WHERE run_id = ?", r.RunID); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO runs (id, mode, created_at, time_ns, allocated, report) VALUES (?, ?, ?, ?, ?, ?)",
		r.RunID, r.Mode, r.CreatedAt, int64(r.Time), r.Allocated, blob,
	)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rows (run_id, position, function, calls, time_ns, time_inclusive_ns, allocated, allocated_inclusive)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	defer stmt.Close()
	for i, row := range r.Rows {
		_, err := stmt.ExecContext(ctx, r.RunID, i, row.Function, row.Calls,
			int64(row.Time), int64(row.TimeInclusive), row.Allocated, row.AllocatedInclusive)
		if err != nil {
			return fmt.Errorf("saving row %s: %w", row.Function, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

// Load retrieves the full report archived under runID.
func (s *Store) Load(ctx context.Context, runID string) (*profile.Report, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT report FROM runs WHERE id = ?", runID).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return profile.UnmarshalReport(blob)
}

// Runs lists archived runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, mode, created_at, time_ns, allocated FROM runs ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created, ns int64
		if err := rows.Scan(&r.ID, &r.Mode, &created, &ns, &r.Allocated); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0)
		r.Time = time.Duration(ns)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FunctionHistory returns the summary row of function in every archived
// run that called it, keyed by run ID.
func (s *Store) FunctionHistory(ctx context.Context, function string) (map[string]profile.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, calls, time_ns, time_inclusive_ns, allocated, allocated_inclusive
		 FROM rows WHERE function = ?`, function)
	if err != nil {
		return nil, fmt.Errorf("querying function %s: %w", function, err)
	}
	defer rows.Close()

	out := make(map[string]profile.Row)
	for rows.Next() {
		var runID string
		var t, ti int64
		row := profile.Row{Function: function}
		if err := rows.Scan(&runID, &row.Calls, &t, &ti, &row.Allocated, &row.AllocatedInclusive); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row.Time = time.Duration(t)
		row.TimeInclusive = time.Duration(ti)
		out[runID] = row
	}
	return out, rows.Err()
}

// Delete removes a run and its rows.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", runID)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM rows WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	return tx.Commit()
}
