// Package history keeps a SQLite record of smoke runs so regressions can be
// spotted across invocations.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/smokecheck/packages/core/runner"
	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	broken      INTEGER NOT NULL,
	p95_ms      INTEGER
);
CREATE TABLE IF NOT EXISTS results (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	name        TEXT NOT NULL,
	target      TEXT NOT NULL,
	status      TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`

// Run is one stored smoke run.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
	Broken    int
	// P95 is zero when the run had no responses.
	P95 time.Duration
}

// Total returns the number of cases in the run.
func (r Run) Total() int {
	return r.Passed + r.Failed + r.Skipped
}

// CaseRecord is a stored per-case outcome.
type CaseRecord struct {
	Name     string
	Target   string
	Status   string
	Duration time.Duration
	Message  string
}

// Store is a SQLite-backed run history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path. Both bare
// paths and sqlite:// or sqlite: prefixed forms are accepted.
func Open(path string) (*Store, error) {
	dsn := parsePath(path)
	if dsn == "" {
		return nil, fmt.Errorf("history path is empty")
	}

	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return &Store{db: db, path: dsn}, nil
}

func parsePath(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "sqlite://") {
		return strings.TrimPrefix(path, "sqlite://")
	}
	return strings.TrimPrefix(path, "sqlite:")
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a finished run and its per-case results in one transaction.
func (s *Store) Record(ctx context.Context, started time.Time, result *runner.RunResult) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: started.UTC().Truncate(time.Millisecond),
		Duration:  result.Duration,
		Passed:    result.Passed,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		Broken:    result.Broken(),
	}
	var p95 sql.NullInt64
	if result.Latency != nil {
		run.P95 = result.Latency.P95
		p95 = sql.NullInt64{Int64: result.Latency.P95.Milliseconds(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, passed, failed, skipped, broken, p95_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
		run.Passed, run.Failed, run.Skipped, run.Broken, p95)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, seq, name, target, status, duration_ms, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range result.Results {
		status, message := "skipped", r.SkipReason
		if !r.Skipped {
			status, message = string(r.Status()), r.FailureMessage()
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.Name, r.Target, status, r.Duration.Milliseconds(), message); err != nil {
			return nil, fmt.Errorf("failed to insert result %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, duration_ms, passed, failed, skipped, broken, p95_ms
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run              Run
			startedMs, durMs int64
			p95              sql.NullInt64
		)
		if err := rows.Scan(&run.ID, &startedMs, &durMs, &run.Passed, &run.Failed, &run.Skipped, &run.Broken, &p95); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedMs).UTC()
		run.Duration = time.Duration(durMs) * time.Millisecond
		if p95.Valid {
			run.P95 = time.Duration(p95.Int64) * time.Millisecond
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Cases returns the stored results of a run in execution order.
func (s *Store) Cases(ctx context.Context, runID string) ([]CaseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, target, status, duration_ms, message FROM results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cases := make([]CaseRecord, 0)
	for rows.Next() {
		var (
			c     CaseRecord
			durMs int64
		)
		if err := rows.Scan(&c.Name, &c.Target, &c.Status, &durMs, &c.Message); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		c.Duration = time.Duration(durMs) * time.Millisecond
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return cases, nil
}
