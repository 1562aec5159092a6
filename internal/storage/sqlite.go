package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hazz-dev/urlmedic/internal/checker"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT    PRIMARY KEY,
    target      TEXT    NOT NULL,
    started_at  TEXT    NOT NULL,
    finished_at TEXT    NOT NULL,
    total       INTEGER NOT NULL,
    failed      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
    run_id       TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position     INTEGER NOT NULL,
    url          TEXT    NOT NULL,
    status_code  INTEGER,
    redirect_url TEXT    NOT NULL DEFAULT '',
    error        TEXT    NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_target_started ON runs(target, started_at DESC);
`

// timeFormat is fixed-width so timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Run is a stored batch of checks for one target.
type Run struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Total      int       `json:"total"`
	Failed     int       `json:"failed"`
}

// DB wraps a SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// SaveRun persists a run and its results in one transaction. An empty
// run.ID is replaced by a new UUID. Total and Failed are derived from results.
func (d *DB) SaveRun(ctx context.Context, run *Run, results checker.Set) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.Total = len(results)
	run.Failed = results.Failed()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, target, started_at, finished_at, total, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Target,
		run.StartedAt.UTC().Format(timeFormat),
		run.FinishedAt.UTC().Format(timeFormat),
		run.Total,
		run.Failed,
	)
	if err != nil {
		return fmt.Errorf("inserting run for %q: %w", run.Target, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, position, url, status_code, redirect_url, error) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing result insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		status := sql.NullInt64{Int64: int64(r.StatusCode), Valid: !r.Failed()}
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.URL, status, r.RedirectURL, r.Error); err != nil {
			return fmt.Errorf("inserting result %d of run %s: %w", i, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", run.ID, err)
	}
	return nil
}

// LatestRun returns the most recent run for target, or nil if none.
func (d *DB) LatestRun(ctx context.Context, target string) (*Run, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, target, started_at, finished_at, total, failed FROM runs WHERE target = ? ORDER BY started_at DESC LIMIT 1`,
		target,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run for %q: %w", target, err)
	}
	return r, nil
}

// PreviousRun returns the run of the same target that started before run, or
// nil if run is the first one.
func (d *DB) PreviousRun(ctx context.Context, run Run) (*Run, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, target, started_at, finished_at, total, failed FROM runs WHERE target = ? AND started_at < ? ORDER BY started_at DESC LIMIT 1`,
		run.Target, run.StartedAt.UTC().Format(timeFormat),
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run before %s: %w", run.ID, err)
	}
	return r, nil
}

// RunResults returns the results of a run in request order.
func (d *DB) RunResults(ctx context.Context, runID string) (checker.Set, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT url, status_code, redirect_url, error FROM results WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying results of run %s: %w", runID, err)
	}
	defer rows.Close()

	results := checker.Set{}
	for rows.Next() {
		var r checker.Result
		var status sql.NullInt64
		if err := rows.Scan(&r.URL, &status, &r.RedirectURL, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		r.StatusCode = int(status.Int64)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows: %w", err)
	}
	return results, nil
}

// TargetHistory returns paginated runs for a target, newest first, plus the total count.
func (d *DB) TargetHistory(ctx context.Context, target string, limit, offset int) ([]Run, int, error) {
	var total int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM runs WHERE target = ?`, target,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting runs for %q: %w", target, err)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, target, started_at, finished_at, total, failed FROM runs WHERE target = ? ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		target, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying history for %q: %w", target, err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// AllLatest returns the most recent run of each target.
func (d *DB) AllLatest(ctx context.Context) ([]Run, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.id, r.target, r.started_at, r.finished_at, r.total, r.failed
		FROM runs r
		JOIN (
			SELECT target, MAX(started_at) AS started_at FROM runs GROUP BY target
		) latest ON latest.target = r.target AND latest.started_at = r.started_at
		ORDER BY r.target
	`)
	if err != nil {
		return nil, fmt.Errorf("querying all latest: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var startedAt, finishedAt string
	err := row.Scan(&r.ID, &r.Target, &startedAt, &finishedAt, &r.Total, &r.Failed)
	if err != nil {
		return nil, err
	}
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if r.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Fallback to RFC3339 without sub-second precision.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
		}
	}
	return t, nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}
	return runs, nil
}
