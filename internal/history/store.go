// Package history provides SQLite-based persistence of workflow run
// outcomes. The store is optional; when enabled every finished run is
// recorded with its per-job verdicts so past runs can be listed without
// re-reading logs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vk/cigrid/internal/executor"
	"github.com/vk/cigrid/internal/trigger"
)

// Store wraps an SQLite database holding run history.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (and if necessary creates) the history database at the given
// path. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not exist yet.
func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	workflow   TEXT NOT NULL,
	event      TEXT NOT NULL,
	branch     TEXT NOT NULL,
	status     TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS jobs (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, name)
);
CREATE INDEX IF NOT EXISTS idx_runs_workflow ON runs(workflow, started_at);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate history schema in %s: %w", s.path, err)
	}
	return nil
}

// RecordRun persists a finished run and its job results in one transaction.
func (s *Store) RecordRun(ctx context.Context, res *executor.Result, ev trigger.Event) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, workflow, event, branch, status, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Workflow, string(ev.Type), ev.Branch, string(res.Status()),
		res.Started.UTC(), res.Finished.UTC())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, job := range res.Jobs {
		errMsg := ""
		if job.Err != nil {
			errMsg = job.Err.Error()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO jobs (run_id, name, status, error, started_at, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			res.RunID, job.ID, string(job.Status), errMsg,
			job.Started.UTC(), job.Finished.UTC())
		if err != nil {
			return fmt.Errorf("insert job %q: %w", job.ID, err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID       string
	Workflow string
	Event    string
	Branch   string
	Status   string
	Started  time.Time
	Finished time.Time
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, workflow, event, branch, status, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Workflow, &r.Event, &r.Branch, &r.Status, &r.Started, &r.Finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}
