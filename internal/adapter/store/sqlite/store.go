// Package sqlite persists review run history.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dfarr/autoreviewer/internal/usecase/review"
)

// Store implements the review.Store port using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	-- Metadata about each review run
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		repository TEXT NOT NULL,
		mode TEXT NOT NULL,
		base_ref TEXT NOT NULL,
		total INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);

	-- Per-file outcome of each run
	CREATE TABLE IF NOT EXISTS results (
		result_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		path TEXT NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('ok', 'failed')),
		comment_id TEXT,
		error TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores one completed run and its per-file results in a single
// transaction.
func (s *Store) SaveRun(ctx context.Context, rec review.RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, repository, mode, base_ref, total, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.Unix(),
		rec.Repository,
		string(rec.Mode),
		rec.BaseRef,
		rec.Outcome.TotalCount,
		rec.Outcome.SuccessCount,
		rec.Outcome.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, file := range rec.Files {
		status := "ok"
		var commentID, errText sql.NullString
		if file.Failed() {
			status = "failed"
			errText = sql.NullString{String: file.Err.Error(), Valid: true}
		} else {
			commentID = sql.NullString{String: file.CommentID, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, path, status, comment_id, error)
			VALUES (?, ?, ?, ?, ?)`,
			rec.ID, file.Path, status, commentID, errText,
		)
		if err != nil {
			return fmt.Errorf("insert result for %s: %w", file.Path, err)
		}
	}

	return tx.Commit()
}

// Result is one persisted per-file outcome.
type Result struct {
	Path      string
	Status    string
	CommentID string
	Error     string
}

// CountRuns returns the number of persisted runs.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// ResultsForRun returns the per-file results of a run in insertion order.
func (s *Store) ResultsForRun(ctx context.Context, runID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, status, comment_id, error
		FROM results WHERE run_id = ? ORDER BY result_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var commentID, errText sql.NullString
		if err := rows.Scan(&r.Path, &r.Status, &commentID, &errText); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.CommentID = commentID.String
		r.Error = errText.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
