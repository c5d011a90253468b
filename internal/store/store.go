// Package store keeps the run history in SQLite and page snapshots on disk.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/types"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// DefaultPath returns the history database location in the cache dir.
func DefaultPath() (string, error) {
	dir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		self_id TEXT,
		passes INTEGER NOT NULL,
		kudos_given INTEGER NOT NULL,
		stop_reason TEXT NOT NULL,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS kudos_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		owner_id TEXT,
		pass INTEGER NOT NULL,
		given_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_kudos_events_owner ON kudos_events(owner_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun records a finished run and its kudos events. Saving the same
// run twice replaces its events.
func (s *Store) SaveRun(ctx context.Context, sum types.RunSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, mode, started_at, finished_at, self_id, passes, kudos_given, stop_reason, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			passes = excluded.passes,
			kudos_given = excluded.kudos_given,
			stop_reason = excluded.stop_reason,
			error = excluded.error
	`, sum.ID, string(sum.Mode), sum.StartedAt, sum.FinishedAt, sum.SelfID,
		sum.Passes, sum.KudosGiven, string(sum.StopReason), sum.Error)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM kudos_events WHERE run_id = ?`, sum.ID); err != nil {
		return err
	}
	for _, e := range sum.Events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kudos_events (run_id, owner_id, pass, given_at)
			VALUES (?, ?, ?, ?)
		`, sum.ID, e.OwnerID, e.Pass, e.GivenAt)
		if err != nil {
			return fmt.Errorf("failed to save kudos event: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the latest runs, newest first, without their events.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]types.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, started_at, finished_at, self_id, passes, kudos_given, stop_reason, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []types.RunSummary
	for rows.Next() {
		var r types.RunSummary
		var mode, reason string
		var selfID, runErr sql.NullString

		err := rows.Scan(&r.ID, &mode, &r.StartedAt, &r.FinishedAt, &selfID,
			&r.Passes, &r.KudosGiven, &reason, &runErr)
		if err != nil {
			return nil, err
		}
		r.Mode = types.Mode(mode)
		r.StopReason = types.StopReason(reason)
		r.SelfID = selfID.String
		r.Error = runErr.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// AthleteCount is the number of kudos one athlete received across runs.
type AthleteCount struct {
	OwnerID string
	Kudos   int
}

// TopAthletes returns the athletes given the most kudos. Events with an
// unknown owner are not counted.
func (s *Store) TopAthletes(ctx context.Context, limit int) ([]AthleteCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, COUNT(*) AS n
		FROM kudos_events
		WHERE owner_id IS NOT NULL AND owner_id != ''
		GROUP BY owner_id
		ORDER BY n DESC, owner_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AthleteCount
	for rows.Next() {
		var a AthleteCount
		if err := rows.Scan(&a.OwnerID, &a.Kudos); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// TotalKudos returns the kudos given across every recorded run.
func (s *Store) TotalKudos(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(kudos_given), 0) FROM runs`).Scan(&n)
	return n, err
}
