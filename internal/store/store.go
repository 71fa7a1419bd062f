// Package store persists a journal of runner invocations to sqlite, so
// the status dashboard and CLI can report history across restarts. The
// connection pragmas and table-creation shape are grounded on the
// original tool's sqlite.go.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mzuther/lalikan/internal/backuplevel"
)

// Store wraps a single sqlite connection holding the run journal.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// applies the same concurrency-friendly pragmas the original tool used:
// WAL journalling, a generous busy timeout, and normal synchronous mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: failed to set %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT NOT NULL,
		job TEXT NOT NULL,
		level TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		status TEXT NOT NULL DEFAULT 'running',
		error_message TEXT,
		pruned_count INTEGER DEFAULT 0
	)`)
	if err != nil {
		return fmt.Errorf("store: failed to create runs table: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// RunRecord is one row of the run journal.
type RunRecord struct {
	ID           int64
	ExternalID   string
	Job          string
	Level        backuplevel.Level
	StartedAt    time.Time
	CompletedAt  sql.NullTime
	Status       string
	ErrorMessage string
	PrunedCount  int
}

// BeginRun records the start of a run and returns its row id together
// with a UUID that identifies the run independently of the row id, so
// it can be quoted in logs and notifications without leaking (or
// depending on) the journal's internal auto-increment sequence.
func (s *Store) BeginRun(job string, level backuplevel.Level, startedAt time.Time) (int64, string, error) {
	externalID := uuid.New().String()
	res, err := s.db.Exec(
		`INSERT INTO runs (external_id, job, level, started_at, status) VALUES (?, ?, ?, ?, 'running')`,
		externalID, job, level.String(), startedAt,
	)
	if err != nil {
		return 0, "", fmt.Errorf("store: failed to record run start: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("store: failed to read run id: %w", err)
	}
	return id, externalID, nil
}

// FinishRun closes out a previously begun run with its outcome.
func (s *Store) FinishRun(id int64, completedAt time.Time, runErr error, prunedCount int) error {
	status := "ok"
	message := ""
	if runErr != nil {
		status = "failed"
		message = runErr.Error()
	}

	_, err := s.db.Exec(
		`UPDATE runs SET completed_at = ?, status = ?, error_message = ?, pruned_count = ? WHERE id = ?`,
		completedAt, status, message, prunedCount, id,
	)
	if err != nil {
		return fmt.Errorf("store: failed to record run completion: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs for job, newest first, capped
// at limit rows.
func (s *Store) RecentRuns(job string, limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, external_id, job, level, started_at, completed_at, status, error_message, pruned_count
		 FROM runs WHERE job = ? ORDER BY started_at DESC LIMIT ?`,
		job, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query recent runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var levelStr string
		if err := rows.Scan(&r.ID, &r.ExternalID, &r.Job, &levelStr, &r.StartedAt, &r.CompletedAt, &r.Status, &r.ErrorMessage, &r.PrunedCount); err != nil {
			return nil, fmt.Errorf("store: failed to scan run row: %w", err)
		}
		level, err := backuplevel.FromSuffix(levelStr)
		if err == nil {
			r.Level = level
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
