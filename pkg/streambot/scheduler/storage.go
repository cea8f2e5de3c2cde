package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// JobStorage persists scheduler jobs.
type JobStorage interface {
	Save(job *Job) error
	Delete(id string) error
	LoadAll() ([]*Job, error)
}

// SQLiteJobStorage stores jobs in a local SQLite database.
type SQLiteJobStorage struct {
	db *sql.DB
}

// OpenSQLiteJobStorage opens (or creates) the database at path and ensures
// the scheduled_posts table exists.
func OpenSQLiteJobStorage(path string) (*SQLiteJobStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening scheduler db: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scheduled_posts (
			id          TEXT PRIMARY KEY,
			schedule    TEXT NOT NULL,
			text        TEXT NOT NULL,
			enabled     INTEGER NOT NULL DEFAULT 1,
			created_at  TEXT NOT NULL,
			last_run_at TEXT,
			last_error  TEXT,
			run_count   INTEGER NOT NULL DEFAULT 0
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating scheduled_posts table: %w", err)
	}
	return &SQLiteJobStorage{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteJobStorage) Close() error { return s.db.Close() }

// Save persists a job (insert or update).
func (s *SQLiteJobStorage) Save(job *Job) error {
	var lastRunAt sql.NullString
	if job.LastRunAt != nil {
		lastRunAt = sql.NullString{String: job.LastRunAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO scheduled_posts
			(id, schedule, text, enabled, created_at, last_run_at, last_error, run_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Schedule,
		job.Text,
		boolToInt(job.Enabled),
		job.CreatedAt.UTC().Format(time.RFC3339),
		lastRunAt,
		job.LastError,
		job.RunCount,
	)
	if err != nil {
		return fmt.Errorf("save job %q: %w", job.ID, err)
	}
	return nil
}

// Delete removes a job by id.
func (s *SQLiteJobStorage) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM scheduled_posts WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete job %q: %w", id, err)
	}
	return nil
}

// LoadAll reads all persisted jobs.
func (s *SQLiteJobStorage) LoadAll() ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT id, schedule, text, enabled, created_at, last_run_at, last_error, run_count
		FROM scheduled_posts`)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var (
			j         Job
			enabled   int
			createdAt string
			lastRunAt sql.NullString
		)
		if err := rows.Scan(&j.ID, &j.Schedule, &j.Text, &enabled, &createdAt, &lastRunAt, &j.LastError, &j.RunCount); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Enabled = enabled != 0
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if lastRunAt.Valid {
			t, _ := time.Parse(time.RFC3339, lastRunAt.String)
			j.LastRunAt = &t
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
