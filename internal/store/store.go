// SPDX-License-Identifier: MIT

// Package store persists render job history in SQLite so the daemon can
// answer status queries across restarts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

const schemaVersion = 1

// JobRecord is one persisted render job.
type JobRecord struct {
	ID         string
	Style      string
	State      string
	Output     string
	DurationMS int64
	Width      int
	Height     int
	Warnings   []string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store wraps the job-history database. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open initializes the database at path, applying WAL mode and busy
// timeout through the DSN so every pooled connection gets them.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(4)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		style TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		output TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		warnings TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Create registers a new pending job.
func (s *Store) Create(ctx context.Context, id, style string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, style, state, created_at, updated_at) VALUES (?, ?, 'pending', ?, ?)`,
		id, style, now, now,
	)
	return err
}

// SetState records a lifecycle transition.
func (s *Store) SetState(ctx context.Context, id, state string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, updated_at = ? WHERE id = ?`,
		state, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// Finish records the terminal outcome of a job.
func (s *Store) Finish(ctx context.Context, id, state, output string, duration time.Duration, width, height int, warnings []string, jobErr string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, output = ?, duration_ms = ?, width = ?, height = ?, warnings = ?, error = ?, updated_at = ?
		 WHERE id = ?`,
		state, output, duration.Milliseconds(), width, height,
		strings.Join(warnings, "\n"), jobErr,
		time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	return err
}

// Get returns one job, or nil when unknown.
func (s *Store) Get(ctx context.Context, id string) (*JobRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, style, state, output, duration_ms, width, height, warnings, error, created_at, updated_at
		 FROM jobs WHERE id = ?`, id,
	)
	rec, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Recent returns the newest jobs, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, style, state, output, duration_ms, width, height, warnings, error, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*JobRecord, error) {
	var rec JobRecord
	var warnings, created, updated string
	err := sc.Scan(
		&rec.ID, &rec.Style, &rec.State, &rec.Output,
		&rec.DurationMS, &rec.Width, &rec.Height,
		&warnings, &rec.Error, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	if warnings != "" {
		rec.Warnings = strings.Split(warnings, "\n")
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &rec, nil
}
