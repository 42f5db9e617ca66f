// Package history records build and run results in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Run is one recorded backend invocation.
type Run struct {
	ID        string
	Mode      string
	Project   string
	Path      string
	OK        bool
	Message   string
	StartedAt time.Time
	Duration  time.Duration
}

// Recorder stores and lists runs.
type Recorder interface {
	Record(ctx context.Context, r Run) error
	Recent(ctx context.Context, n int) ([]Run, error)
}

// Store is the SQLite-backed Recorder.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			project TEXT NOT NULL,
			path TEXT NOT NULL,
			ok INTEGER NOT NULL,
			message TEXT,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run.
func (s *Store) Record(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO runs (id, mode, project, path, ok, message, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.Mode, r.Project, r.Path, boolToInt(r.OK), r.Message, r.StartedAt.UnixMilli(), r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, mode, project, path, ok, message, started_at, duration_ms FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			ok         int
			message    sql.NullString
			startedAt  int64
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.Mode, &r.Project, &r.Path, &ok, &message, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.OK = ok != 0
		r.Message = message.String
		r.StartedAt = time.UnixMilli(startedAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Nop discards records; used when the database cannot be opened.
type Nop struct{}

func (Nop) Record(context.Context, Run) error          { return nil }
func (Nop) Recent(context.Context, int) ([]Run, error) { return nil, nil }
