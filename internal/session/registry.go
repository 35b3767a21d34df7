// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"
)

const registryFile = "sessions.db"

// Record is one session's registry row.
type Record struct {
	ChatID      string    `json:"chat_id" yaml:"chat_id"`
	Query       string    `json:"query" yaml:"query"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	TotalPapers int       `json:"total_papers" yaml:"total_papers"`
	Evaluated   int       `json:"evaluated" yaml:"evaluated"`
	Downloaded  int       `json:"downloaded" yaml:"downloaded"`
}

// Registry tracks past sessions in a SQLite database under the base
// directory, so sessions remain discoverable after their artifacts are
// archived or pruned.
type Registry struct {
	db *sql.DB
}

// OpenRegistry opens or creates the session registry at baseDir/sessions.db.
func OpenRegistry(baseDir string) (*Registry, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, registryFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}

	r := &Registry{db: db}
	if err := r.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating registry schema: %w", err)
	}
	return r, nil
}

// Close releases the database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

func (r *Registry) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			chat_id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			created_at TEXT NOT NULL,
			total_papers INTEGER NOT NULL DEFAULT 0,
			evaluated INTEGER NOT NULL DEFAULT 0,
			downloaded INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record upserts one session row. Re-recording a chat ID updates its counts.
func (r *Registry) Record(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = timeNow()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (chat_id, query, created_at, total_papers, evaluated, downloaded)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
			query=excluded.query,
			total_papers=excluded.total_papers,
			evaluated=excluded.evaluated,
			downloaded=excluded.downloaded`,
		rec.ChatID, rec.Query, rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.TotalPapers, rec.Evaluated, rec.Downloaded)
	if err != nil {
		return fmt.Errorf("recording session %s: %w", rec.ChatID, err)
	}
	return nil
}

// Lookup returns one session's record, or sql.ErrNoRows when unknown.
func (r *Registry) Lookup(ctx context.Context, chatID string) (Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT chat_id, query, created_at, total_papers, evaluated, downloaded
		 FROM sessions WHERE chat_id = ?`, chatID)
	return scanRecord(row)
}

// List returns all sessions, newest first.
func (r *Registry) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT chat_id, query, created_at, total_papers, evaluated, downloaded
		 FROM sessions ORDER BY created_at DESC, chat_id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ExportYAML writes all session records as YAML.
func (r *Registry) ExportYAML(ctx context.Context, w io.Writer) error {
	records, err := r.List(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshaling sessions: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	var createdAt string
	if err := s.Scan(&rec.ChatID, &rec.Query, &createdAt, &rec.TotalPapers, &rec.Evaluated, &rec.Downloaded); err != nil {
		return Record{}, err
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}
