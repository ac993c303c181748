// Package history keeps a local record of audit runs so regressions can be
// traced across CI builds. Recording is best-effort: a broken store must
// never fail an audit.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run is one completed (or exhausted) audit run.
type Run struct {
	ID               string
	URL              string
	AuditType        string
	Attempts         int
	Success          bool
	PerformanceScore float64
	CreatedAt        time.Time
}

type Store struct {
	db *sql.DB
}

// Open initializes the sqlite store, creating the file and schema on first
// use.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	// SQLite, single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS audit_runs (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		audit_type TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		success INTEGER NOT NULL,
		performance_score REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init history schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one run, generating its ID and timestamp.
func (s *Store) Record(run Run) (string, error) {
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO audit_runs (id, url, audit_type, attempts, success, performance_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.URL, run.AuditType, run.Attempts, run.Success, run.PerformanceScore, run.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record audit run: %w", err)
	}
	return run.ID, nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, url, audit_type, attempts, success, performance_score, created_at
		 FROM audit_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.URL, &r.AuditType, &r.Attempts, &r.Success, &r.PerformanceScore, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
