// ABOUTME: SQLite-backed durable store for pipeline run records with upsert, lookup, list, and search.
// ABOUTME: Metadata is a JSON column that round-trips through structured (de)serialization.
package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RunRecord is the durable record of one pipeline execution. Records are
// whole-record upserts keyed by RunID; there are no partial field updates.
type RunRecord struct {
	RunID          string         `json:"run_id"`
	CallerID       string         `json:"caller_id"`
	Prompt         string         `json:"prompt"`
	EnhancedPrompt string         `json:"enhanced_prompt"`
	ImagePath      string         `json:"image_path"`
	ModelPath      string         `json:"model_path"`
	CreatedAt      time.Time      `json:"created_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Store is a SQLite-backed run store. The underlying *sql.DB serializes
// concurrent writes and allows concurrent reads; callers share a single
// Store for the process lifetime.
type Store struct {
	db *sql.DB
}

// Open opens or creates the run database at the given path. The schema is
// created idempotently, so opening an existing database is a no-op beyond
// the connection.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			caller_id TEXT NOT NULL,
			prompt TEXT NOT NULL,
			enhanced_prompt TEXT NOT NULL,
			image_path TEXT NOT NULL,
			model_path TEXT NOT NULL,
			created_at TEXT NOT NULL,
			metadata TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_caller ON runs(caller_id, created_at DESC);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun upserts a run record by run_id. An existing record with the same
// id is replaced wholesale.
func (s *Store) SaveRun(rec *RunRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, caller_id, prompt, enhanced_prompt, image_path, model_path, created_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			caller_id = excluded.caller_id,
			prompt = excluded.prompt,
			enhanced_prompt = excluded.enhanced_prompt,
			image_path = excluded.image_path,
			model_path = excluded.model_path,
			created_at = excluded.created_at,
			metadata = excluded.metadata`,
		rec.RunID,
		rec.CallerID,
		rec.Prompt,
		rec.EnhancedPrompt,
		rec.ImagePath,
		rec.ModelPath,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(metadata),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// GetRun returns the record for a run id. The second return value is false
// when no record exists.
func (s *Store) GetRun(runID string) (*RunRecord, bool, error) {
	row := s.db.QueryRow(
		`SELECT run_id, caller_id, prompt, enhanced_prompt, image_path, model_path, created_at, metadata
		 FROM runs WHERE run_id = ?`, runID)

	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query run: %w", err)
	}
	return rec, true, nil
}

// ListRunsForCaller returns all runs belonging to a caller, most recent
// first.
func (s *Store) ListRunsForCaller(callerID string) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, caller_id, prompt, enhanced_prompt, image_path, model_path, created_at, metadata
		 FROM runs WHERE caller_id = ? ORDER BY created_at DESC`, callerID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return collectRuns(rows)
}

// SearchRuns returns runs whose raw or enhanced prompt contains the query
// as a substring, most recent first. Matching uses SQL LIKE, which is
// case-insensitive for ASCII.
func (s *Store) SearchRuns(query string) ([]RunRecord, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(
		`SELECT run_id, caller_id, prompt, enhanced_prompt, image_path, model_path, created_at, metadata
		 FROM runs WHERE prompt LIKE ? OR enhanced_prompt LIKE ? ORDER BY created_at DESC`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search runs: %w", err)
	}
	return collectRuns(rows)
}

// rowScanner matches both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var createdAt, metadata string
	if err := row.Scan(&rec.RunID, &rec.CallerID, &rec.Prompt, &rec.EnhancedPrompt,
		&rec.ImagePath, &rec.ModelPath, &createdAt, &metadata); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = ts

	if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &rec, nil
}

func collectRuns(rows *sql.Rows) ([]RunRecord, error) {
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, *rec)
	}
	return runs, rows.Err()
}
