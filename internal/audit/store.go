package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	id          TEXT PRIMARY KEY,
	created_at  TIMESTAMP NOT NULL,
	ok          INTEGER NOT NULL,
	error_class TEXT NOT NULL,
	request     TEXT NOT NULL,
	response    TEXT NOT NULL
)`

// Entry is one persisted attempt. Only redacted data is stored.
type Entry struct {
	AttemptID  string         `json:"attempt_id"`
	CreatedAt  time.Time      `json:"created_at"`
	OK         bool           `json:"ok"`
	ErrorClass string         `json:"error_class"`
	Request    Record         `json:"request_audit"`
	Response   map[string]any `json:"response_audit"`
}

// Store persists audit entries in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts e.
func (s *Store) Save(ctx context.Context, e Entry) error {
	req, err := json.Marshal(e.Request)
	if err != nil {
		return fmt.Errorf("marshal request audit: %w", err)
	}
	resp, err := json.Marshal(e.Response)
	if err != nil {
		return fmt.Errorf("marshal response audit: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, created_at, ok, error_class, request, response) VALUES (?, ?, ?, ?, ?, ?)`,
		e.AttemptID, e.CreatedAt.UTC(), e.OK, e.ErrorClass, string(req), string(resp))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, ok, error_class, request, response FROM attempts ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			req, resp string
		)
		if err := rows.Scan(&e.AttemptID, &e.CreatedAt, &e.OK, &e.ErrorClass, &req, &resp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(req), &e.Request); err != nil {
			return nil, fmt.Errorf("decode request audit: %w", err)
		}
		if err := json.Unmarshal([]byte(resp), &e.Response); err != nil {
			return nil, fmt.Errorf("decode response audit: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
