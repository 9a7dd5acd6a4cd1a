// Package history records game launches in a small SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS launches (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id    TEXT    NOT NULL,
	pid        INTEGER NOT NULL DEFAULT 0,
	started_at INTEGER NOT NULL,
	result     TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS launches_started_at ON launches (started_at);
`

// MaxLimit caps how many entries Recent returns.
const MaxLimit = 100

// Launch results. Only these codes are stored; error details stay in the logs.
const (
	ResultStarted  = "started"
	ResultNotFound = "not_found"
	ResultFailed   = "failed"
)

// Entry is one launch attempt.
type Entry struct {
	ID        int64     `json:"id"`
	GameID    string    `json:"game_id"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Result    string    `json:"result"`
}

// Store persists launch entries.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn and applies the schema. Use
// ":memory:" for a throwaway database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e and returns it with its assigned ID.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO launches (game_id, pid, started_at, result) VALUES (?, ?, ?, ?)`,
		e.GameID, e.PID, e.StartedAt.UnixMilli(), e.Result,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("history: record: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("history: record: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first. Non-positive limits select
// 20; limits above MaxLimit are capped.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	switch {
	case limit <= 0:
		limit = 20
	case limit > MaxLimit:
		limit = MaxLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, pid, started_at, result FROM launches ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.GameID, &e.PID, &ms, &e.Result); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.StartedAt = time.UnixMilli(ms)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return entries, nil
}
