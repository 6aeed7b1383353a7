// Package store persists group membership, player records, custom
// aliases, refresh quota counters, and feed caches in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS groups (
    group_id   TEXT PRIMARY KEY,
    enabled    INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id  TEXT NOT NULL,
    player_id TEXT NOT NULL,
    joined_at TEXT NOT NULL,
    PRIMARY KEY (group_id, player_id)
);

CREATE TABLE IF NOT EXISTS player_records (
    player_id  TEXT PRIMARY KEY,
    nickname   TEXT NOT NULL DEFAULT '',
    rating     INTEGER NOT NULL DEFAULT 0,
    document   TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS custom_aliases (
    song_id    INTEGER NOT NULL,
    alias      TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS custom_aliases_lower ON custom_aliases (lower(alias));

CREATE TABLE IF NOT EXISTS refresh_quota (
    player_id TEXT NOT NULL,
    date      TEXT NOT NULL,
    count     INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (player_id, date)
);

CREATE TABLE IF NOT EXISTS alias_cache (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    payload    BLOB NOT NULL,
    fetched_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cover_cache (
    song_id   INTEGER PRIMARY KEY,
    data      BLOB NOT NULL,
    cached_at TEXT NOT NULL
);
`

// Option applies a configuration option on Open.
type Option func(*settings)

type settings struct {
	busyTimeoutMS int
	synchronous   string
	mkdirAll      bool
}

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(s *settings) {
		if ms > 0 {
			s.busyTimeoutMS = ms
		}
	}
}

// WithSynchronous sets PRAGMA synchronous.
func WithSynchronous(mode string) Option {
	return func(s *settings) {
		if mode != "" {
			s.synchronous = mode
		}
	}
}

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option {
	return func(s *settings) { s.mkdirAll = true }
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path, applies the
// production pragmas, and ensures the schema. Use ":memory:" in tests.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	cfg := settings{
		busyTimeoutMS: 10_000,
		synchronous:   "NORMAL",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeoutMS),
		"PRAGMA synchronous = " + cfg.synchronous,
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
