package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// The Store implements aliasfeed.Cache over the alias_cache table, plus
// a song cover blob cache.

// LoadAliasFeed returns the cached feed payload and when it was
// fetched. A miss returns a nil payload and no error.
func (s *Store) LoadAliasFeed(ctx context.Context) ([]byte, time.Time, error) {
	var payload []byte
	var fetchedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, fetched_at FROM alias_cache WHERE id = 1").Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query alias cache: %w", err)
	}
	at, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		// Unparseable timestamp: treat as a stale hit.
		return payload, time.Time{}, nil
	}
	return payload, at, nil
}

// SaveAliasFeed replaces the cached feed payload.
func (s *Store) SaveAliasFeed(ctx context.Context, payload []byte, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alias_cache (id, payload, fetched_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		payload, fetchedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save alias cache: %w", err)
	}
	return nil
}

// Cover returns cached artwork bytes for a song. Returns ErrNotFound on
// a miss.
func (s *Store) Cover(ctx context.Context, songID int) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM cover_cache WHERE song_id = ?", songID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cover cache: %w", err)
	}
	return data, nil
}

// SaveCover caches artwork bytes for a song.
func (s *Store) SaveCover(ctx context.Context, songID int, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cover_cache (song_id, data, cached_at) VALUES (?, ?, ?)
		ON CONFLICT (song_id) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at`,
		songID, data, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save cover cache: %w", err)
	}
	return nil
}
