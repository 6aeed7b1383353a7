package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// The Store implements quota.CounterStore over the refresh_quota table.

// Count returns the refresh counter for a (player, date) pair, 0 if absent.
func (s *Store) Count(ctx context.Context, playerID, date string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT count FROM refresh_quota WHERE player_id = ? AND date = ?",
		playerID, date).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query quota: %w", err)
	}
	return n, nil
}

// Increment adds one to the counter, creating it at 1 if absent.
func (s *Store) Increment(ctx context.Context, playerID, date string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_quota (player_id, date, count) VALUES (?, ?, 1)
		ON CONFLICT (player_id, date) DO UPDATE SET count = count + 1`,
		playerID, date)
	if err != nil {
		return fmt.Errorf("increment quota: %w", err)
	}
	return nil
}

// Clear removes the counter for a (player, date) pair. Idempotent.
func (s *Store) Clear(ctx context.Context, playerID, date string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM refresh_quota WHERE player_id = ? AND date = ?",
		playerID, date)
	if err != nil {
		return fmt.Errorf("clear quota: %w", err)
	}
	return nil
}
