package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnableGroup turns the leaderboard on for a group, creating it if needed.
func (s *Store) EnableGroup(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (group_id, enabled, created_at) VALUES (?, 1, ?)
		ON CONFLICT (group_id) DO UPDATE SET enabled = 1`,
		groupID, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("enable group: %w", err)
	}
	return nil
}

// DisableGroup turns the leaderboard off for a group. Membership is kept.
func (s *Store) DisableGroup(ctx context.Context, groupID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE groups SET enabled = 0 WHERE group_id = ?", groupID)
	if err != nil {
		return fmt.Errorf("disable group: %w", err)
	}
	return nil
}

// GroupEnabled reports whether the group exists and is enabled.
func (s *Store) GroupEnabled(ctx context.Context, groupID string) (bool, error) {
	var enabled int
	err := s.db.QueryRowContext(ctx,
		"SELECT enabled FROM groups WHERE group_id = ?", groupID).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query group: %w", err)
	}
	return enabled == 1, nil
}

// EnabledGroups lists all enabled group IDs.
func (s *Store) EnabledGroups(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id FROM groups WHERE enabled = 1 ORDER BY group_id")
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddMember enrolls a player in a group's leaderboard. Idempotent.
func (s *Store) AddMember(ctx context.Context, groupID, playerID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, player_id, joined_at) VALUES (?, ?, ?)
		ON CONFLICT (group_id, player_id) DO NOTHING`,
		groupID, playerID, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember removes a player from a group's leaderboard. Idempotent.
func (s *Store) RemoveMember(ctx context.Context, groupID, playerID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND player_id = ?",
		groupID, playerID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// IsMember reports whether the player is enrolled in the group.
func (s *Store) IsMember(ctx context.Context, groupID, playerID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM group_members WHERE group_id = ? AND player_id = ?",
		groupID, playerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query member: %w", err)
	}
	return true, nil
}

// GroupMembers lists the players enrolled in a group, in join order.
func (s *Store) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT player_id FROM group_members WHERE group_id = ? ORDER BY joined_at, player_id",
		groupID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AllPlayers lists every player enrolled in any group, once each.
func (s *Store) AllPlayers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT player_id FROM group_members ORDER BY player_id")
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
