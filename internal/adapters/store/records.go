package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yukko233/maimai-raking/internal/domain/model"
)

// SavePlayerProfile upserts a player's fetched profile. The record list
// is stored as one JSON document; nickname and rating are denormalized
// for cheap rating-leaderboard reads.
func (s *Store) SavePlayerProfile(ctx context.Context, profile model.PlayerProfile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO player_records (player_id, nickname, rating, document, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (player_id) DO UPDATE SET
			nickname = excluded.nickname,
			rating = excluded.rating,
			document = excluded.document,
			updated_at = excluded.updated_at`,
		profile.PlayerID, profile.Nickname, profile.Rating, string(doc),
		time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// PlayerProfile loads a player's stored profile. Returns ErrNotFound if
// the player has never been refreshed.
func (s *Store) PlayerProfile(ctx context.Context, playerID string) (model.PlayerProfile, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM player_records WHERE player_id = ?", playerID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlayerProfile{}, ErrNotFound
	}
	if err != nil {
		return model.PlayerProfile{}, fmt.Errorf("query profile: %w", err)
	}

	var profile model.PlayerProfile
	if err := json.Unmarshal([]byte(doc), &profile); err != nil {
		return model.PlayerProfile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	return profile, nil
}

// Players loads the rating-leaderboard view for the given player IDs,
// preserving input order. Players never refreshed appear with a zero
// rating, which excludes them from the population downstream.
func (s *Store) Players(ctx context.Context, playerIDs []string) ([]model.Player, error) {
	players := make([]model.Player, 0, len(playerIDs))
	for _, id := range playerIDs {
		var p model.Player
		err := s.db.QueryRowContext(ctx,
			"SELECT player_id, nickname, rating FROM player_records WHERE player_id = ?",
			id).Scan(&p.PlayerID, &p.Nickname, &p.Rating)
		if errors.Is(err, sql.ErrNoRows) {
			players = append(players, model.Player{PlayerID: id})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("query player: %w", err)
		}
		players = append(players, p)
	}
	return players, nil
}
