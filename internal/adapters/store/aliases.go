package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukko233/maimai-raking/internal/domain/model"
)

// AddCustomAlias binds an operator-curated alias to a song. Alias text
// is unique case-insensitively across the whole table; a collision
// returns ErrDuplicateAlias. Collisions with official feed aliases are
// not checked here — the resolver tolerates duplicate alias text across
// provenances.
func (s *Store) AddCustomAlias(ctx context.Context, songID int, alias string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return fmt.Errorf("add alias: empty alias text")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO custom_aliases (song_id, alias, created_at) VALUES (?, ?, ?)",
		songID, alias, time.Now().Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateAlias
		}
		return fmt.Errorf("add alias: %w", err)
	}
	return nil
}

// RemoveCustomAlias deletes an alias by its text, case-insensitively.
// Idempotent.
func (s *Store) RemoveCustomAlias(ctx context.Context, alias string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM custom_aliases WHERE lower(alias) = lower(?)", strings.TrimSpace(alias))
	if err != nil {
		return fmt.Errorf("remove alias: %w", err)
	}
	return nil
}

// CustomAliases returns all operator-curated aliases grouped by song,
// in insertion order within each group. The catalog store re-reads this
// on every snapshot rebuild.
func (s *Store) CustomAliases(ctx context.Context) ([]model.AliasGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT song_id, alias FROM custom_aliases ORDER BY song_id, created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	var groups []model.AliasGroup
	byID := make(map[int]int)
	for rows.Next() {
		var songID int
		var alias string
		if err := rows.Scan(&songID, &alias); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		if pos, ok := byID[songID]; ok {
			groups[pos].Aliases = append(groups[pos].Aliases, alias)
			continue
		}
		byID[songID] = len(groups)
		groups = append(groups, model.AliasGroup{SongID: songID, Aliases: []string{alias}})
	}
	return groups, rows.Err()
}
