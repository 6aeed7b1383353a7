package model

import "time"

// ScoreRecord is one player's result on one (song, difficulty tier) pair.
// Records arrive from the prober as loosely-typed documents and are mapped
// to this shape at the ingestion boundary with documented defaults:
// missing achievement -> 0, missing tags -> "".
type ScoreRecord struct {
	SongID       int     `json:"song_id"`
	Title        string  `json:"title"`
	Achievements float64 `json:"achievements"`
	FC           string  `json:"fc"` // full-combo qualifier tag
	FS           string  `json:"fs"` // full-sync qualifier tag
	Rate         string  `json:"rate"`
	LevelIndex   int     `json:"level_index"`
	LevelLabel   string  `json:"level_label"`
	DS           float64 `json:"ds"`
}

// PlayerProfile is the prober view of one player: display name, cached
// rating, and the full score record list.
type PlayerProfile struct {
	PlayerID  string        `json:"player_id"`
	Nickname  string        `json:"nickname"`
	Rating    int           `json:"rating"`
	Records   []ScoreRecord `json:"records"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Player is a rating-leaderboard row. A zero Rating means the player has
// no cached rating and is excluded from the population.
type Player struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	Rating   int    `json:"rating"`
}

// RankingRow is one song-leaderboard row. Derived and ephemeral; built
// for a single aggregation call and never persisted.
type RankingRow struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	ScoreRecord
}
