// Package model contains domain models passed between layers.
package model

// TierCount is the number of recognized difficulty tiers per song.
const TierCount = 5

// UtageThreshold marks the start of the utage (event chart) ID range.
// The upstream catalog allocates six-digit IDs to utage charts; this is
// an ID-allocation convention, not a flag in the feed, and may need
// revisiting if the allocation scheme changes.
const UtageThreshold = 100000

// CatalogEntry is one song's canonical metadata record.
// Entries are immutable values owned by the catalog snapshot; a refresh
// replaces the whole snapshot rather than mutating entries in place.
type CatalogEntry struct {
	ID    int                `json:"id"`
	Title string             `json:"title"`
	Type  string             `json:"type"` // chart category, e.g. "DX" or "SD"
	DS    [TierCount]float64 `json:"ds"`   // per-tier chart constant
	Level [TierCount]string  `json:"level"`
}

// IsUtage reports whether the entry is an event chart, which is always
// excluded from normal resolution.
func (e CatalogEntry) IsUtage() bool {
	return e.ID >= UtageThreshold
}

// AliasGroup binds one song ID to a set of alternate name strings.
// A group whose SongID has no catalog row is tolerated; it simply never
// matches anything.
type AliasGroup struct {
	SongID  int      `json:"song_id"`
	Aliases []string `json:"aliases"`
}
