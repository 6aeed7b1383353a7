// Package catalog holds the current song catalog snapshot and keeps it
// fresh. A refresh builds a complete new snapshot off to the side and
// publishes it with a single atomic pointer swap, so a resolution call
// sees either the old catalog or the new one, never a mix of old titles
// with new aliases.
package catalog

import (
	"time"

	"github.com/yukko233/maimai-raking/internal/domain/model"
	"github.com/yukko233/maimai-raking/internal/domain/resolver"
)

// Snapshot is one immutable, fully-consistent view of the catalog:
// entries in feed order plus the merged alias pool (official first, then
// custom) baked into a resolution index.
type Snapshot struct {
	builtAt time.Time
	index   *resolver.Index
	aliases int
}

// NewSnapshot builds a snapshot from catalog entries and the two alias
// provenances. Official aliases merge before custom ones, which fixes
// the tie-break order for equal-scored fuzzy matches.
func NewSnapshot(entries []model.CatalogEntry, official, custom []model.AliasGroup) *Snapshot {
	merged := make([]model.AliasGroup, 0, len(official)+len(custom))
	merged = append(merged, official...)
	merged = append(merged, custom...)

	aliases := 0
	for _, g := range merged {
		aliases += len(g.Aliases)
	}

	return &Snapshot{
		builtAt: time.Now(),
		index:   resolver.NewIndex(entries, merged),
		aliases: aliases,
	}
}

// Resolve matches a free-text query against the snapshot.
func (s *Snapshot) Resolve(query string) (model.CatalogEntry, bool) {
	return s.index.Resolve(query)
}

// Lookup returns the entry with the given ID, resolution rules aside.
func (s *Snapshot) Lookup(id int) (model.CatalogEntry, bool) {
	return s.index.Lookup(id)
}

// Entries returns the snapshot's catalog entries in merge order.
func (s *Snapshot) Entries() []model.CatalogEntry {
	return s.index.Entries()
}

// Songs returns the number of catalog entries.
func (s *Snapshot) Songs() int {
	return len(s.index.Entries())
}

// Aliases returns the number of merged alias strings.
func (s *Snapshot) Aliases() int {
	return s.aliases
}

// BuiltAt returns when the snapshot was assembled.
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// Age returns how long ago the snapshot was assembled.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.builtAt)
}
