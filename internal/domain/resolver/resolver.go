// Package resolver matches free-text song queries against the catalog.
//
// Resolution runs five tiers in order and returns on the first tier that
// yields a candidate: exact numeric ID, exact title, exact alias, fuzzy
// title, fuzzy alias. The two fuzzy tiers pool their candidates and the
// highest score wins; ties keep first-seen order, so results are stable
// for a given catalog merge order.
package resolver

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yukko233/maimai-raking/internal/domain/model"
)

// Match scores. Exact tiers short-circuit before any of these are
// compared; within the fuzzy pool a higher score always wins.
const (
	scoreTitleEqual    = 100
	scoreTitlePrefix   = 90
	scoreTitleContains = 80

	scoreAliasEqual          = 95
	scoreAliasCompactEqual   = 93
	scoreAliasPrefix         = 85
	scoreAliasCompactPrefix  = 83
	scoreQueryPrefix         = 82
	scoreCompactQueryPrefix  = 80
	scoreAliasInQuery        = 78
	scoreCompactAliasInQuery = 76
	scoreQueryInAlias        = 75
	scoreCompactQueryInAlias = 73
)

// compactor strips the separators ignored by the compact comparison form.
var compactor = strings.NewReplacer(" ", "", "-", "", "_", "")

// aliasBinding is one alias string bound to a catalog entry position.
// Lower-cased and compact forms are precomputed at index build time so a
// query only normalizes itself.
type aliasBinding struct {
	entry   int // position in entries
	lower   string
	compact string
}

// Index is an immutable resolution structure built from one catalog
// snapshot. Build it once per refresh, never per query.
type Index struct {
	entries []model.CatalogEntry
	byID    map[int]int
	aliases []aliasBinding
}

// NewIndex builds a resolution index over entries and alias groups.
// Alias groups are flattened in the order given, which fixes the
// tie-break order for equal-scored matches. Aliases bound to utage
// entries or to song IDs absent from the catalog are dropped here, so
// the matching loops never need to re-check them.
func NewIndex(entries []model.CatalogEntry, groups []model.AliasGroup) *Index {
	ix := &Index{
		entries: entries,
		byID:    make(map[int]int, len(entries)),
	}
	for i, e := range entries {
		ix.byID[e.ID] = i
	}
	for _, g := range groups {
		pos, ok := ix.byID[g.SongID]
		if !ok || entries[pos].IsUtage() {
			continue
		}
		for _, a := range g.Aliases {
			lower := strings.ToLower(a)
			ix.aliases = append(ix.aliases, aliasBinding{
				entry:   pos,
				lower:   lower,
				compact: compactor.Replace(lower),
			})
		}
	}
	return ix
}

// Entries returns the catalog entries backing the index, in merge order.
func (ix *Index) Entries() []model.CatalogEntry {
	return ix.entries
}

// Lookup returns the catalog entry with the given ID, including utage
// entries. Resolution rules do not apply.
func (ix *Index) Lookup(id int) (model.CatalogEntry, bool) {
	pos, ok := ix.byID[id]
	if !ok {
		return model.CatalogEntry{}, false
	}
	return ix.entries[pos], true
}

// Resolve returns the best-matching catalog entry for a trimmed query.
// Empty input is the caller's problem; an empty query simply fails to
// match anything.
func (ix *Index) Resolve(query string) (model.CatalogEntry, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.CatalogEntry{}, false
	}

	// Tier 1: exact numeric ID. A hit on a utage ID is "no entry",
	// not an error.
	if isDigits(query) {
		if id, err := strconv.Atoi(query); err == nil {
			if pos, ok := ix.byID[id]; ok && !ix.entries[pos].IsUtage() {
				return ix.entries[pos], true
			}
		}
	}

	lower := strings.ToLower(query)

	// Tier 2: exact title.
	for _, e := range ix.entries {
		if e.IsUtage() {
			continue
		}
		if strings.ToLower(e.Title) == lower {
			return e, true
		}
	}

	// Tier 3: exact alias. Bindings already exclude utage and orphans.
	for _, b := range ix.aliases {
		if b.lower == lower {
			return ix.entries[b.entry], true
		}
	}

	// Tiers 4 and 5 pool scored candidates; best score wins and ties
	// keep first-seen order.
	best := model.CatalogEntry{}
	bestScore := 0

	consider := func(score int, e model.CatalogEntry) {
		if score > bestScore {
			bestScore = score
			best = e
		}
	}

	for _, e := range ix.entries {
		if e.IsUtage() {
			continue
		}
		title := strings.ToLower(e.Title)
		if !strings.Contains(title, lower) {
			continue
		}
		switch {
		case title == lower:
			consider(scoreTitleEqual, e)
		case strings.HasPrefix(title, lower):
			consider(scoreTitlePrefix, e)
		default:
			consider(scoreTitleContains, e)
		}
	}

	compact := compactor.Replace(lower)
	for _, b := range ix.aliases {
		if s := aliasScore(b, lower, compact); s > 0 {
			consider(s, ix.entries[b.entry])
		}
	}

	if bestScore == 0 {
		return model.CatalogEntry{}, false
	}
	return best, true
}

// aliasScore applies the fuzzy alias rules in priority order and returns
// the score of the first rule that fires, or 0. The length-ratio guards
// keep very short aliases from matching unrelated long queries purely by
// substring containment; a failed guard ends the chain rather than
// falling through to a weaker rule. Lengths are measured in runes, since
// aliases are frequently CJK.
func aliasScore(b aliasBinding, query, compactQuery string) int {
	aliasLen := utf8.RuneCountInString(b.lower)
	queryLen := utf8.RuneCountInString(query)
	caLen := utf8.RuneCountInString(b.compact)
	cqLen := utf8.RuneCountInString(compactQuery)

	switch {
	case b.lower == query:
		return scoreAliasEqual
	case b.compact == compactQuery && cqLen >= 3:
		return scoreAliasCompactEqual
	case strings.HasPrefix(b.lower, query):
		return scoreAliasPrefix
	case strings.HasPrefix(b.compact, compactQuery) && cqLen >= 3:
		return scoreAliasCompactPrefix
	case strings.HasPrefix(query, b.lower):
		if aliasLen >= 5 && float64(aliasLen)/float64(queryLen) >= 0.6 {
			return scoreQueryPrefix
		}
	case strings.HasPrefix(compactQuery, b.compact) && caLen >= 4:
		if float64(caLen)/float64(cqLen) >= 0.5 {
			return scoreCompactQueryPrefix
		}
	case strings.Contains(query, b.lower):
		if aliasLen >= 5 && float64(aliasLen)/float64(queryLen) >= 0.5 {
			return scoreAliasInQuery
		}
	case strings.Contains(compactQuery, b.compact) && caLen >= 4:
		if float64(caLen)/float64(cqLen) >= 0.4 {
			return scoreCompactAliasInQuery
		}
	case strings.Contains(b.lower, query):
		if queryLen >= 4 {
			return scoreQueryInAlias
		}
	case strings.Contains(b.compact, compactQuery) && cqLen >= 3:
		return scoreCompactQueryInAlias
	}
	return 0
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
