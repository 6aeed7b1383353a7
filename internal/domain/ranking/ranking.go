// Package ranking aggregates per-player score records into ranked,
// filtered leaderboard views. Both views share one shape: filter, stable
// sort descending, truncate.
package ranking

import (
	"sort"

	"github.com/yukko233/maimai-raking/internal/domain/model"
)

// Default view sizes and segment geometry.
const (
	defaultSongLimit   = 20
	defaultRatingLimit = 10

	// AnyTier selects the default difficulty view: the highest tier
	// actually present among the collected records.
	AnyTier = -1

	// NoSegment disables rating-segment filtering.
	NoSegment = -1

	segmentCount = 8
	segmentBase  = 10000
	segmentWidth = 1000
)

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithSongLimit caps the song leaderboard row count.
func WithSongLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.songLimit = n
		}
	}
}

// WithRatingLimit caps the rating leaderboard row count.
func WithRatingLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.ratingLimit = n
		}
	}
}

// Aggregator produces leaderboard views. It is stateless apart from its
// configured limits; every call is a pure computation over its inputs.
type Aggregator struct {
	songLimit   int
	ratingLimit int
}

// New creates an Aggregator with default limits.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		songLimit:   defaultSongLimit,
		ratingLimit: defaultRatingLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SongLeaderboard filters rows to one song, selects a difficulty tier,
// and returns the top rows by achievement. tier is an explicit tier
// index or AnyTier, in which case the highest tier present among the
// collected records is shown; the visible tier is data-dependent, not a
// fixed maximum. Equal achievements keep their input order.
func (a *Aggregator) SongLeaderboard(songID, tier int, rows []model.RankingRow) ([]model.RankingRow, error) {
	collected := make([]model.RankingRow, 0, len(rows))
	for _, r := range rows {
		if r.SongID == songID {
			collected = append(collected, r)
		}
	}
	if len(collected) == 0 {
		return nil, ErrEmptyPopulation
	}

	if tier == AnyTier {
		tier = collected[0].LevelIndex
		for _, r := range collected[1:] {
			if r.LevelIndex > tier {
				tier = r.LevelIndex
			}
		}
	}

	filtered := collected[:0]
	for _, r := range collected {
		if r.LevelIndex == tier {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return nil, ErrEmptyPopulation
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Achievements > filtered[j].Achievements
	})
	if len(filtered) > a.songLimit {
		filtered = filtered[:a.songLimit]
	}
	return filtered, nil
}

// SegmentBounds returns the closed rating interval for a segment
// selector: segment n covers [10000+1000n, 10999+1000n].
func SegmentBounds(segment int) (low, high int, err error) {
	if segment < 0 || segment >= segmentCount {
		return 0, 0, ErrInvalidSegment
	}
	low = segmentBase + segmentWidth*segment
	high = low + segmentWidth - 1
	return low, high, nil
}

// RatingLeaderboard ranks players by cached rating. segment is a
// selector 0-7 or NoSegment; an out-of-range selector is rejected before
// any aggregation work. Players without a cached rating are excluded.
// Returns the top rows plus the pre-truncation population size.
func (a *Aggregator) RatingLeaderboard(players []model.Player, segment int) ([]model.Player, int, error) {
	low, high := 0, 0
	if segment != NoSegment {
		var err error
		low, high, err = SegmentBounds(segment)
		if err != nil {
			return nil, 0, err
		}
	}

	pool := make([]model.Player, 0, len(players))
	for _, p := range players {
		if p.Rating <= 0 {
			continue
		}
		if segment != NoSegment && (p.Rating < low || p.Rating > high) {
			continue
		}
		pool = append(pool, p)
	}
	if len(pool) == 0 {
		return nil, 0, ErrEmptyPopulation
	}

	population := len(pool)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Rating > pool[j].Rating
	})
	if len(pool) > a.ratingLimit {
		pool = pool[:a.ratingLimit]
	}
	return pool, population, nil
}
