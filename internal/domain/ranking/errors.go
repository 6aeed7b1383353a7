package ranking

import "errors"

// Sentinel kinds for aggregation errors. These allow errors.Is from callers.
var (
	// ErrEmptyPopulation means the aggregation ran but the filtered set is
	// empty. Distinct from a failed song resolution: the song resolved,
	// nobody has a qualifying record.
	ErrEmptyPopulation = errors.New("no records in population")

	// ErrInvalidSegment means the rating segment selector is outside 0-7.
	ErrInvalidSegment = errors.New("invalid rating segment")
)
