package app

import "errors"

// Sentinel kinds for service-level outcomes. All of these are expected,
// per-command results the HTTP layer branches on; none are fatal to the
// process.
var (
	ErrNotStarted = errors.New("service not started")

	ErrGroupDisabled = errors.New("group leaderboard not enabled")
	ErrNotMember     = errors.New("player not enrolled in group")
	ErrAlreadyMember = errors.New("player already enrolled in group")

	// ErrSongNotFound means resolution produced no candidate. Never
	// retried automatically.
	ErrSongNotFound = errors.New("no matching song")

	// ErrEmptyQuery and ErrUnknownDifficulty are user-input errors,
	// reported before any resolution or aggregation work.
	ErrEmptyQuery        = errors.New("empty query")
	ErrUnknownDifficulty = errors.New("unknown difficulty token")

	ErrCatalogUnavailable = errors.New("catalog not loaded yet")
)
