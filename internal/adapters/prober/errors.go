package prober

import "errors"

// Sentinel kinds for prober errors.
var (
	// ErrPlayerNotFound covers the prober's 400 responses: the player is
	// unbound, private, or unknown upstream.
	ErrPlayerNotFound = errors.New("player records unavailable")

	// ErrUpstream covers non-200, non-400 responses.
	ErrUpstream = errors.New("prober request failed")
)
