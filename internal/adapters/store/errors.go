package store

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("row not found")

	// ErrDuplicateAlias means the alias text already exists, compared
	// case-insensitively across the entire custom alias table.
	ErrDuplicateAlias = errors.New("alias already exists")
)
