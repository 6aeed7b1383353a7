package config

import (
	"errors"
)

// Error kinds raised while loading configuration. Callers match them
// with errors.Is to tell a bad value apart from an unreadable source.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
