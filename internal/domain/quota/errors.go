package quota

import "errors"

// Sentinel kinds for quota outcomes.
var (
	// ErrQuotaExceeded is a normal control outcome, not a fault: the
	// caller branches on it instead of retrying.
	ErrQuotaExceeded = errors.New("daily refresh quota exceeded")
)
