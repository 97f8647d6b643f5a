package rollback

import "errors"

var (
	// ErrRollbackThresholdExceeded is logged once per monitor when the number
	// of rolled back variants reaches the session limit. It is a warning.
	ErrRollbackThresholdExceeded = errors.New("rollback threshold exceeded")

	// ErrInvalidPolicy is returned by Policy.Validate.
	ErrInvalidPolicy = errors.New("invalid rollback policy")
)
