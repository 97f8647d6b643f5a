package engine

import "errors"

var (
	// ErrPersistenceWrite is logged when overrides cannot be saved. The
	// in-memory state is kept.
	ErrPersistenceWrite = errors.New("failed to persist flag overrides")

	// ErrInvalidPolicyFile is returned when the policy file cannot be parsed
	// or holds an invalid policy.
	ErrInvalidPolicyFile = errors.New("invalid policy file")

	// ErrDuplicateVariant is returned when two policies name the same variant.
	ErrDuplicateVariant = errors.New("duplicate variant policy")

	// ErrUnknownKillSwitch is returned when the kill switch is not a bool flag
	// of the catalog.
	ErrUnknownKillSwitch = errors.New("kill switch is not a bool flag")
)
