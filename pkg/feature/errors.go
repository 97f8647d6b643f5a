package feature

import "errors"

// Predefined errors for the feature package.
var (
	// ErrInvalidFlagValue indicates a source supplied a value for an unknown
	// flag or a value that failed coercion. Resolution drops such values.
	ErrInvalidFlagValue = errors.New("invalid feature flag value")

	// ErrUnknownFlag indicates the flag is not part of the catalog.
	ErrUnknownFlag = errors.New("unknown feature flag")

	// ErrInvalidDefinition indicates a malformed flag definition or expansion rule.
	ErrInvalidDefinition = errors.New("invalid feature flag definition")
)
