package store

import "errors"

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("store: key not found")

	// ErrEmptyKey is returned when an operation is called with an empty key.
	ErrEmptyKey = errors.New("store: empty key")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)
