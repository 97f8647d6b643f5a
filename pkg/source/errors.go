package source

import "errors"

var (
	// ErrSourceUnavailable wraps any provider failure. Loader never returns it
	// to callers; it reaches the OnUnavailable hook and the log instead.
	ErrSourceUnavailable = errors.New("configuration source unavailable")

	// ErrUnexpectedStatus is returned by HTTPFetcher for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected remote status")

	// ErrRemoteNotFound is returned by S3Fetcher when the object or bucket is missing.
	ErrRemoteNotFound = errors.New("remote flag document not found")

	// ErrInvalidS3Config is returned by NewS3Fetcher when bucket, key or region is empty.
	ErrInvalidS3Config = errors.New("invalid s3 fetcher config")
)
