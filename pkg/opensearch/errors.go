package opensearch

import "errors"

var (
	ErrNoAddresses       = errors.New("opensearch: no addresses configured")
	ErrConnectionFailed  = errors.New("opensearch: connection failed")
	ErrHealthcheckFailed = errors.New("opensearch: healthcheck failed")

	// ErrBulkFailed is returned when the bulk request or any item in it fails.
	ErrBulkFailed = errors.New("opensearch: bulk index failed")
)
