package mongo

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("mongo: empty connection URL, set MONGODB_URL")
	ErrNotReady           = errors.New("mongo: deployment not reachable")
	ErrHealthcheckFailed  = errors.New("mongo: healthcheck failed")
	ErrStoreOperation     = errors.New("mongo: store operation failed")
)
