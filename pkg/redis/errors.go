package redis

import "errors"

var (
	ErrEmptyConnectionURL   = errors.New("redis: empty connection URL, set REDIS_URL")
	ErrInvalidConnectionURL = errors.New("redis: invalid connection URL")
	ErrNotReady             = errors.New("redis: server not ready before the connect timeout")
	ErrHealthcheckFailed    = errors.New("redis: healthcheck failed")
	ErrStoreOperation       = errors.New("redis: store operation failed")
)
