package metrics

import "errors"

var (
	// ErrSinkClosed is returned by Emit after Close.
	ErrSinkClosed = errors.New("metrics: sink closed")

	// ErrBufferFull is returned when AsyncSink drops an event.
	ErrBufferFull = errors.New("metrics: buffer full, event dropped")
)
