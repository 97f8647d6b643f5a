package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Variant records a rollout variant name.
func Variant(name string) slog.Attr {
	return slog.String("variant", name)
}

// Flag records a flag name.
func Flag(name string) slog.Attr {
	return slog.String("flag", name)
}

// Source records a configuration source kind.
func Source(kind string) slog.Attr {
	return slog.String("source", kind)
}

// Identity records the hashing identity. Empty identities produce an empty Attr.
func Identity(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("identity", key)
}

// Bucket records a bucket in [0,100).
func Bucket(b int) slog.Attr {
	return slog.Int("bucket", b)
}

// Arm records an A/B arm.
func Arm(arm string) slog.Attr {
	return slog.String("arm", arm)
}

// Reason records why a decision or rollback happened.
func Reason(reason string) slog.Attr {
	return slog.String("reason", reason)
}

// EventType records the metrics event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
