package identity

import (
	"context"
	"log/slog"
)

type contextKey struct{}

func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && !id.IsZero()
}

// LoggerExtractor adds the bucketing key as "identity" to log records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := FromContext(ctx); ok {
			return slog.String("identity", id.Key()), true
		}
		return slog.Attr{}, false
	}
}
