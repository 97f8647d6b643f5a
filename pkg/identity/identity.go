package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/rollout/pkg/store"
)

// Identity is whoever a rollout decision is made for.
type Identity struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// Key is the bucketing key: UserID when known, else SessionID.
func (i Identity) Key() string {
	if i.UserID != "" {
		return i.UserID
	}
	return i.SessionID
}

// IsZero reports whether the identity carries no ID at all.
func (i Identity) IsZero() bool { return i.Key() == "" }

func (i Identity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("session_id", i.SessionID),
		slog.String("user_id", i.UserID),
	)
}

// Provider supplies the identity for the current call.
type Provider interface {
	Identity(ctx context.Context) (Identity, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (Identity, error)

func (f ProviderFunc) Identity(ctx context.Context) (Identity, error) { return f(ctx) }

// Static always returns id.
func Static(id Identity) Provider {
	return ProviderFunc(func(context.Context) (Identity, error) {
		if id.IsZero() {
			return Identity{}, ErrNoIdentity
		}
		return id, nil
	})
}

// Context returns the identity stored with WithContext.
func Context() Provider {
	return ProviderFunc(func(ctx context.Context) (Identity, error) {
		if id, ok := FromContext(ctx); ok {
			return id, nil
		}
		return Identity{}, ErrNoIdentity
	})
}

// DefaultSessionKey is the store key of the persisted session ID.
const DefaultSessionKey = "session_id"

// Persisted keeps one generated session ID in s, so a process restart keeps
// the same buckets. The ID is created on first use.
func Persisted(s store.Store, key string) Provider {
	if key == "" {
		key = DefaultSessionKey
	}
	return ProviderFunc(func(ctx context.Context) (Identity, error) {
		raw, err := s.Get(ctx, key)
		switch {
		case err == nil && len(raw) > 0:
			return Identity{SessionID: string(raw)}, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return Identity{}, errors.Join(ErrNoIdentity, err)
		}

		id := uuid.NewString()
		if err := s.Set(ctx, key, []byte(id)); err != nil {
			return Identity{}, errors.Join(ErrNoIdentity, err)
		}
		return Identity{SessionID: id}, nil
	})
}

// Chain returns the first identity any provider yields.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(ctx context.Context) (Identity, error) {
		var errs []error
		for _, p := range providers {
			id, err := p.Identity(ctx)
			if err == nil && !id.IsZero() {
				return id, nil
			}
			if err != nil && !errors.Is(err, ErrNoIdentity) {
				errs = append(errs, err)
			}
		}
		return Identity{}, errors.Join(append([]error{ErrNoIdentity}, errs...)...)
	})
}
