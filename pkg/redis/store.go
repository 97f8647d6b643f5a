package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/rollout/pkg/store"
)

// Store implements store.Store on top of a Redis client.
type Store struct {
	db     redis.UniversalClient
	prefix string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithKeyPrefix namespaces every key.
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *Store) { s.prefix = prefix }
}

// NewStore wraps an existing client. The caller owns the client's lifecycle.
func NewStore(client redis.UniversalClient, opts ...StoreOption) *Store {
	s := &Store{db: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, store.ErrEmptyKey
	}
	val, err := s.db.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreOperation, err)
	}
	return val, nil
}

// Set stores the value without expiration.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	if err := s.db.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return errors.Join(ErrStoreOperation, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	if err := s.db.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrStoreOperation, err)
	}
	return nil
}
