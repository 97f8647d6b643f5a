package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/rollout/pkg/store"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	getQuery    = `SELECT value FROM flag_store WHERE key = $1`
	upsertQuery = `INSERT INTO flag_store (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteQuery = `DELETE FROM flag_store WHERE key = $1`
)

// Store implements store.Store over the flag_store table.
type Store struct {
	db DB
}

// NewStore wraps a pool. Run Migrate first.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, store.ErrEmptyKey
	}
	var value []byte
	if err := s.db.QueryRow(ctx, getQuery, key).Scan(&value); err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	_, err := s.db.Exec(ctx, upsertQuery, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	_, err := s.db.Exec(ctx, deleteQuery, key)
	return err
}
