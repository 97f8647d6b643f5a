package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/rollout/pkg/store"
)

type document struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store implements store.Store over one collection.
type Store struct {
	coll *mongo.Collection
}

// NewStore uses cfg.Database and cfg.Collection on the client.
func NewStore(client *mongo.Client, cfg Config) *Store {
	return &Store{coll: client.Database(cfg.Database).Collection(cfg.Collection)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, store.ErrEmptyKey
	}
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreOperation, err)
	}
	return doc.Value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		document{Key: key, Value: value, UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errors.Join(ErrStoreOperation, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return store.ErrEmptyKey
	}
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return errors.Join(ErrStoreOperation, err)
	}
	return nil
}
