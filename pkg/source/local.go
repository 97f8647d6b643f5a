package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/rollout/pkg/feature"
	"github.com/dmitrymomot/rollout/pkg/store"
)

// DefaultLocalKey is where persisted overrides live in the store.
const DefaultLocalKey = "feature_flags"

type localProvider struct {
	store store.Store
	key   string
}

// Local reads persisted overrides stored as one JSON object under key.
// A missing key is an empty layer. Values decode like a remote document, so
// {"legacyMode": true} reads as "true".
func Local(s store.Store, key string) Provider {
	if key == "" {
		key = DefaultLocalKey
	}
	return &localProvider{store: s, key: key}
}

func (p *localProvider) Kind() feature.SourceKind { return feature.SourceLocal }

func (p *localProvider) Load(ctx context.Context) (map[string]string, error) {
	raw, err := p.store.Get(ctx, p.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	values, err := decodeFlagDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("decode persisted flags: %w", err)
	}
	return values, nil
}
