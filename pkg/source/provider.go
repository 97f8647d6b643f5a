package source

import (
	"context"
	"maps"

	"github.com/dmitrymomot/rollout/pkg/feature"
)

// Provider reads raw flag values from one place.
type Provider interface {
	Kind() feature.SourceKind
	Load(ctx context.Context) (map[string]string, error)
}

type providerFunc struct {
	kind feature.SourceKind
	load func(ctx context.Context) (map[string]string, error)
}

// ProviderFunc adapts a function to Provider.
func ProviderFunc(kind feature.SourceKind, load func(ctx context.Context) (map[string]string, error)) Provider {
	return providerFunc{kind: kind, load: load}
}

func (p providerFunc) Kind() feature.SourceKind { return p.kind }

func (p providerFunc) Load(ctx context.Context) (map[string]string, error) { return p.load(ctx) }

// Defaults yields the compiled default of every catalog definition.
func Defaults(c *feature.Catalog) Provider {
	return ProviderFunc(feature.SourceDefault, func(context.Context) (map[string]string, error) {
		return c.Defaults(), nil
	})
}

// Static serves a fixed map under the given kind. Useful for tests and for
// values already parsed elsewhere.
func Static(kind feature.SourceKind, values map[string]string) Provider {
	return ProviderFunc(kind, func(context.Context) (map[string]string, error) {
		return maps.Clone(values), nil
	})
}
