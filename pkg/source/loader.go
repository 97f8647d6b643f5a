package source

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/rollout/pkg/feature"
	"github.com/dmitrymomot/rollout/pkg/logger"
)

// UnavailableHook is called with an error wrapping ErrSourceUnavailable every
// time a provider fails.
type UnavailableHook func(kind feature.SourceKind, err error)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader logger.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithCatalog makes the loader drop names the catalog does not define.
func WithCatalog(c *feature.Catalog) LoaderOption {
	return func(ld *Loader) { ld.catalog = c }
}

// OnUnavailable registers a hook for provider failures.
func OnUnavailable(h UnavailableHook) LoaderOption {
	return func(ld *Loader) {
		if h != nil {
			ld.hooks = append(ld.hooks, h)
		}
	}
}

// Loader loads providers and turns every failure into an empty layer.
type Loader struct {
	mu        sync.RWMutex
	providers map[feature.SourceKind][]Provider
	catalog   *feature.Catalog
	log       *slog.Logger
	hooks     []UnavailableHook
	failures  atomic.Int64
}

// NewLoader registers the providers. Several providers may share a kind;
// their maps are merged in registration order.
func NewLoader(providers []Provider, opts ...LoaderOption) *Loader {
	ld := &Loader{
		providers: make(map[feature.SourceKind][]Provider),
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	for _, p := range providers {
		if p != nil {
			ld.providers[p.Kind()] = append(ld.providers[p.Kind()], p)
		}
	}
	return ld
}

// Register adds or replaces every provider of p's kind.
func (ld *Loader) Register(p Provider) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	ld.providers[p.Kind()] = []Provider{p}
}

// Kinds returns the registered kinds in ascending rank.
func (ld *Loader) Kinds() []feature.SourceKind {
	ld.mu.RLock()
	defer ld.mu.RUnlock()
	kinds := make([]feature.SourceKind, 0, len(ld.providers))
	for k := range ld.providers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Failures returns how many provider loads have failed.
func (ld *Loader) Failures() int64 { return ld.failures.Load() }

// Load returns the merged values of every provider of the kind. It never
// fails: a provider error yields an empty contribution.
func (ld *Loader) Load(ctx context.Context, kind feature.SourceKind) map[string]string {
	ld.mu.RLock()
	providers := slices.Clone(ld.providers[kind])
	ld.mu.RUnlock()

	out := make(map[string]string)
	for _, p := range providers {
		values, err := p.Load(ctx)
		if err != nil {
			ld.fail(ctx, kind, err)
			continue
		}
		for name, v := range values {
			if ld.catalog != nil {
				if _, ok := ld.catalog.Lookup(name); !ok {
					ld.log.DebugContext(ctx, "dropping unknown flag",
						logger.Source(kind.String()),
						logger.Flag(name),
						logger.Error(feature.ErrInvalidFlagValue),
					)
					continue
				}
			}
			out[name] = v
		}
	}
	return out
}

// LoadAll loads the given kinds, or every registered kind when none are
// given, concurrently and returns the layers in ascending rank.
func (ld *Loader) LoadAll(ctx context.Context, only ...feature.SourceKind) []feature.ConfigSource {
	kinds := ld.Kinds()
	if len(only) > 0 {
		kinds = slices.DeleteFunc(kinds, func(k feature.SourceKind) bool { return !slices.Contains(only, k) })
	}
	layers := make([]feature.ConfigSource, len(kinds))

	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			layers[i] = feature.ConfigSource{Kind: kind, Values: ld.Load(ctx, kind)}
			return nil
		})
	}
	_ = g.Wait()

	return layers
}

func (ld *Loader) fail(ctx context.Context, kind feature.SourceKind, cause error) {
	ld.failures.Add(1)
	err := errors.Join(ErrSourceUnavailable, cause)
	ld.log.WarnContext(ctx, "configuration source unavailable",
		logger.Source(kind.String()),
		logger.Error(cause),
	)
	for _, h := range ld.hooks {
		h(kind, err)
	}
}
