package feature

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/dmitrymomot/rollout/pkg/logger"
)

// Resolver merges configuration sources into a FlagSet.
type Resolver struct {
	catalog *Catalog
	log     *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used to report dropped values.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver creates a resolver for the catalog.
func NewResolver(c *Catalog, opts ...ResolverOption) *Resolver {
	r := &Resolver{catalog: c, log: logger.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the catalog the resolver works against.
func (r *Resolver) Catalog() *Catalog { return r.catalog }

// Resolve starts from compiled defaults, overlays sources in ascending rank
// (stable for equal ranks), then applies expansion rules once.
func (r *Resolver) Resolve(sources []ConfigSource) *FlagSet {
	set := &FlagSet{
		values:     r.catalog.Defaults(),
		origin:     make(map[string]SourceKind, len(r.catalog.defs)),
		expandedBy: make(map[string]string),
	}
	for name := range set.values {
		set.origin[name] = SourceDefault
	}

	layers := slices.Clone(sources)
	slices.SortStableFunc(layers, func(a, b ConfigSource) int {
		return cmp.Compare(a.Kind.Rank(), b.Kind.Rank())
	})

	for _, layer := range layers {
		for _, name := range slices.Sorted(maps.Keys(layer.Values)) {
			v, err := r.coerce(name, layer.Values[name])
			if err != nil {
				r.log.Debug("dropping flag value",
					logger.Flag(name),
					logger.Source(layer.Kind.String()),
					logger.Error(err),
				)
				continue
			}
			set.values[name] = v
			set.origin[name] = layer.Kind
		}
	}

	r.expand(set)
	return set
}

func (r *Resolver) coerce(name, raw string) (string, error) {
	d, ok := r.catalog.Lookup(name)
	if !ok {
		return "", errors.Join(ErrInvalidFlagValue, ErrUnknownFlag, fmt.Errorf("flag %q", name))
	}
	return d.Coerce(raw)
}

// expand reads masters from the merged values before any rule writes, so a
// dependent that is itself a master never triggers a second expansion.
func (r *Resolver) expand(set *FlagSet) {
	type forced struct {
		master string
		rank   int
		deps   map[string]string
	}
	var active []forced
	for _, rule := range r.catalog.rules {
		if ParseBool(set.values[rule.Master]) {
			active = append(active, forced{
				master: rule.Master,
				rank:   set.origin[rule.Master].Rank(),
				deps:   rule.Dependents,
			})
		}
	}

	explicit := make(map[string]int, len(set.origin))
	for name, kind := range set.origin {
		explicit[name] = kind.Rank()
	}

	for _, f := range active {
		for _, name := range slices.Sorted(maps.Keys(f.deps)) {
			if explicit[name] > f.rank {
				continue
			}
			set.values[name] = f.deps[name]
			set.expandedBy[name] = f.master
		}
	}
}
