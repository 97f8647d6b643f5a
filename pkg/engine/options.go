package engine

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/rollout/pkg/identity"
	"github.com/dmitrymomot/rollout/pkg/metrics"
	"github.com/dmitrymomot/rollout/pkg/source"
	"github.com/dmitrymomot/rollout/pkg/store"
)

// Option configures an Engine.
type Option func(*config)

type config struct {
	log             *slog.Logger
	store           store.Store
	localKey        string
	providers       []source.Provider
	sink            metrics.Sink
	policies        *Policies
	identity        identity.Provider
	refreshInterval time.Duration
	maxSessions     int
	writeTimeout    time.Duration
}

func defaultConfig() *config {
	return &config{
		localKey:     source.DefaultLocalKey,
		store:        store.NewMemoryStore(),
		sink:         metrics.Discard,
		policies:     &Policies{},
		identity:     identity.Context(),
		maxSessions:  10_000,
		writeTimeout: 5 * time.Second,
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithStore sets where toggled overrides persist.
func WithStore(s store.Store) Option {
	return func(c *config) {
		if s != nil {
			c.store = s
		}
	}
}

// WithLocalKey sets the store key of the overrides object.
func WithLocalKey(key string) Option {
	return func(c *config) {
		if key != "" {
			c.localKey = key
		}
	}
}

// WithSource adds a provider, typically source.Env or source.Remote.
// Defaults and the local store are always registered.
func WithSource(p source.Provider) Option {
	return func(c *config) {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
}

func WithSink(s metrics.Sink) Option {
	return func(c *config) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithPolicies sets variant and rollback policies.
func WithPolicies(p *Policies) Option {
	return func(c *config) {
		if p != nil {
			c.policies = p
		}
	}
}

// WithIdentityProvider sets how DecideCurrent finds the identity.
func WithIdentityProvider(p identity.Provider) Option {
	return func(c *config) {
		if p != nil {
			c.identity = p
		}
	}
}

// WithRefreshInterval reloads env and remote sources periodically after
// Start. Zero disables refresh.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *config) { c.refreshInterval = d }
}

// WithMaxSessions bounds the session registry.
func WithMaxSessions(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxSessions = n
		}
	}
}

// WithWriteTimeout bounds each persistence write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}
