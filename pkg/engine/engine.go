package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/rollout/pkg/cache"
	"github.com/dmitrymomot/rollout/pkg/feature"
	"github.com/dmitrymomot/rollout/pkg/identity"
	"github.com/dmitrymomot/rollout/pkg/logger"
	"github.com/dmitrymomot/rollout/pkg/metrics"
	"github.com/dmitrymomot/rollout/pkg/rollback"
	"github.com/dmitrymomot/rollout/pkg/rollout"
	"github.com/dmitrymomot/rollout/pkg/source"
	"github.com/dmitrymomot/rollout/pkg/store"
)

// Engine ties sources, resolution, decisions and rollback together. The
// active flag set is an immutable snapshot swapped atomically, so readers
// never see a partial update.
type Engine struct {
	catalog  *feature.Catalog
	resolver *feature.Resolver
	loader   *source.Loader
	store    store.Store
	localKey string
	sink     metrics.Sink
	log      *slog.Logger
	idp      identity.Provider

	killSwitch      string
	policies        map[string]rollout.Policy
	rollbackDefault rollback.Policy
	rollbackByName  map[string]rollback.Policy
	sessionLimit    int

	active atomic.Pointer[feature.FlagSet]

	mu          sync.Mutex
	layers      map[feature.SourceKind]map[string]string
	localLoaded bool

	sessions *cache.LRU[string, *Session]

	// pinnedMu guards pinned: identity key to rolled back variants. Entries
	// outlive session eviction.
	pinnedMu sync.Mutex
	pinned   map[string][]string

	writeTimeout    time.Duration
	persistMu       sync.Mutex
	persistCh       chan struct{}
	persistFailures atomic.Int64

	refreshInterval time.Duration
	started         atomic.Bool
	cancel          context.CancelFunc
	done            chan struct{}
	closeOnce       sync.Once
	wg              sync.WaitGroup
}

// Session is the per-identity state: rollout decisions and the rollback
// monitor feeding them.
type Session struct {
	*rollout.Session
	Monitor *rollback.Monitor
}

// New builds an engine resolved to compiled defaults. Call Start to load the
// configured sources.
func New(catalog *feature.Catalog, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Discard()
	}
	log := cfg.log.With(logger.Component("engine"))

	if err := cfg.policies.Validate(); err != nil {
		return nil, err
	}
	if ks := cfg.policies.KillSwitch; ks != "" {
		def, ok := catalog.Lookup(ks)
		if !ok || def.Kind != feature.KindBool {
			return nil, errors.Join(ErrUnknownKillSwitch, fmt.Errorf("%q", ks))
		}
	}

	e := &Engine{
		catalog:         catalog,
		resolver:        feature.NewResolver(catalog, feature.WithResolverLogger(log)),
		store:           cfg.store,
		localKey:        cfg.localKey,
		sink:            cfg.sink,
		log:             log,
		idp:             cfg.identity,
		killSwitch:      cfg.policies.KillSwitch,
		policies:        make(map[string]rollout.Policy, len(cfg.policies.Variants)),
		rollbackDefault: cfg.policies.Rollback,
		rollbackByName:  make(map[string]rollback.Policy),
		sessionLimit:    cfg.policies.SessionRollbackLimit,
		layers:          make(map[feature.SourceKind]map[string]string),
		sessions:        cache.New[string, *Session](cfg.maxSessions),
		pinned:          make(map[string][]string),
		writeTimeout:    cfg.writeTimeout,
		persistCh:       make(chan struct{}, 1),
		refreshInterval: cfg.refreshInterval,
		done:            make(chan struct{}),
	}
	for _, v := range cfg.policies.Variants {
		e.policies[v.Variant] = v.Policy
		if v.Rollback != nil {
			e.rollbackByName[v.Variant] = *v.Rollback
		}
	}

	providers := append([]source.Provider{
		source.Defaults(catalog),
		source.Local(cfg.store, cfg.localKey),
	}, cfg.providers...)
	e.loader = source.NewLoader(providers,
		source.WithCatalog(catalog),
		source.WithLogger(log),
		source.OnUnavailable(e.sourceUnavailable),
	)

	e.sessions.OnEvict(func(key string, _ *Session) {
		e.log.Debug("session evicted", logger.Identity(key))
	})

	e.active.Store(e.resolver.Resolve(nil))

	e.wg.Add(1)
	go e.persistLoop()

	return e, nil
}

// Start loads every source once, including the persisted overrides, and
// starts the refresh loop when an interval is configured.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return nil
	}
	e.Reload(ctx)

	if e.refreshInterval > 0 {
		rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		e.cancel = cancel
		e.wg.Add(1)
		go e.refreshLoop(rctx)
	}
	return nil
}

// Reload reloads env and remote sources. The persisted local layer is read
// only on the first load; afterwards the in-memory overrides are
// authoritative.
func (e *Engine) Reload(ctx context.Context) *feature.FlagSet {
	e.mu.Lock()
	withLocal := !e.localLoaded
	e.mu.Unlock()

	kinds := make([]feature.SourceKind, 0, 4)
	for _, kind := range e.loader.Kinds() {
		if kind == feature.SourceDefault || (kind == feature.SourceLocal && !withLocal) {
			continue
		}
		kinds = append(kinds, kind)
	}
	var layers []feature.ConfigSource
	if len(kinds) > 0 {
		layers = e.loader.LoadAll(ctx, kinds...)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, layer := range layers {
		if layer.Kind == feature.SourceLocal {
			if e.localLoaded {
				continue
			}
			e.localLoaded = true
			// Toggles made before the first load win over persisted values.
			if pending := e.layers[feature.SourceLocal]; len(pending) > 0 {
				maps.Copy(layer.Values, pending)
				e.schedulePersist()
			}
		}
		e.layers[layer.Kind] = layer.Values
	}
	return e.swapLocked(ctx, "reload")
}

func (e *Engine) refreshLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Reload(ctx)
		}
	}
}

// Flags returns the active snapshot.
func (e *Engine) Flags() *feature.FlagSet { return e.active.Load() }

// Catalog returns the flag catalog.
func (e *Engine) Catalog() *feature.Catalog { return e.catalog }

// Toggle sets a persisted override. The new snapshot is active when Toggle
// returns; the write to the store happens in the background.
func (e *Engine) Toggle(ctx context.Context, name, value string) (*feature.FlagSet, error) {
	def, ok := e.catalog.Lookup(name)
	if !ok {
		return nil, errors.Join(feature.ErrUnknownFlag, fmt.Errorf("%q", name))
	}
	coerced, err := def.Coerce(value)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	local := maps.Clone(e.layers[feature.SourceLocal])
	if local == nil {
		local = make(map[string]string)
	}
	local[name] = coerced
	e.layers[feature.SourceLocal] = local
	flags := e.swapLocked(ctx, "toggle")
	e.mu.Unlock()

	e.log.InfoContext(ctx, "flag toggled", logger.Flag(name), slog.String("value", coerced))
	e.schedulePersist()
	return flags, nil
}

// ApplyQuery replaces the query layer for every session and swaps.
func (e *Engine) ApplyQuery(ctx context.Context, values url.Values) *feature.FlagSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.layers[feature.SourceQuery] = e.known(source.QueryValues(values))
	return e.swapLocked(ctx, "query")
}

// Preview resolves the active layers plus a query layer without changing
// the active snapshot.
func (e *Engine) Preview(values url.Values) *feature.FlagSet {
	e.mu.Lock()
	layers := e.sourcesLocked()
	e.mu.Unlock()

	if q := e.known(source.QueryValues(values)); len(q) > 0 {
		layers = append(layers, feature.ConfigSource{Kind: feature.SourceQuery, Values: q})
	}
	return e.resolver.Resolve(layers)
}

// Reset drops every override and source layer and deletes the persisted
// object, resolving to compiled defaults. It is idempotent. A failed delete
// is returned wrapped in ErrPersistenceWrite; the in-memory reset stands.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	clear(e.layers)
	e.localLoaded = true
	e.swapLocked(ctx, "reset")
	e.mu.Unlock()

	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	if err := e.store.Delete(ctx, e.localKey); err != nil && !errors.Is(err, store.ErrNotFound) {
		e.persistFailures.Add(1)
		e.log.WarnContext(ctx, "failed to delete persisted overrides", logger.Error(err))
		return errors.Join(ErrPersistenceWrite, err)
	}
	e.log.InfoContext(ctx, "flags reset to defaults")
	return nil
}

// Overrides returns a copy of the toggled values.
func (e *Engine) Overrides() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.layers[feature.SourceLocal])
}

// PersistFailures counts failed persistence writes.
func (e *Engine) PersistFailures() int64 { return e.persistFailures.Load() }

// SourceFailures counts failed source loads.
func (e *Engine) SourceFailures() int64 { return e.loader.Failures() }

// Policies returns the configured variant policies sorted by name.
func (e *Engine) Policies() []rollout.Policy {
	out := slices.Collect(maps.Values(e.policies))
	slices.SortFunc(out, func(a, b rollout.Policy) int { return cmp.Compare(a.Variant, b.Variant) })
	return out
}

// Policy returns the policy of a variant.
func (e *Engine) Policy(variant string) (rollout.Policy, error) {
	p, ok := e.policies[variant]
	if !ok {
		return rollout.Policy{}, errors.Join(rollout.ErrUnknownVariant, fmt.Errorf("%q", variant))
	}
	return p, nil
}

// Emit forwards a consumer event to the sink.
func (e *Engine) Emit(ctx context.Context, ev metrics.Event) error {
	if !ev.Type.Valid() {
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return e.sink.Emit(ctx, ev)
}

// Close stops the refresh loop, flushes a pending write and waits for the
// background goroutines until ctx is done.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
		close(e.done)
	})

	finished := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// swapLocked resolves the current layers and stores the snapshot. e.mu must
// be held.
func (e *Engine) swapLocked(ctx context.Context, cause string) *feature.FlagSet {
	next := e.resolver.Resolve(e.sourcesLocked())
	prev := e.active.Swap(next)
	if !prev.Equal(next) {
		e.log.DebugContext(ctx, "flag snapshot swapped",
			slog.String("cause", cause),
			slog.Int("flags", next.Len()),
		)
	}
	return next
}

func (e *Engine) sourcesLocked() []feature.ConfigSource {
	out := make([]feature.ConfigSource, 0, len(e.layers))
	for _, kind := range feature.SourceKinds() {
		if values, ok := e.layers[kind]; ok && len(values) > 0 {
			out = append(out, feature.ConfigSource{Kind: kind, Values: values})
		}
	}
	return out
}

func (e *Engine) known(values map[string]string) map[string]string {
	for name := range values {
		if _, ok := e.catalog.Lookup(name); !ok {
			delete(values, name)
		}
	}
	return values
}

func (e *Engine) sourceUnavailable(kind feature.SourceKind, err error) {
	ev := metrics.NewEvent(metrics.EventError, "", map[string]any{
		"source": kind.String(),
		"error":  err.Error(),
	})
	if serr := e.sink.Emit(context.Background(), ev); serr != nil {
		e.log.Debug("metrics sink rejected event", logger.Error(serr))
	}
}
