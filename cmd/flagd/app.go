package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/rollout/pkg/engine"
	"github.com/dmitrymomot/rollout/pkg/httpserver"
	"github.com/dmitrymomot/rollout/pkg/identity"
	"github.com/dmitrymomot/rollout/pkg/logger"
	"github.com/dmitrymomot/rollout/pkg/metrics"
	"github.com/dmitrymomot/rollout/pkg/mongo"
	"github.com/dmitrymomot/rollout/pkg/opensearch"
	"github.com/dmitrymomot/rollout/pkg/pg"
	"github.com/dmitrymomot/rollout/pkg/redis"
	"github.com/dmitrymomot/rollout/pkg/source"
	"github.com/dmitrymomot/rollout/pkg/store"
)

var errUnknownBackend = errors.New("unknown backend")

// app holds everything a command needs, plus what must be released on exit.
type app struct {
	cfg      appConfig
	log      *slog.Logger
	engine   *engine.Engine
	registry *prometheus.Registry
	checks   []httpserver.Check
	closers  []func(context.Context) error
}

func newLogger(cfg appConfig) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, "flagd"),
		logger.WithOutput(os.Stderr),
		logger.WithContextExtractors(identity.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	return logger.New(opts...)
}

// newApp connects the configured backends and builds an engine. The engine
// is not started.
func newApp(ctx context.Context, flags *rootFlags) (_ *app, err error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: newLogger(cfg), registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	policies, err := loadPolicies(cfg.PoliciesFile)
	if err != nil {
		return nil, err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	sink, err := a.openSinks(ctx)
	if err != nil {
		return nil, err
	}

	cat := catalog()
	opts := []engine.Option{
		engine.WithLogger(a.log),
		engine.WithStore(st),
		engine.WithLocalKey(cfg.LocalKey),
		engine.WithSink(sink),
		engine.WithPolicies(policies),
		engine.WithMaxSessions(cfg.MaxSessions),
		engine.WithRefreshInterval(cfg.RefreshInterval),
		engine.WithSource(source.Env(cat,
			source.WithEnvPrefix(cfg.EnvPrefix),
			source.WithEnvFiles(cfg.EnvFiles...),
		)),
	}
	remote, err := a.openRemote(ctx)
	if err != nil {
		return nil, err
	}
	if remote != nil {
		opts = append(opts, engine.WithSource(source.Remote(remote, cfg.RemoteTimeout)))
	}

	a.engine, err = engine.New(cat, opts...)
	if err != nil {
		return nil, err
	}
	// The engine flushes its last overrides before the stores close.
	a.closers = slices.Insert(a.closers, 0, a.engine.Close)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.Store {
	case storeMemory:
		return store.NewMemoryStore(), nil

	case storeFile:
		return store.NewFileStore(a.cfg.FileDir)

	case storeRedis:
		client, err := redis.Connect(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return client.Close() })
		a.checks = append(a.checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
		return redis.NewStore(client, redis.WithKeyPrefix(a.cfg.Redis.KeyPrefix)), nil

	case storePostgres:
		pool, err := pg.Connect(ctx, a.cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { pool.Close(); return nil })
		if err := pg.Migrate(ctx, pool, a.cfg.Postgres, a.log); err != nil {
			return nil, err
		}
		a.checks = append(a.checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})
		return pg.NewStore(pool), nil

	case storeMongo:
		client, err := mongo.New(ctx, a.cfg.Mongo)
		if err != nil {
			return nil, err
		}
		a.onClose(client.Disconnect)
		a.checks = append(a.checks, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(client)})
		return mongo.NewStore(client, a.cfg.Mongo), nil
	}
	return nil, errors.Join(errUnknownBackend, fmt.Errorf("store %q", a.cfg.Store))
}

func (a *app) openRemote(ctx context.Context) (source.Fetcher, error) {
	switch a.cfg.Remote {
	case remoteNone, "":
		return nil, nil
	case remoteHTTP:
		return source.HTTPFetcher{URL: a.cfg.RemoteURL, Client: &http.Client{Timeout: a.cfg.RemoteTimeout}}, nil
	case remoteS3:
		return source.NewS3Fetcher(ctx, a.cfg.S3)
	}
	return nil, errors.Join(errUnknownBackend, fmt.Errorf("remote %q", a.cfg.Remote))
}

func (a *app) openSinks(ctx context.Context) (metrics.Sink, error) {
	sinks := make([]metrics.Sink, 0, len(a.cfg.Sinks))
	for _, name := range a.cfg.Sinks {
		switch name {
		case sinkLog:
			sinks = append(sinks, metrics.NewLogSink(a.log))

		case sinkPrometheus:
			a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			sinks = append(sinks, metrics.NewPrometheusSink(a.registry))

		case sinkOpenSearch:
			client, err := opensearch.New(ctx, a.cfg.OpenSearch)
			if err != nil {
				return nil, err
			}
			a.checks = append(a.checks, httpserver.Check{Name: "opensearch", Fn: opensearch.Healthcheck(client)})
			async := metrics.NewAsyncSink(
				opensearch.NewEventWriter(opensearch.ClientBulk(client), a.cfg.OpenSearch.EventsIndex),
				metrics.AsyncOptions{Logger: a.log},
			)
			a.onClose(async.Close)
			sinks = append(sinks, async)

		default:
			return nil, errors.Join(errUnknownBackend, fmt.Errorf("sink %q", name))
		}
	}
	return metrics.Multi(sinks...), nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in registration order, engine first.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for _, fn := range a.closers {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
