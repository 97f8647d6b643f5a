package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/rollout/pkg/engine"
	"github.com/dmitrymomot/rollout/pkg/httpserver"
	"github.com/dmitrymomot/rollout/pkg/identity"
	"github.com/dmitrymomot/rollout/pkg/logger"
)

// Options configures the router. Engine is required.
type Options struct {
	Engine *engine.Engine
	Logger *slog.Logger

	// Gatherer backs /metrics. The route is not mounted when nil.
	Gatherer prometheus.Gatherer

	// Checks run on /readyz.
	Checks       []httpserver.Check
	CheckTimeout time.Duration
}

// Router builds the HTTP surface of the engine.
//
//	GET  /flags                       resolved flags, ff_ params preview overrides
//	POST /flags/query                 apply ff_ params for the process
//	PUT  /flags/{name}                toggle a flag locally
//	POST /reset                       clear every override
//	GET  /variants                    rollout policies
//	GET  /variants/{variant}/decision decision for the request identity
//	POST /variants/{variant}/outcomes record an outcome for rollback
//	GET  /sessions/decisions          decision trail of the request identity
//	POST /events                      accept render and interaction events
func Router(opts Options) chi.Router {
	if opts.Engine == nil {
		panic("httpapi: engine is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	timeout := opts.CheckTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	h := handlers{eng: opts.Engine}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(log, timeout, opts.Checks...))
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(api chi.Router) {
		api.Use(requestLogger(log))

		api.Route("/flags", func(flags chi.Router) {
			flags.Get("/", h.listFlags)
			flags.Post("/query", h.applyQuery)
			flags.Put("/{name}", h.toggleFlag)
		})
		api.Post("/reset", h.reset)
		api.Post("/events", h.event)
		api.Get("/variants", h.listVariants)

		api.Group(func(scoped chi.Router) {
			scoped.Use(identity.Middleware)
			scoped.Get("/variants/{variant}/decision", h.decision)
			scoped.Post("/variants/{variant}/outcomes", h.outcome)
			scoped.Get("/sessions/decisions", h.trail)
		})
	})

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.DebugContext(r.Context(), "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
