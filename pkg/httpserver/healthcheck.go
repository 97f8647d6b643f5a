package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/rollout/pkg/logger"
)

// Check is a named readiness probe, such as redis.Healthcheck(client).
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// Liveness answers 200 ALIVE.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	}
}

// Readiness runs every check with the given timeout and answers 200 when all
// pass, 503 otherwise. The body lists each check as "ok" or "fail".
func Readiness(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.Fn(ctx); err != nil {
				log.WarnContext(ctx, "readiness check failed", slog.String("check", c.Name), logger.Error(err))
				result[c.Name] = "fail"
				status = http.StatusServiceUnavailable
				continue
			}
			result[c.Name] = "ok"
		}

		body := map[string]any{"status": "ready", "checks": result}
		if status != http.StatusOK {
			body["status"] = "not_ready"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
