package httpserver

import (
	"context"
	"log/slog"
	"time"
)

// Option configures the server.
type Option func(*config)

func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty addr")
	}
	return func(c *config) { c.addr = addr }
}

func WithReadTimeout(d time.Duration) Option {
	return func(c *config) { c.readTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) { c.writeTimeout = d }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout bounds graceful shutdown, including OnShutdown funcs.
func WithShutdownTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("httpserver: shutdown timeout must be positive")
	}
	return func(c *config) { c.shutdownTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// OnShutdown registers a func run after the listener stops, in registration
// order. The engine and asynchronous sinks close here so in-flight requests
// finish first.
func OnShutdown(fn func(context.Context) error) Option {
	if fn == nil {
		panic("httpserver: nil shutdown func")
	}
	return func(c *config) { c.onShutdown = append(c.onShutdown, fn) }
}
