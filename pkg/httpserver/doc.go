// Package httpserver runs the flagd HTTP API with graceful shutdown.
//
// Run binds the listener, serves until the context ends or SIGINT/SIGTERM
// arrives, then drains in-flight requests and runs the OnShutdown funcs
// (engine close, sink flush) inside one shutdown deadline.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//	    httpserver.WithLogger(log),
//	    httpserver.OnShutdown(eng.Close),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//	    return err
//	}
//
// Liveness and Readiness are the /healthz and /readyz handlers.
package httpserver
