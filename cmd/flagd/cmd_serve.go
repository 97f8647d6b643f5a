package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/rollout/pkg/httpapi"
	"github.com/dmitrymomot/rollout/pkg/httpserver"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the flag and decision API. The server stops on SIGINT or SIGTERM,
then flushes pending overrides and buffered events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

func runServe(ctx context.Context, flags *rootFlags) error {
	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	if err := a.engine.Start(ctx); err != nil {
		_ = a.close(context.Background())
		return err
	}

	router := httpapi.Router(httpapi.Options{
		Engine:   a.engine,
		Logger:   a.log,
		Gatherer: a.registry,
		Checks:   a.checks,
	})
	srv := httpserver.NewFromConfig(a.cfg.HTTP,
		httpserver.WithLogger(a.log),
		httpserver.OnShutdown(a.close),
	)
	return srv.Run(ctx, router)
}
