package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidbz/draftlock/internal/httpserver"
	"github.com/davidbz/draftlock/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API for transformations, live estimates, pricing and usage.

Examples:
  # Start with configuration from the environment
  draftlock serve

  # Override the port and use the offline backend
  draftlock serve --port 9090 --backend echo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return invoke(cfg, func(server *httpserver.Server) error {
				return serve(ctx, server)
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "override listen port")

	return cmd
}

// serve runs the server until it fails or ctx is cancelled.
func serve(ctx context.Context, server *httpserver.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	observability.FromContext(ctx).Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
