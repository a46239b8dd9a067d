package commands

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapgate/internal/config"
	"github.com/leapstack-labs/leapgate/internal/gateway"
	"github.com/leapstack-labs/leapgate/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve the gateway API under /api/v1 until interrupted.

Besides the HTTP server this runs the idle connection sweeper and, when
datasources_file is set, reloads data sources whenever that file changes.
On SIGINT or SIGTERM in-flight requests are drained for up to
server.shutdown_timeout, then all pools are closed and the audit log is flushed.`,
		Example: `  # Serve with leapgate.yaml from the current directory
  leapgate serve

  # Listen on all interfaces and allow writes
  leapgate serve --addr :8088 --read-only=false

  # Require bearer tokens
  LEAPGATE_AUTH_ENABLED=true leapgate serve --jwt-secret "$SECRET"`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	// Flag values flow through config.Load; only explicitly set flags apply.
	cmd.Flags().String("addr", "", "Listen address (default from server.addr)")
	cmd.Flags().Bool("read-only", true, "Reject statements that modify data")
	cmd.Flags().String("audit-db", "", "Path to the SQLite audit database")
	cmd.Flags().String("jwt-secret", "", "HMAC secret for bearer tokens")
	cmd.Flags().Int("max-rows", 0, "Upper bound for a request's row limit")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, ConfigFrom(cmd.Context()), LoggerFrom(cmd.Context()), nil)
}

// serve runs the gateway and its API until ctx is done. With a nil ln the
// server listens on server.addr.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener) error {
	gw, err := gateway.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	srv := server.New(gw, server.OptionsFrom(cfg), logger)

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return gw.Run(egctx) })
	eg.Go(func() error {
		if ln != nil {
			return srv.Serve(egctx, ln)
		}
		return srv.ListenAndServe(egctx)
	})
	runErr := eg.Wait()

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := gw.Close(closeCtx); err != nil {
		logger.Warn("failed to close gateway", slog.Any("error", err))
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logger.Info("gateway stopped")
	return nil
}
