package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapgate/internal/config"
	"github.com/leapstack-labs/leapgate/internal/gateway"
)

type configKey struct{}

type loggerKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// ConfigFrom returns the loaded configuration, or the defaults when the
// command ran without the root pre-run.
func ConfigFrom(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok && c != nil {
		return c
	}
	return config.Default()
}

// LoggerFrom returns the CLI logger, or a discarding one.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Gateway  *gateway.Gateway
	Renderer *Renderer
}

// NewCommandContext builds the gateway from the loaded configuration.
// The cleanup function flushes the audit log and closes all pools.
func NewCommandContext(cmd *cobra.Command, format string) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutGateway(cmd, format)

	gw, err := gateway.New(cmd.Context(), cc.Cfg, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.Gateway = gw

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), cc.Cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := gw.Close(ctx); err != nil {
			cc.Logger.Warn("failed to close gateway", slog.Any("error", err))
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutGateway is for commands that never touch a data source.
func NewCommandContextWithoutGateway(cmd *cobra.Command, format string) *CommandContext {
	return &CommandContext{
		Cfg:      ConfigFrom(cmd.Context()),
		Logger:   LoggerFrom(cmd.Context()),
		Renderer: NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), Mode(format)),
	}
}
