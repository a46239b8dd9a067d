// Package gateway wires the registry, connection manager, validator,
// executor, schema introspector and audit logger into one service.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapgate/internal/audit"
	"github.com/leapstack-labs/leapgate/internal/config"
	"github.com/leapstack-labs/leapgate/internal/executor"
	"github.com/leapstack-labs/leapgate/internal/pool"
	"github.com/leapstack-labs/leapgate/internal/registry"
	"github.com/leapstack-labs/leapgate/internal/schema"
	"github.com/leapstack-labs/leapgate/pkg/core"
	"github.com/leapstack-labs/leapgate/pkg/validator"
)

// validationCacheSize bounds the memoized validation results.
const validationCacheSize = 4096

// Gateway is the assembled service. It is safe for concurrent use.
type Gateway struct {
	cfg    *config.Config
	logger *slog.Logger

	registry  *registry.Registry
	pool      *pool.Manager
	validator *validator.Cached
	schema    *schema.Introspector
	executor  *executor.Executor
	audit     *audit.Logger
	store     *audit.Store

	started time.Time
}

// Option customizes New.
type Option func(*options)

type options struct {
	poolOptions []pool.Option
	sinks       []audit.Sink
}

// WithPoolOptions passes options to the connection manager.
func WithPoolOptions(opts ...pool.Option) Option {
	return func(o *options) { o.poolOptions = append(o.poolOptions, opts...) }
}

// WithAuditSink adds an audit sink next to the default ones.
func WithAuditSink(s audit.Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, s) }
}

// New builds a gateway from cfg. The data source file, when configured, is
// read once here; Run keeps watching it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Gateway, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger.Debug("initializing gateway",
		slog.Int("datasources", len(cfg.DataSources)),
		slog.String("datasources_file", cfg.DataSourcesFile),
		slog.Bool("read_only", cfg.ReadOnly))

	reg := registry.New(logger)
	if err := reg.Seed(cfg.DataSourceList(), cfg.DataSourcesFile); err != nil {
		return nil, fmt.Errorf("failed to load data sources: %w", err)
	}

	cached, err := validator.NewCached(validationCacheSize)
	if err != nil {
		return nil, err
	}

	sinks := []audit.Sink{audit.NewSlogSink(logger)}
	var store *audit.Store
	if cfg.Audit.Path != "" {
		store, err = audit.OpenStore(ctx, cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		sinks = append(sinks, store)
	}
	sinks = append(sinks, o.sinks...)

	conns := pool.NewManager(cfg.PoolOptions(), logger, o.poolOptions...)
	g := &Gateway{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		pool:      conns,
		validator: cached,
		schema:    schema.New(reg, conns, cfg.SchemaOptions(), logger),
		audit:     audit.NewLogger(cfg.Audit.Buffer, logger, sinks...),
		store:     store,
		started:   time.Now(),
	}
	g.executor = executor.New(reg, conns, cached, g.audit, cfg.ExecutorOptions(), logger)

	reg.OnChange(g.onDataSourceChange)
	return g, nil
}

// onDataSourceChange drops everything derived from the old definition.
func (g *Gateway) onDataSourceChange(c registry.Change) {
	if c.Kind == registry.Added {
		return
	}
	g.pool.InvalidateAll(c.ID)
	g.schema.Invalidate(c.ID)
}

// Validate parses and classifies sql.
func (g *Gateway) Validate(sql string) core.ValidationResult {
	return g.validator.Validate(sql)
}

// Execute runs req through the executor.
func (g *Gateway) Execute(ctx context.Context, req core.ExecutionRequest) (*core.ExecutionResult, error) {
	return g.executor.Execute(ctx, req)
}

// GetSchema returns the catalog snapshot of a data source and audits the call.
func (g *Gateway) GetSchema(ctx context.Context, id string, forceRefresh bool) (*core.SchemaSnapshot, error) {
	start := time.Now()
	snap, err := g.schema.GetSchema(ctx, id, forceRefresh)

	entry := audit.Entry{
		Action:       audit.ActionSchema,
		DataSourceID: id,
		ReadOnly:     true,
		DurationMs:   time.Since(start).Milliseconds(),
		Outcome:      audit.OutcomeOf(err),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	g.audit.Record(ctx, entry)
	return snap, err
}

// DataSources lists registered data sources with credentials masked.
func (g *Gateway) DataSources() []core.DataSource {
	list := g.registry.List()
	for i := range list {
		list[i] = list[i].Redacted()
	}
	return list
}

// Registry exposes the data source registry.
func (g *Gateway) Registry() *registry.Registry { return g.registry }

// Config returns the configuration the gateway was built from.
func (g *Gateway) Config() *config.Config { return g.cfg }

// Health summarizes the running gateway.
type Health struct {
	Status         string             `json:"status"`
	ReadOnly       bool               `json:"readOnly"`
	UptimeSeconds  int64              `json:"uptimeSeconds"`
	DataSources    int                `json:"dataSources"`
	Pools          []pool.SourceStats `json:"pools"`
	AuditDropped   int64              `json:"auditDropped"`
	ValidatorCache int                `json:"validatorCache"`
}

// Health reports liveness and pool usage.
func (g *Gateway) Health() Health {
	return Health{
		Status:         "ok",
		ReadOnly:       g.cfg.ReadOnly,
		UptimeSeconds:  int64(time.Since(g.started).Seconds()),
		DataSources:    g.registry.Count(),
		Pools:          g.pool.Stats(),
		AuditDropped:   g.audit.Dropped(),
		ValidatorCache: g.validator.Len(),
	}
}

// Run drives the background work until ctx is done: the idle connection
// sweeper and, when configured, the data source file watcher.
func (g *Gateway) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return g.pool.Run(ctx) })
	if path := g.cfg.DataSourcesFile; path != "" {
		inline := g.cfg.DataSourceList()
		eg.Go(func() error { return g.registry.Watch(ctx, inline, path) })
	}
	return eg.Wait()
}

// Close releases every connection and flushes the audit log. In-flight
// executions finish on their own connections, which close on release.
func (g *Gateway) Close(ctx context.Context) error {
	g.logger.Debug("closing gateway")
	var errs []error
	if err := g.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := g.audit.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing gateway: %w", err)
	}
	return nil
}
