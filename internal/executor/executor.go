// Package executor runs validated SQL against a data source with a row cap
// and a wall-clock budget, and normalizes the result.
package executor

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/leapgate/internal/audit"
	"github.com/leapstack-labs/leapgate/internal/pool"
	"github.com/leapstack-labs/leapgate/pkg/core"
	"github.com/leapstack-labs/leapgate/pkg/parser"
	"github.com/leapstack-labs/leapgate/pkg/validator"
)

// Defaults.
const (
	DefaultLimit   = 1000
	DefaultMaxRows = 10000
	DefaultTimeout = 30 * time.Second
	DefaultMaxTime = 5 * time.Minute
)

// Options configures an Executor. Zero values take the defaults, except
// ReadOnly whose zero value would be unsafe; use NewOptions for that.
type Options struct {
	ReadOnly       bool
	DefaultLimit   int
	MaxLimit       int
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
}

// NewOptions returns read-only options with default limits.
func NewOptions() Options {
	return Options{
		ReadOnly:       true,
		DefaultLimit:   DefaultLimit,
		MaxLimit:       DefaultMaxRows,
		DefaultTimeout: DefaultTimeout,
		MaxTimeout:     DefaultMaxTime,
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = DefaultMaxRows
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = DefaultTimeout
	}
	if o.MaxTimeout <= 0 {
		o.MaxTimeout = DefaultMaxTime
	}
	return o
}

// Validator validates SQL text as a given engine tokenizes it.
type Validator interface {
	ValidateFor(sql string, kind core.EngineKind) core.ValidationResult
}

// Resolver looks up data sources. Unknown and inactive ids fail with
// *core.DataSourceNotFoundError.
type Resolver interface {
	Resolve(id string) (core.DataSource, error)
}

// Connections hands out pooled engine connections.
type Connections interface {
	Acquire(ctx context.Context, ds core.DataSource) (*pool.PooledConnection, error)
	Release(conn *pool.PooledConnection)
}

// Executor runs SQL for callers. It is safe for concurrent use.
type Executor struct {
	sources   Resolver
	conns     Connections
	validator Validator
	audit     audit.Recorder
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Executor. A nil recorder disables auditing and a nil
// logger discards output.
func New(sources Resolver, conns Connections, v Validator, rec audit.Recorder, opts Options, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		sources:   sources,
		conns:     conns,
		validator: v,
		audit:     rec,
		opts:      opts.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// Options returns the effective settings.
func (e *Executor) Options() Options {
	return e.opts
}

// Execute validates req.SQL, runs it and returns the capped, normalized
// result. Every attempt that names SQL is audited, whatever its outcome.
func (e *Executor) Execute(ctx context.Context, req core.ExecutionRequest) (*core.ExecutionResult, error) {
	if strings.TrimSpace(req.SQL) == "" {
		return nil, &core.InvalidInputError{Message: "sql must not be empty"}
	}

	start := e.now()
	entry := audit.Entry{
		Action:       audit.ActionExecute,
		DataSourceID: req.DataSourceID,
		SQLHash:      audit.HashSQL(req.SQL),
	}
	res, err := e.execute(ctx, req, &entry)

	entry.DurationMs = e.now().Sub(start).Milliseconds()
	entry.Outcome = audit.OutcomeOf(err)
	if err != nil {
		entry.Error = err.Error()
	}
	if e.audit != nil {
		e.audit.Record(ctx, entry)
	}

	if err != nil {
		e.logger.Debug("execution failed",
			slog.String("datasource", req.DataSourceID),
			slog.String("outcome", string(entry.Outcome)),
			slog.String("error", err.Error()))
		return nil, err
	}
	return res, nil
}

func (e *Executor) execute(ctx context.Context, req core.ExecutionRequest, entry *audit.Entry) (*core.ExecutionResult, error) {
	ds, err := e.sources.Resolve(req.DataSourceID)
	if err != nil {
		return nil, err
	}

	// Always re-validate the exact text that will run.
	v := e.validator.ValidateFor(req.SQL, ds.Kind)
	entry.ReadOnly = v.ReadOnly
	if !v.Valid {
		return nil, &core.ValidationError{Issues: v.Errors}
	}
	if e.opts.ReadOnly && !v.ReadOnly {
		return nil, &core.ForbiddenOperationError{StatementType: v.StatementType}
	}

	limit, err := e.effectiveLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	budget, err := e.effectiveTimeout(req.TimeoutMs)
	if err != nil {
		return nil, err
	}

	conn, err := e.conns.Acquire(ctx, ds)
	if err != nil {
		return nil, err
	}

	syntax := validator.SyntaxOf(ds.Kind)
	stmt := parser.StatementBodyAs(req.SQL, syntax)
	if v.ReadOnly && v.StatementType == core.StatementQuery {
		// One extra row tells truncation apart from an exact fit. Queries
		// that bound themselves are capped while reading instead.
		if limited, ok := parser.LimitRows(req.SQL, syntax, limit+1); ok {
			stmt = limited
		}
	}
	return e.run(ctx, ds, conn, stmt, limit, budget)
}

type runResult struct {
	res *collected
	err error
}

// run executes stmt under budget. On timeout it returns at once; the
// connection is tainted and released when the driver call comes back.
func (e *Executor) run(ctx context.Context, ds core.DataSource, conn *pool.PooledConnection,
	stmt string, limit int, budget time.Duration) (*core.ExecutionResult, error) {
	start := e.now()
	qctx, cancel := context.WithTimeout(ctx, budget)

	done := make(chan runResult, 1)
	go func() {
		res, err := query(qctx, conn, stmt, limit)
		done <- runResult{res: res, err: err}
	}()

	var out runResult
	select {
	case out = <-done:
	case <-qctx.Done():
		conn.Invalidate()
		go func() {
			<-done
			cancel()
			e.conns.Release(conn)
		}()
		return nil, e.interrupted(ctx, ds, start, budget)
	}
	defer cancel()
	defer e.conns.Release(conn)

	if out.err != nil {
		conn.Invalidate()
		if qctx.Err() != nil {
			return nil, e.interrupted(ctx, ds, start, budget)
		}
		return nil, classify(ds, out.err)
	}

	return &core.ExecutionResult{
		Columns:         out.res.columns,
		Rows:            out.res.rows,
		RowCount:        len(out.res.rows),
		Truncated:       out.res.truncated,
		ExecutionTimeMs: e.now().Sub(start).Milliseconds(),
	}, nil
}

func query(ctx context.Context, conn *pool.PooledConnection, stmt string, limit int) (*collected, error) {
	rows, err := conn.Adapter.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows, limit)
}

// interrupted reports why execution stopped early: the budget (or the
// caller's deadline) ran out, or the caller went away.
func (e *Executor) interrupted(ctx context.Context, ds core.DataSource, start time.Time, budget time.Duration) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("execution on data source %q abandoned: %w", ds.ID, ctx.Err())
	}
	return &core.TimeoutError{
		DataSourceID: ds.ID,
		Op:           "execute",
		Elapsed:      e.now().Sub(start),
		Budget:       budget,
	}
}

// classify maps a driver error to a gateway error. Broken connections are
// connection errors; everything else was the engine rejecting the statement.
func classify(ds core.DataSource, err error) error {
	redacted := core.Redact(err, ds.Config.Password)
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return &core.ConnectionError{DataSourceID: ds.ID, Op: "execute", Err: redacted}
	}
	return &core.QueryError{DataSourceID: ds.ID, Err: redacted}
}

func (e *Executor) effectiveLimit(requested *int) (int, error) {
	limit := e.opts.DefaultLimit
	if requested != nil {
		if *requested < 1 {
			return 0, &core.InvalidInputError{Message: fmt.Sprintf("limit must be at least 1, got %d", *requested)}
		}
		limit = *requested
	}
	return min(limit, e.opts.MaxLimit), nil
}

func (e *Executor) effectiveTimeout(requestedMs *int) (time.Duration, error) {
	budget := e.opts.DefaultTimeout
	if requestedMs != nil {
		if *requestedMs < 1 {
			return 0, &core.InvalidInputError{Message: fmt.Sprintf("timeoutMs must be at least 1, got %d", *requestedMs)}
		}
		budget = time.Duration(*requestedMs) * time.Millisecond
	}
	return min(budget, e.opts.MaxTimeout), nil
}
