// Package duckdb provides the DuckDB engine adapter.
package duckdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements adapter.Adapter for DuckDB database files.
type Adapter struct {
	adapter.BaseSQLAdapter
	settings *Settings
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return adapter.DuckDB
}

// Connect pins a connection on the process-wide handle for cfg.Path.
// Use ":memory:" (or an empty path) for the shared in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	settings, err := ParseSettings(cfg.Options)
	if err != nil {
		return err
	}
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, release, err := adapter.OpenShared("duckdb", settings.dsn(path), nil)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := a.Attach(ctx, db, release); err != nil {
		return fmt.Errorf("duckdb: %w", err)
	}
	a.Cfg = cfg
	a.settings = settings

	for _, ext := range settings.Extensions {
		if err := a.Exec(ctx, "LOAD "+adapter.DuckDB.QuoteIdent(ext)); err != nil {
			_ = a.Close()
			return fmt.Errorf("failed to load duckdb extension %q: %w", ext, err)
		}
	}
	return nil
}

// ListRelations lists base tables and views of the current database.
func (a *Adapter) ListRelations(ctx context.Context) ([]core.RelationRef, error) {
	query := `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_catalog = current_database()
			AND table_schema NOT IN ('information_schema', 'pg_catalog')`
	var args []any
	if a.Cfg.Schema != "" {
		query += ` AND table_schema = ?`
		args = append(args, a.Cfg.Schema)
	}
	query += ` ORDER BY table_schema, table_name`
	return a.ListRelationsCommon(ctx, query, args...)
}

// DescribeRelation reads column metadata from information_schema.
func (a *Adapter) DescribeRelation(ctx context.Context, ref core.RelationRef) ([]core.CatalogColumn, error) {
	return a.DescribeRelationCommon(ctx, adapter.DuckDB, ref)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
