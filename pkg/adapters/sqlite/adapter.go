// Package sqlite provides the SQLite engine adapter, backed by the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Settings holds SQLite options, decoded from ConnectionConfig.Options.
type Settings struct {
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
	JournalMode string        `mapstructure:"journal_mode"`
	ForeignKeys bool          `mapstructure:"foreign_keys"`

	// QueryOnly makes the engine itself refuse writes on gateway connections.
	QueryOnly bool `mapstructure:"query_only"`
}

const defaultBusyTimeout = 5 * time.Second

// Adapter implements adapter.Adapter for SQLite database files.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return adapter.SQLite
}

// dsnFor maps ":memory:" to a shared-cache URI so every pooled connection of
// the process sees the same in-memory database.
func dsnFor(path string) string {
	if path == "" || path == ":memory:" {
		return "file::memory:?cache=shared"
	}
	return path
}

// Connect pins a connection and applies the per-connection pragmas.
func (a *Adapter) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	settings := &Settings{BusyTimeout: defaultBusyTimeout}
	if err := adapter.DecodeOptions(cfg.Options, settings); err != nil {
		return err
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", cfg.Path))

	db, release, err := adapter.OpenShared("sqlite", dsnFor(cfg.Path), nil)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	if err := a.Attach(ctx, db, release); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	a.Cfg = cfg

	for _, pragma := range pragmas(settings) {
		if err := a.Exec(ctx, pragma); err != nil {
			_ = a.Close()
			return fmt.Errorf("failed to configure sqlite connection: %w", err)
		}
	}
	return nil
}

func pragmas(s *Settings) []string {
	out := []string{fmt.Sprintf("PRAGMA busy_timeout = %d", s.BusyTimeout.Milliseconds())}
	if s.JournalMode != "" {
		out = append(out, "PRAGMA journal_mode = "+adapter.SQLite.QuoteIdent(s.JournalMode))
	}
	if s.ForeignKeys {
		out = append(out, "PRAGMA foreign_keys = ON")
	}
	if s.QueryOnly {
		out = append(out, "PRAGMA query_only = ON")
	}
	return out
}

// ListRelations lists user tables and views of the main database.
func (a *Adapter) ListRelations(ctx context.Context) ([]core.RelationRef, error) {
	return a.ListRelationsCommon(ctx, `
		SELECT 'main', name, upper(type)
		FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		ORDER BY name`)
}

// DescribeRelation reads columns through the pragma_table_info table function.
func (a *Adapter) DescribeRelation(ctx context.Context, ref core.RelationRef) ([]core.CatalogColumn, error) {
	schema := ref.Schema
	if schema == "" {
		schema = adapter.SQLite.DefaultSchema
	}
	return a.DescribeWith(ctx, ref, `
		SELECT name, type, CASE WHEN "notnull" = 0 AND pk = 0 THEN 'YES' ELSE 'NO' END, cid + 1
		FROM pragma_table_info(?, ?)
		ORDER BY cid`, ref.Name, schema)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
