// Package postgres provides the PostgreSQL engine adapter.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

// Settings holds PostgreSQL options, decoded from ConnectionConfig.Options.
type Settings struct {
	SSLMode         string `mapstructure:"sslmode"`
	ApplicationName string `mapstructure:"application_name"`
	ConnectTimeout  int    `mapstructure:"connect_timeout"`
	SearchPath      string `mapstructure:"search_path"`

	// StatementTimeout is passed to the server in milliseconds as a backstop
	// for the gateway's own wall-clock timeout.
	StatementTimeout int `mapstructure:"statement_timeout"`
}

// Adapter implements adapter.Adapter for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return adapter.Postgres
}

// Connect opens a dedicated single-connection handle and pins it.
func (a *Adapter) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	settings := &Settings{}
	if err := adapter.DecodeOptions(cfg.Options, settings); err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", buildPostgresDSN(cfg, settings))
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := a.Attach(ctx, db, db.Close); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a key=value connection string.
func buildPostgresDSN(cfg core.ConnectionConfig, s *Settings) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := s.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	params := map[string]string{
		"host":    host,
		"port":    strconv.Itoa(port),
		"sslmode": sslmode,
	}
	if cfg.Database != "" {
		params["dbname"] = cfg.Database
	}
	if cfg.Username != "" {
		params["user"] = cfg.Username
	}
	if cfg.Password != "" {
		params["password"] = cfg.Password
	}
	if s.ApplicationName != "" {
		params["application_name"] = s.ApplicationName
	}
	if s.ConnectTimeout > 0 {
		params["connect_timeout"] = strconv.Itoa(s.ConnectTimeout)
	}
	switch {
	case s.SearchPath != "":
		params["search_path"] = s.SearchPath
	case cfg.Schema != "":
		params["search_path"] = cfg.Schema
	}
	if s.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.Itoa(s.StatementTimeout)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quoteDSNValue(params[k]))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a libpq connection string value when needed.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// ListRelations lists user tables and views, restricted to the configured schema if any.
func (a *Adapter) ListRelations(ctx context.Context) ([]core.RelationRef, error) {
	query := `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
			AND table_schema NOT LIKE 'pg\_%'`
	var args []any
	if a.Cfg.Schema != "" {
		query += ` AND table_schema = $1`
		args = append(args, a.Cfg.Schema)
	}
	query += ` ORDER BY table_schema, table_name`
	return a.ListRelationsCommon(ctx, query, args...)
}

// DescribeRelation reads column metadata from information_schema.
func (a *Adapter) DescribeRelation(ctx context.Context, ref core.RelationRef) ([]core.CatalogColumn, error) {
	return a.DescribeRelationCommon(ctx, adapter.Postgres, ref)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
