// Package mysql provides the MySQL (and MariaDB) engine adapter.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

// Settings holds MySQL options, decoded from ConnectionConfig.Options.
type Settings struct {
	TLS         string        `mapstructure:"tls"`
	Charset     string        `mapstructure:"charset"`
	Collation   string        `mapstructure:"collation"`
	Timeout     time.Duration `mapstructure:"timeout"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// MaxExecutionTime is applied as the session max_execution_time (ms).
	MaxExecutionTime int `mapstructure:"max_execution_time"`
}

// sessionModeSQL makes backslashes ordinary characters inside string
// literals, so the server tokenizes statements the same way the validator does.
const sessionModeSQL = "SET SESSION sql_mode = CONCAT(@@SESSION.sql_mode, ',NO_BACKSLASH_ESCAPES')"

// Adapter implements adapter.Adapter for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
	settings *Settings
}

// New creates a new MySQL adapter instance.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Dialect returns the MySQL dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return adapter.MySQL
}

// Connect opens a dedicated single-connection handle, pins it and prepares the session.
func (a *Adapter) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	settings := &Settings{}
	if err := adapter.DecodeOptions(cfg.Options, settings); err != nil {
		return err
	}

	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("mysql", buildMySQLConfig(cfg, settings).FormatDSN())
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := a.Attach(ctx, db, db.Close); err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	a.Cfg = cfg
	a.settings = settings

	if err := a.prepareSession(ctx); err != nil {
		_ = a.Close()
		return err
	}
	return nil
}

func (a *Adapter) prepareSession(ctx context.Context) error {
	if err := a.Exec(ctx, sessionModeSQL); err != nil {
		return fmt.Errorf("failed to set sql_mode: %w", err)
	}
	if a.settings != nil && a.settings.MaxExecutionTime > 0 {
		if err := a.Exec(ctx, "SET SESSION max_execution_time = "+strconv.Itoa(a.settings.MaxExecutionTime)); err != nil {
			return fmt.Errorf("failed to set max_execution_time: %w", err)
		}
	}
	return nil
}

func buildMySQLConfig(cfg core.ConnectionConfig, s *Settings) *mysql.Config {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.MultiStatements = false
	mc.TLSConfig = s.TLS
	mc.Collation = s.Collation
	if s.Charset != "" {
		// Charset never fails.
		_ = mc.Apply(mysql.Charset(s.Charset, s.Collation))
	}
	mc.Timeout = s.Timeout
	mc.ReadTimeout = s.ReadTimeout
	return mc
}

// ListRelations lists tables and views of the configured database.
func (a *Adapter) ListRelations(ctx context.Context) ([]core.RelationRef, error) {
	schema := a.schema()
	if schema == "" {
		return a.ListRelationsCommon(ctx, `
			SELECT table_schema, table_name, table_type
			FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type IN ('BASE TABLE', 'VIEW')
			ORDER BY table_name`)
	}
	return a.ListRelationsCommon(ctx, `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name`, schema)
}

// DescribeRelation reads column metadata from information_schema.
func (a *Adapter) DescribeRelation(ctx context.Context, ref core.RelationRef) ([]core.CatalogColumn, error) {
	if ref.Schema == "" {
		ref.Schema = a.schema()
	}
	return a.DescribeRelationCommon(ctx, adapter.MySQL, ref)
}

// In MySQL a schema is a database.
func (a *Adapter) schema() string {
	if a.Cfg.Schema != "" {
		return a.Cfg.Schema
	}
	return a.Cfg.Database
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
