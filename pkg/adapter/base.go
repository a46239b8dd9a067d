package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// BaseSQLAdapter provides the database/sql plumbing shared by all adapters.
// Embed it in concrete adapters; they only add Connect, the catalog queries
// and Dialect.
type BaseSQLAdapter struct {
	// DB is the handle the connection was taken from. It may be shared
	// between adapters (embedded engines), so adapters never close it directly.
	DB *sql.DB

	// Conn is the single pinned connection statements run on.
	Conn *sql.Conn

	Cfg    core.ConnectionConfig
	Logger *slog.Logger

	release func() error
}

// NewBase returns a BaseSQLAdapter with a usable logger.
func NewBase(logger *slog.Logger) BaseSQLAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return BaseSQLAdapter{Logger: logger}
}

// Attach pins one connection from db. release is called on Close after the
// connection is returned and must dispose of db (or drop a shared reference).
func (b *BaseSQLAdapter) Attach(ctx context.Context, db *sql.DB, release func() error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		if release != nil {
			_ = release()
		}
		return fmt.Errorf("failed to open connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		if release != nil {
			_ = release()
		}
		return fmt.Errorf("failed to ping database: %w", err)
	}
	b.DB = db
	b.Conn = conn
	b.release = release
	return nil
}

// Close returns the pinned connection and releases the handle.
func (b *BaseSQLAdapter) Close() error {
	if b.Conn == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing database connection")
	}
	err := b.Conn.Close()
	b.Conn = nil
	if b.release != nil {
		if rerr := b.release(); err == nil {
			err = rerr
		}
		b.release = nil
	}
	b.DB = nil
	return err
}

// IsConnected returns true if the connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.Conn != nil
}

// Ping checks the pinned connection.
func (b *BaseSQLAdapter) Ping(ctx context.Context) error {
	if b.Conn == nil {
		return ErrNotConnected
	}
	return b.Conn.PingContext(ctx)
}

// Exec runs a statement that returns no rows. Adapters use it for session setup.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.Conn == nil {
		return ErrNotConnected
	}
	if _, err := b.Conn.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query runs a statement on the pinned connection.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*sql.Rows, error) {
	if b.Conn == nil {
		return nil, ErrNotConnected
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.Conn.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}

// ListRelationsCommon runs a catalog query returning (schema, name, type)
// triples. Types other than "VIEW" are reported as tables.
func (b *BaseSQLAdapter) ListRelationsCommon(ctx context.Context, query string, args ...any) ([]core.RelationRef, error) {
	if b.Conn == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []core.RelationRef
	for rows.Next() {
		var ref core.RelationRef
		var kind string
		if err := rows.Scan(&ref.Schema, &ref.Name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		ref.Kind = relationKind(kind)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relations: %w", err)
	}
	return refs, nil
}

func relationKind(s string) core.RelationKind {
	switch s {
	case "VIEW", "view", "SYSTEM VIEW":
		return core.RelationView
	default:
		return core.RelationTable
	}
}

// DescribeRelationCommon reads the columns of a relation from
// information_schema.columns with dialect-appropriate placeholders.
func (b *BaseSQLAdapter) DescribeRelationCommon(ctx context.Context, d *Dialect, ref core.RelationRef) ([]core.CatalogColumn, error) {
	schema := ref.Schema
	if schema == "" {
		schema = d.DefaultSchema
	}
	//nolint:gosec // Placeholders come from the dialect
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, d.Placeholder(1), d.Placeholder(2))
	return b.DescribeWith(ctx, ref, query, schema, ref.Name)
}

// DescribeWith runs a column query returning (name, type, nullable, position)
// rows. nullable may be "YES"/"NO", a boolean, or a 0/1 "notnull" flag
// negated by the query.
func (b *BaseSQLAdapter) DescribeWith(ctx context.Context, ref core.RelationRef, query string, args ...any) ([]core.CatalogColumn, error) {
	if b.Conn == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.CatalogColumn
	for rows.Next() {
		var col core.CatalogColumn
		var nullable sql.NullString
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = isNullable(nullable.String)
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%s: %w", ref.QualifiedName(), ErrRelationNotFound)
	}
	return columns, nil
}

func isNullable(s string) bool {
	switch s {
	case "YES", "yes", "true", "1":
		return true
	}
	return false
}
