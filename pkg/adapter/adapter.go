// Package adapter defines the engine driver contract of the gateway.
//
// Every backend engine (DuckDB, SQLite, PostgreSQL, MySQL) is wrapped in an
// Adapter that owns exactly one physical connection. The connection manager
// pools adapters; the executor and the schema introspector only ever talk to
// this interface.
//
// Concrete implementations live in pkg/adapters/ subdirectories and register
// themselves in init().
package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// ErrNotConnected is returned by adapters used before Connect or after Close.
var ErrNotConnected = errors.New("database connection not established")

// ErrRelationNotFound is returned by DescribeRelation when the catalog has no
// columns for the relation, typically because it was dropped after listing.
var ErrRelationNotFound = errors.New("relation not found")

// Adapter is the capability set the gateway needs from an engine.
// An Adapter is not safe for concurrent use; the pool hands it to one
// caller at a time.
type Adapter interface {
	// Connect opens the single physical connection this adapter owns.
	Connect(ctx context.Context, cfg core.ConnectionConfig) error

	// Ping checks that the connection is still usable.
	Ping(ctx context.Context) error

	// Query runs one statement and returns its rows. The caller closes them.
	Query(ctx context.Context, sql string) (*sql.Rows, error)

	// ListRelations returns the user tables and views visible in the catalog.
	ListRelations(ctx context.Context) ([]core.RelationRef, error)

	// DescribeRelation returns the native columns of one relation.
	DescribeRelation(ctx context.Context, ref core.RelationRef) ([]core.CatalogColumn, error)

	// Dialect returns the SQL dialect the engine speaks.
	Dialect() *Dialect

	// Close releases the connection. It is safe to call more than once.
	Close() error
}
