package adapter

import (
	"strconv"
	"strings"
)

// Dialect holds the engine specific bits of SQL the gateway has to generate itself.
type Dialect struct {
	Name string

	// DefaultSchema is used for relations listed without a schema.
	DefaultSchema string

	// IdentQuote is the identifier quote character (" or `).
	IdentQuote byte

	// NumberedPlaceholders selects $1 style bind markers instead of ?.
	NumberedPlaceholders bool
}

// Placeholder returns the n-th (1-based) bind marker.
func (d *Dialect) Placeholder(n int) string {
	if d.NumberedPlaceholders {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent quotes a single identifier, doubling embedded quote characters.
func (d *Dialect) QuoteIdent(name string) string {
	q := string(d.IdentQuote)
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// QuoteRelation quotes a possibly schema-qualified relation reference.
func (d *Dialect) QuoteRelation(schema, name string) string {
	if schema == "" {
		return d.QuoteIdent(name)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(name)
}

// Dialects of the supported engines.
var (
	DuckDB = &Dialect{Name: "duckdb", DefaultSchema: "main", IdentQuote: '"'}

	SQLite = &Dialect{Name: "sqlite", DefaultSchema: "main", IdentQuote: '"'}

	Postgres = &Dialect{Name: "postgres", DefaultSchema: "public", IdentQuote: '"', NumberedPlaceholders: true}

	MySQL = &Dialect{Name: "mysql", IdentQuote: '`'}
)
