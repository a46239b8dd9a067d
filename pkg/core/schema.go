package core

import "time"

// RelationKind distinguishes tables from views.
type RelationKind string

// Relation kinds.
const (
	RelationTable RelationKind = "table"
	RelationView  RelationKind = "view"
)

// RelationRef names a relation in an engine catalog.
type RelationRef struct {
	Schema string       `json:"schema,omitempty"`
	Name   string       `json:"name"`
	Kind   RelationKind `json:"kind"`
}

// QualifiedName returns schema.name, or name when the schema is empty.
func (r RelationRef) QualifiedName() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

// CatalogColumn is a column as reported by an engine catalog, before normalization.
type CatalogColumn struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// SchemaColumn is a normalized column of a relation.
type SchemaColumn struct {
	Name         string       `json:"name"`
	Type         TypeCategory `json:"type"`
	DatabaseType string       `json:"databaseType"`
	Nullable     bool         `json:"nullable"`
	Position     int          `json:"position"`
}

// Relation is a table or view with its columns.
type Relation struct {
	Schema  string         `json:"schema,omitempty"`
	Name    string         `json:"name"`
	Columns []SchemaColumn `json:"columns"`
}

// SchemaSnapshot is cached, normalized catalog metadata for a data source.
// Snapshots are replaced wholesale on refresh, never patched.
type SchemaSnapshot struct {
	DataSourceID string     `json:"dataSourceId"`
	Tables       []Relation `json:"tables"`
	Views        []Relation `json:"views"`
	Warnings     []string   `json:"warnings,omitempty"`
	FetchedAt    time.Time  `json:"fetchedAt"`
	TTLExpiresAt time.Time  `json:"ttlExpiresAt"`

	// Fingerprint is the configuration fingerprint the snapshot was taken with.
	Fingerprint string `json:"-"`
}

// Expired reports whether the snapshot must be re-fetched at now.
func (s *SchemaSnapshot) Expired(now time.Time) bool {
	return now.After(s.TTLExpiresAt)
}
