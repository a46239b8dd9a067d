package core

import "strings"

// TypeCategory is the small common taxonomy native column types are mapped onto.
type TypeCategory string

// Type categories.
const (
	TypeInteger  TypeCategory = "integer"
	TypeFloat    TypeCategory = "float"
	TypeText     TypeCategory = "text"
	TypeBoolean  TypeCategory = "boolean"
	TypeDatetime TypeCategory = "datetime"
	TypeJSON     TypeCategory = "json"
	TypeBinary   TypeCategory = "binary"
	TypeUnknown  TypeCategory = "unknown"
)

// NormalizeType maps a native engine type name onto a TypeCategory.
//
// Matching is case-insensitive and ignores length/precision modifiers and
// array suffixes, so "VARCHAR(255)", "character varying" and "TEXT[]" are
// all handled. Unrecognized names map to TypeUnknown.
func NormalizeType(native string) TypeCategory {
	t := strings.ToLower(strings.TrimSpace(native))
	if t == "" || t == "null" {
		return TypeUnknown
	}
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimSuffix(t, "[]")
	t = strings.TrimPrefix(t, "unsigned ")
	t = strings.TrimSuffix(t, " unsigned")

	switch t {
	case "int", "integer", "int2", "int4", "int8", "smallint", "bigint", "tinyint", "mediumint",
		"hugeint", "uhugeint", "utinyint", "usmallint", "uinteger", "ubigint",
		"serial", "bigserial", "smallserial", "int64", "int32", "int16", "year":
		return TypeInteger
	case "real", "float", "float4", "float8", "double", "double precision", "decimal", "numeric",
		"number", "money", "float64", "float32", "dec", "fixed":
		return TypeFloat
	case "bool", "boolean", "bit":
		return TypeBoolean
	case "date", "time", "timestamp", "datetime", "timestamptz", "timetz", "interval",
		"timestamp with time zone", "timestamp without time zone",
		"time with time zone", "time without time zone",
		"timestamp_s", "timestamp_ms", "timestamp_ns", "smalldatetime", "datetime2":
		return TypeDatetime
	case "json", "jsonb":
		return TypeJSON
	case "blob", "bytea", "binary", "varbinary", "tinyblob", "mediumblob", "longblob", "bit varying":
		return TypeBinary
	case "text", "varchar", "char", "character", "character varying", "string", "uuid", "name",
		"citext", "bpchar", "nvarchar", "nchar", "tinytext", "mediumtext", "longtext", "enum",
		"set", "clob", "inet", "cidr", "macaddr", "xml":
		return TypeText
	}

	// Affinity fallbacks for engines with free-form type names (SQLite).
	switch {
	case strings.Contains(t, "int"):
		return TypeInteger
	case strings.Contains(t, "char"), strings.Contains(t, "clob"), strings.Contains(t, "text"):
		return TypeText
	case strings.Contains(t, "blob"):
		return TypeBinary
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"):
		return TypeFloat
	case strings.HasPrefix(t, "timestamp"), strings.HasPrefix(t, "time"):
		return TypeDatetime
	case strings.HasPrefix(t, "struct"), strings.HasPrefix(t, "map"), strings.HasPrefix(t, "list"):
		return TypeJSON
	}
	return TypeUnknown
}
