package core

import (
	"fmt"
	"sort"
	"strings"
)

// EngineKind identifies the backend engine a data source runs on.
type EngineKind string

// Supported engine kinds.
const (
	EngineDuckDB   EngineKind = "duckdb"
	EngineSQLite   EngineKind = "sqlite"
	EnginePostgres EngineKind = "postgres"
	EngineMySQL    EngineKind = "mysql"
)

// ParseEngineKind normalizes a user supplied engine name.
// Common aliases ("postgresql", "pg", "mariadb", "sqlite3") are accepted.
func ParseEngineKind(s string) (EngineKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "duckdb":
		return EngineDuckDB, nil
	case "sqlite", "sqlite3":
		return EngineSQLite, nil
	case "postgres", "postgresql", "pg":
		return EnginePostgres, nil
	case "mysql", "mariadb":
		return EngineMySQL, nil
	default:
		return "", fmt.Errorf("unknown engine kind %q", s)
	}
}

// IsEmbedded reports whether the engine runs in-process against a local file.
func (k EngineKind) IsEmbedded() bool {
	return k == EngineDuckDB || k == EngineSQLite
}

// ConnectionConfig holds the opaque connection settings of a data source.
// Embedded engines use Path; client-server engines use the network fields.
type ConnectionConfig struct {
	// Path is the file path for embedded engines. ":memory:" is accepted.
	Path string `json:"path,omitempty" yaml:"path" koanf:"path"`

	Host     string `json:"host,omitempty" yaml:"host" koanf:"host"`
	Port     int    `json:"port,omitempty" yaml:"port" koanf:"port"`
	Database string `json:"database,omitempty" yaml:"database" koanf:"database"`
	Username string `json:"username,omitempty" yaml:"username" koanf:"username"`
	Password string `json:"-" yaml:"password" koanf:"password"`

	// Schema is the default schema used for unqualified names and introspection.
	Schema string `json:"schema,omitempty" yaml:"schema" koanf:"schema"`

	// Options contains additional driver-specific options.
	Options map[string]string `json:"options,omitempty" yaml:"options" koanf:"options"`
}

// DataSource is a registered external database the gateway can connect to.
type DataSource struct {
	ID     string           `json:"id" yaml:"id" koanf:"id"`
	Name   string           `json:"name" yaml:"name" koanf:"name"`
	Kind   EngineKind       `json:"kind" yaml:"kind" koanf:"kind"`
	Config ConnectionConfig `json:"config" yaml:"config" koanf:"config"`
	Active bool             `json:"active" yaml:"active" koanf:"active"`
}

// Redacted returns a copy safe to show to API callers and logs.
func (d DataSource) Redacted() DataSource {
	out := d
	if out.Config.Password != "" {
		out.Config.Password = "********"
	}
	if len(d.Config.Options) > 0 {
		out.Config.Options = make(map[string]string, len(d.Config.Options))
		for k, v := range d.Config.Options {
			if isSecretOption(k) {
				v = "********"
			}
			out.Config.Options[k] = v
		}
	}
	return out
}

func isSecretOption(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "secret") || strings.Contains(k, "token")
}

// SortDataSources orders data sources by id for stable listings.
func SortDataSources(list []DataSource) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
