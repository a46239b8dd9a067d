// Package config loads the gateway configuration: defaults, then
// leapgate.yaml, then LEAPGATE_ environment variables, then explicitly set
// command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// Config holds all gateway settings.
type Config struct {
	// ReadOnly refuses every statement the validator does not classify as read-only.
	ReadOnly bool `koanf:"read_only"`

	Limits LimitsConfig `koanf:"limits"`
	Pool   PoolConfig   `koanf:"pool"`
	Schema SchemaConfig `koanf:"schema"`
	Server ServerConfig `koanf:"server"`
	Auth   AuthConfig   `koanf:"auth"`
	Audit  AuditConfig  `koanf:"audit"`
	Log    LogConfig    `koanf:"log"`

	DataSources     []DataSourceConfig `koanf:"datasources" validate:"dive"`
	DataSourcesFile string             `koanf:"datasources_file"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// LimitsConfig bounds result size and execution time.
type LimitsConfig struct {
	DefaultRows    int           `koanf:"default_rows" validate:"gte=1,ltefield=MaxRows"`
	MaxRows        int           `koanf:"max_rows" validate:"gte=1"`
	DefaultTimeout time.Duration `koanf:"default_timeout" validate:"gt=0,ltefield=MaxTimeout"`
	MaxTimeout     time.Duration `koanf:"max_timeout" validate:"gt=0"`
}

// PoolConfig sizes the per data source connection pools.
type PoolConfig struct {
	MaxPerSource      int           `koanf:"max_per_source" validate:"gte=1,lte=64"`
	AcquireTimeout    time.Duration `koanf:"acquire_timeout" validate:"gt=0"`
	IdleTimeout       time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	SweepInterval     time.Duration `koanf:"sweep_interval" validate:"gt=0"`
	ValidateAfterIdle time.Duration `koanf:"validate_after_idle" validate:"gte=0"`
}

// SchemaConfig controls the schema cache.
type SchemaConfig struct {
	TTL            time.Duration `koanf:"ttl" validate:"gt=0"`
	PartialPolicy  string        `koanf:"partial_policy" validate:"oneof=omit fail"`
	RefreshTimeout time.Duration `koanf:"refresh_timeout" validate:"gt=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	RateLimit       float64       `koanf:"rate_limit" validate:"gte=0"`
	RateBurst       int           `koanf:"rate_burst" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// AuthConfig configures bearer token authentication.
type AuthConfig struct {
	Enabled   bool   `koanf:"enabled"`
	JWTSecret string `koanf:"jwt_secret" validate:"required_if=Enabled true,omitempty,min=16"`
	Issuer    string `koanf:"issuer"`
	Audience  string `koanf:"audience"`
}

// AuditConfig configures audit persistence.
type AuditConfig struct {
	// Path of the SQLite audit database; empty logs entries only.
	Path   string `koanf:"path"`
	Buffer int    `koanf:"buffer" validate:"gte=1"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// DataSourceConfig is a data source as written in configuration files.
type DataSourceConfig struct {
	ID       string            `koanf:"id" yaml:"id" validate:"required,max=64"`
	Name     string            `koanf:"name" yaml:"name"`
	Kind     string            `koanf:"kind" yaml:"kind" validate:"required,oneof=duckdb sqlite postgres mysql"`
	Path     string            `koanf:"path" yaml:"path"`
	Host     string            `koanf:"host" yaml:"host"`
	Port     int               `koanf:"port" yaml:"port" validate:"gte=0,lte=65535"`
	Database string            `koanf:"database" yaml:"database"`
	Username string            `koanf:"username" yaml:"username"`
	Password string            `koanf:"password" yaml:"password"`
	Schema   string            `koanf:"schema" yaml:"schema"`
	Options  map[string]string `koanf:"options" yaml:"options"`

	// Active defaults to true when omitted.
	Active *bool `koanf:"active" yaml:"active"`
}

// ToDataSource converts the entry, expanding ${VAR} references in
// credentials and addresses.
func (d DataSourceConfig) ToDataSource() core.DataSource {
	active := d.Active == nil || *d.Active
	name := d.Name
	if name == "" {
		name = d.ID
	}
	var opts map[string]string
	if len(d.Options) > 0 {
		opts = make(map[string]string, len(d.Options))
		for k, v := range d.Options {
			opts[k] = ExpandEnv(v)
		}
	}
	return core.DataSource{
		ID:     d.ID,
		Name:   name,
		Kind:   core.EngineKind(d.Kind),
		Active: active,
		Config: core.ConnectionConfig{
			Path:     ExpandEnv(d.Path),
			Host:     ExpandEnv(d.Host),
			Port:     d.Port,
			Database: ExpandEnv(d.Database),
			Username: ExpandEnv(d.Username),
			Password: ExpandEnv(d.Password),
			Schema:   d.Schema,
			Options:  opts,
		},
	}
}

// DataSourceList converts the inline data sources.
func (c *Config) DataSourceList() []core.DataSource {
	out := make([]core.DataSource, 0, len(c.DataSources))
	for _, d := range c.DataSources {
		out = append(out, d.ToDataSource())
	}
	return out
}
