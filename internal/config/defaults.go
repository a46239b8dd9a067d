package config

import (
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	DefaultDefaultRows       = 1000
	DefaultMaxRows           = 10000
	DefaultDefaultTimeout    = 30 * time.Second
	DefaultMaxTimeout        = 5 * time.Minute
	DefaultMaxPerSource      = 4
	DefaultAcquireTimeout    = 5 * time.Second
	DefaultIdleTimeout       = 5 * time.Minute
	DefaultSweepInterval     = 30 * time.Second
	DefaultValidateAfterIdle = 30 * time.Second
	DefaultSchemaTTL         = 5 * time.Minute
	DefaultPartialPolicy     = "omit"
	DefaultRefreshTimeout    = 30 * time.Second
	DefaultAddr              = "127.0.0.1:8088"
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultAuditBuffer       = 1024
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// defaults is the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"read_only":                DefaultReadOnly,
		"limits.default_rows":      DefaultDefaultRows,
		"limits.max_rows":          DefaultMaxRows,
		"limits.default_timeout":   DefaultDefaultTimeout.String(),
		"limits.max_timeout":       DefaultMaxTimeout.String(),
		"pool.max_per_source":      DefaultMaxPerSource,
		"pool.acquire_timeout":     DefaultAcquireTimeout.String(),
		"pool.idle_timeout":        DefaultIdleTimeout.String(),
		"pool.sweep_interval":      DefaultSweepInterval.String(),
		"pool.validate_after_idle": DefaultValidateAfterIdle.String(),
		"schema.ttl":               DefaultSchemaTTL.String(),
		"schema.partial_policy":    DefaultPartialPolicy,
		"schema.refresh_timeout":   DefaultRefreshTimeout.String(),
		"server.addr":              DefaultAddr,
		"server.rate_limit":        0,
		"server.rate_burst":        0,
		"server.shutdown_timeout":  DefaultShutdownTimeout.String(),
		"auth.enabled":             false,
		"audit.buffer":             DefaultAuditBuffer,
		"log.level":                DefaultLogLevel,
		"log.format":               DefaultLogFormat,
	}
}

// DefaultReadOnly is the default execution mode.
const DefaultReadOnly = true

// Default returns the configuration produced by the defaults layer alone.
func Default() *Config {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(defaults(), "."), nil)
	var cfg Config
	_ = k.Unmarshal("", &cfg)
	return &cfg
}
