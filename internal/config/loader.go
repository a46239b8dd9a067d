package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names searched in the working directory, in order.
const (
	ConfigFileName    = "leapgate.yaml"
	ConfigFileNameAlt = "leapgate.yml"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LEAPGATE_"

// sections are the nested config groups. LEAPGATE_POOL_MAX_PER_SOURCE maps
// to pool.max_per_source because "pool" is a section.
var sections = []string{"limits", "pool", "schema", "server", "auth", "audit", "log"}

// flagKeys maps CLI flag names whose config key is not the snake_case form
// of the flag name.
var flagKeys = map[string]string{
	"addr":        "server.addr",
	"datasources": "datasources_file",
	"audit-db":    "audit.path",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"max-rows":    "limits.max_rows",
	"jwt-secret":  "auth.jwt_secret",
}

// findConfigFile returns the explicit path, or the first default file present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey turns LEAPGATE_POOL_MAX_PER_SOURCE into pool.max_per_source.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// flagKey maps a changed flag to its config key; unrelated flags map to "".
func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	key := strings.ReplaceAll(name, "-", "_")
	switch key {
	case "read_only", "datasources_file":
		return key
	}
	return ""
}

// Load reads configuration from defaults, the config file, LEAPGATE_
// environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Only flags the user actually set take part; flags is optional.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := flagKey(f.Name)
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.File = used
	if used != "" {
		// Relative paths in a config file are relative to that file.
		base := filepath.Dir(used)
		if !changed(flags, "datasources") {
			cfg.DataSourcesFile = resolvePathRelativeTo(cfg.DataSourcesFile, base)
		}
		if cfg.Audit.Path != ":memory:" && !changed(flags, "audit-db") {
			cfg.Audit.Path = resolvePathRelativeTo(cfg.Audit.Path, base)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func changed(flags *pflag.FlagSet, name string) bool {
	return flags != nil && flags.Changed(name)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
