package duckdb

import (
	"net/url"
	"strconv"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
)

// Settings holds DuckDB-specific options, decoded from ConnectionConfig.Options.
type Settings struct {
	// AccessMode is "read_only" or "read_write". Read-only files can be
	// opened by several processes at once.
	AccessMode string `mapstructure:"access_mode"`

	// Threads caps the worker threads of the database instance.
	Threads int `mapstructure:"threads"`

	// MemoryLimit is a DuckDB size such as "2GB".
	MemoryLimit string `mapstructure:"memory_limit"`

	// Extensions to LOAD on every new connection. They must already be installed.
	Extensions []string `mapstructure:"extensions"`
}

// ParseSettings decodes the options of a connection config.
func ParseSettings(opts map[string]string) (*Settings, error) {
	s := &Settings{}
	if err := adapter.DecodeOptions(opts, s); err != nil {
		return nil, err
	}
	return s, nil
}

// dsn builds the go-duckdb data source name. Instance level settings travel
// in the query string; an empty path opens an in-memory database.
func (s *Settings) dsn(path string) string {
	if path == ":memory:" {
		path = ""
	}
	q := url.Values{}
	if s.AccessMode != "" {
		q.Set("access_mode", s.AccessMode)
	}
	if s.Threads > 0 {
		q.Set("threads", strconv.Itoa(s.Threads))
	}
	if s.MemoryLimit != "" {
		q.Set("memory_limit", s.MemoryLimit)
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
