package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapgate/pkg/adapters/postgres"
func init() {
	adapter.Register(core.EnginePostgres, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
