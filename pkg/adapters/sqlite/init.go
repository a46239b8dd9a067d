package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

func init() {
	adapter.Register(core.EngineSQLite, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
