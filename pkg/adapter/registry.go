package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// Factory builds an unconnected adapter.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[core.EngineKind]Factory)
)

// Register adds an adapter factory to the registry.
// Called by adapter implementations in their init() functions.
func Register(kind core.EngineKind, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// Get retrieves an adapter factory by engine kind.
func Get(kind core.EngineKind) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[kind]
	return f, ok
}

// NewAdapter creates an unconnected adapter for the engine kind.
// A nil logger is replaced by a discard logger inside the adapter.
func NewAdapter(kind core.EngineKind, logger *slog.Logger) (Adapter, error) {
	if kind == "" {
		return nil, fmt.Errorf("engine kind not specified")
	}
	factory, ok := Get(kind)
	if !ok {
		return nil, &UnknownAdapterError{
			Kind:      kind,
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// Open creates and connects an adapter for ds. Errors are redacted so they
// never carry the data source password.
func Open(ctx context.Context, ds core.DataSource, logger *slog.Logger) (Adapter, error) {
	adp, err := NewAdapter(ds.Kind, logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, ds.Config); err != nil {
		_ = adp.Close()
		return nil, core.Redact(err, ds.Config.Password)
	}
	return adp, nil
}

// ListAdapters returns all registered engine kinds (sorted).
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for kind := range registry {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an engine kind has an adapter.
func IsRegistered(kind core.EngineKind) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[kind]
	return ok
}

// UnknownAdapterError is returned when no adapter is registered for an engine kind.
type UnknownAdapterError struct {
	Kind      core.EngineKind
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("no adapter registered for engine kind %q\nAvailable engines: %v\nHint: check the kind of the data source in leapgate.yaml", e.Kind, e.Available)
}
