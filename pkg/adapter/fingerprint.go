package adapter

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

type fingerprintInput struct {
	Kind   core.EngineKind
	Config core.ConnectionConfig
}

// Fingerprint hashes the parts of a data source that affect its connections.
// Name and Active are excluded; map ordering in Options does not matter.
func Fingerprint(ds core.DataSource) (string, error) {
	h, err := hashstructure.Hash(fingerprintInput{Kind: ds.Kind, Config: ds.Config}, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint data source %q: %w", ds.ID, err)
	}
	return fmt.Sprintf("%016x", h), nil
}
