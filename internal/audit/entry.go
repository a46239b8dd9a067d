// Package audit records one entry per gateway operation. Entries are handed
// to a buffered background writer and fanned out to sinks, so recording
// never blocks the request path.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// Action names the audited operation.
type Action string

// Audited actions.
const (
	ActionExecute Action = "execute"
	ActionSchema  Action = "schema"
)

// Outcome is the result of an audited operation.
type Outcome string

// Outcomes.
const (
	OutcomeSuccess          Outcome = "success"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeForbidden        Outcome = "forbidden"
	OutcomeConnectionError  Outcome = "connection_error"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeError            Outcome = "error"
)

// Entry is one audit record. The SQL text itself is never stored, only its hash.
type Entry struct {
	ID           string    `json:"id"`
	Actor        string    `json:"actor"`
	Action       Action    `json:"action"`
	DataSourceID string    `json:"dataSourceId"`
	SQLHash      string    `json:"sqlHash,omitempty"`
	ReadOnly     bool      `json:"readOnly"`
	DurationMs   int64     `json:"durationMs"`
	Outcome      Outcome   `json:"outcome"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
}

// HashSQL returns the hex sha256 of the SQL text.
func HashSQL(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

// OutcomeOf classifies an operation error. A timeout is reported as such
// even when it also counts as a connection failure.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	var (
		notFound   *core.DataSourceNotFoundError
		validation *core.ValidationError
		forbidden  *core.ForbiddenOperationError
		connErr    *core.ConnectionError
		timeout    *core.TimeoutError
	)
	switch {
	case errors.As(err, &notFound):
		return OutcomeNotFound
	case errors.As(err, &validation):
		return OutcomeValidationFailed
	case errors.As(err, &forbidden):
		return OutcomeForbidden
	case errors.As(err, &timeout):
		return OutcomeTimeout
	case errors.As(err, &connErr):
		return OutcomeConnectionError
	}
	return OutcomeError
}
