package core

import (
	"errors"
	"fmt"
	"time"
)

// Error codes exposed to callers of the gateway.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeForbiddenOperation = "FORBIDDEN_OPERATION"
	CodeNotFound           = "NOT_FOUND"
	CodeConnectionError    = "CONNECTION_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeQueryFailed        = "QUERY_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInternal           = "INTERNAL"
)

// CodedError is implemented by every gateway error with a stable code.
type CodedError interface {
	error
	Code() string
}

// ErrorCode returns the code of the first CodedError in err's chain,
// or CodeInternal when there is none.
func ErrorCode(err error) string {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return CodeInternal
}

// InvalidInputError is returned for malformed requests (e.g. empty SQL).
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return "invalid input: " + e.Message }

// Code implements CodedError.
func (e *InvalidInputError) Code() string { return CodeInvalidInput }

// ValidationError is returned when SQL fails validation. It is never retried.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "sql validation failed"
	}
	first := e.Issues[0]
	if first.Line > 0 {
		return fmt.Sprintf("sql validation failed at line %d, column %d: %s", first.Line, first.Column, first.Message)
	}
	return "sql validation failed: " + first.Message
}

// Code implements CodedError.
func (e *ValidationError) Code() string { return CodeValidationFailed }

// ForbiddenOperationError is returned when a mutating statement is submitted
// while the gateway runs in read-only mode.
type ForbiddenOperationError struct {
	StatementType StatementType
}

func (e *ForbiddenOperationError) Error() string {
	return fmt.Sprintf("statement type %q is not allowed in read-only mode", e.StatementType)
}

// Code implements CodedError.
func (e *ForbiddenOperationError) Code() string { return CodeForbiddenOperation }

// DataSourceNotFoundError is returned for unknown or inactive data sources.
type DataSourceNotFoundError struct {
	ID       string
	Inactive bool
}

func (e *DataSourceNotFoundError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("data source %q is inactive", e.ID)
	}
	return fmt.Sprintf("data source %q not found", e.ID)
}

// Code implements CodedError.
func (e *DataSourceNotFoundError) Code() string { return CodeNotFound }

// ConnectionError is returned when an engine is unreachable, rejects
// credentials, or a connection cannot be acquired in time.
// The wrapped error is redacted before it is stored.
type ConnectionError struct {
	DataSourceID string
	Op           string
	Elapsed      time.Duration
	// Timeout is set when the pool could not hand out a connection in time.
	Timeout bool
	Err     error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("connection error on data source %q", e.DataSourceID)
	if e.Op != "" {
		msg += " during " + e.Op
	}
	if e.Timeout {
		msg += fmt.Sprintf(" (timed out after %s)", e.Elapsed.Round(time.Millisecond))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Code implements CodedError.
func (e *ConnectionError) Code() string { return CodeConnectionError }

// TimeoutError is returned when execution or a schema refresh exceeds its budget.
type TimeoutError struct {
	DataSourceID string
	Op           string
	Elapsed      time.Duration
	Budget       time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s on data source %q exceeded its %s budget (elapsed %s)",
		e.Op, e.DataSourceID, e.Budget, e.Elapsed.Round(time.Millisecond))
}

// Code implements CodedError.
func (e *TimeoutError) Code() string { return CodeTimeout }

// QueryError is returned when the engine rejects a statement that passed
// validation (unknown table, type mismatch, constraint violation).
// The wrapped error is redacted before it is stored.
type QueryError struct {
	DataSourceID string
	Err          error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed on data source %q: %v", e.DataSourceID, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Code implements CodedError.
func (e *QueryError) Code() string { return CodeQueryFailed }
