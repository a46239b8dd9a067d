package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// CodeRateLimited is returned when a caller exceeds its execution rate.
const CodeRateLimited = "RATE_LIMITED"

// statusByCode maps error codes to HTTP statuses. Unknown codes are 500.
var statusByCode = map[string]int{
	core.CodeInvalidInput:       http.StatusBadRequest,
	core.CodeQueryFailed:        http.StatusBadRequest,
	core.CodeUnauthorized:       http.StatusUnauthorized,
	core.CodeForbiddenOperation: http.StatusForbidden,
	core.CodeNotFound:           http.StatusNotFound,
	core.CodeValidationFailed:   http.StatusUnprocessableEntity,
	CodeRateLimited:             http.StatusTooManyRequests,
	core.CodeConnectionError:    http.StatusBadGateway,
	core.CodeTimeout:            http.StatusGatewayTimeout,
}

// ErrorBody is the JSON envelope of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// StatusFor returns the HTTP status for an error code.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// apiError is a transport-level failure that has no domain error type.
type apiError struct {
	code    string
	message string
}

func (e *apiError) Error() string { return e.message }
func (e *apiError) Code() string  { return e.code }

func detailOf(err error) ErrorDetail {
	code := core.ErrorCode(err)
	d := ErrorDetail{Code: code, Message: err.Error()}

	var (
		validation *core.ValidationError
		forbidden  *core.ForbiddenOperationError
		notFound   *core.DataSourceNotFoundError
		connErr    *core.ConnectionError
		timeout    *core.TimeoutError
		queryErr   *core.QueryError
	)
	switch {
	case code == core.CodeInternal:
		d.Message = "internal error"
	case errors.As(err, &validation):
		d.Details = map[string]any{"issues": validation.Issues}
	case errors.As(err, &forbidden):
		d.Details = map[string]any{"statementType": forbidden.StatementType}
	case errors.As(err, &notFound):
		d.Details = map[string]any{"dataSourceId": notFound.ID, "inactive": notFound.Inactive}
	case errors.As(err, &timeout):
		d.Details = map[string]any{
			"dataSourceId": timeout.DataSourceID,
			"operation":    timeout.Op,
			"elapsedMs":    timeout.Elapsed.Milliseconds(),
			"budgetMs":     timeout.Budget.Milliseconds(),
		}
	case errors.As(err, &connErr):
		d.Details = map[string]any{
			"dataSourceId": connErr.DataSourceID,
			"operation":    connErr.Op,
			"elapsedMs":    connErr.Elapsed.Milliseconds(),
			"timeout":      connErr.Timeout,
		}
	case errors.As(err, &queryErr):
		d.Details = map[string]any{"dataSourceId": queryErr.DataSourceID}
	}
	return d
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	d := detailOf(err)
	status := StatusFor(d.Code)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	writeJSON(w, status, ErrorBody{Error: d})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
