package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type validateRequest struct {
	SQL string `json:"sql" validate:"required"`
}

type executeRequest struct {
	SQL          string `json:"sql" validate:"required"`
	DataSourceID string `json:"dataSourceId" validate:"required"`
	Limit        *int   `json:"limit" validate:"omitempty,gte=1"`
	TimeoutMs    *int   `json:"timeoutMs" validate:"omitempty,gte=1"`
}

type dataSourcesResponse struct {
	DataSources []core.DataSource `json:"dataSources"`
}

// decode reads a JSON body into dst and checks its constraints.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &core.InvalidInputError{Message: "request body is empty"}
		}
		return &core.InvalidInputError{Message: "malformed JSON body: " + err.Error()}
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &core.InvalidInputError{Message: err.Error()}
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return &core.InvalidInputError{Message: strings.Join(msgs, "; ")}
	}
	return nil
}

// fieldMessage names the JSON field of a failed constraint.
func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", name)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Validate(req.SQL))
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Execute(r.Context(), core.ExecutionRequest{
		SQL:          req.SQL,
		DataSourceID: req.DataSourceID,
		Limit:        req.Limit,
		TimeoutMs:    req.TimeoutMs,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDataSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dataSourcesResponse{DataSources: s.svc.DataSources()})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, &core.InvalidInputError{Message: fmt.Sprintf("refresh must be a boolean, got %q", v)})
			return
		}
		refresh = b
	}
	snap, err := s.svc.GetSchema(r.Context(), chi.URLParam(r, "id"), refresh)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}
