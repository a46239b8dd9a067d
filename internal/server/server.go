// Package server exposes the gateway over HTTP under /api/v1.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapgate/internal/config"
	"github.com/leapstack-labs/leapgate/internal/gateway"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

// Service is the gateway as seen by the HTTP layer.
type Service interface {
	Validate(sql string) core.ValidationResult
	Execute(ctx context.Context, req core.ExecutionRequest) (*core.ExecutionResult, error)
	GetSchema(ctx context.Context, id string, forceRefresh bool) (*core.SchemaSnapshot, error)
	DataSources() []core.DataSource
	Health() gateway.Health
}

// Options configures the server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	// RateLimit is the sustained executions per second per caller; 0 disables limiting.
	RateLimit float64
	RateBurst int
	Auth      AuthOptions
}

// OptionsFrom extracts the server settings from cfg.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		Auth: AuthOptions{
			Enabled:  cfg.Auth.Enabled,
			Secret:   cfg.Auth.JWTSecret,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		},
	}
}

// Server serves the API.
type Server struct {
	svc      Service
	opts     Options
	logger   *slog.Logger
	limiter  *actorLimiter
	validate *validator.Validate
}

// New creates a server. A nil logger discards output.
func New(svc Service, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		svc:      svc,
		opts:     opts,
		logger:   logger,
		validate: newRequestValidator(),
	}
	if opts.RateLimit > 0 {
		s.limiter = newActorLimiter(opts.RateLimit, opts.RateBurst)
	}
	return s
}

// newRequestValidator reports fields by their JSON names.
func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/validate", s.handleValidate)
			r.With(s.limit).Post("/execute", s.handleExecute)
			r.Get("/datasources", s.handleDataSources)
			r.Get("/datasources/{id}/schema", s.handleSchema)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, &apiError{code: core.CodeNotFound, message: "no route for " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: ErrorDetail{
			Code:    core.CodeInvalidInput,
			Message: r.Method + " is not allowed on " + r.URL.Path,
		}})
	})
	return r
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then drains in-flight requests for
// up to ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting API server",
		slog.String("addr", ln.Addr().String()),
		slog.Bool("auth", s.opts.Auth.Enabled))

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			// Requests keep running during shutdown; Shutdown waits for them.
			return context.WithoutCancel(egctx)
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
