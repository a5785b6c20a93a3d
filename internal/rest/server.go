// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-dkg.
//
// go-dkg is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeremyhahn/go-dkg/internal/session"
	"github.com/jeremyhahn/go-dkg/pkg/health"
	"github.com/jeremyhahn/go-dkg/pkg/logging"
	"github.com/jeremyhahn/go-dkg/pkg/metrics"
	"github.com/jeremyhahn/go-dkg/pkg/ratelimit"
)

// Server represents the REST API server.
type Server struct {
	server   *http.Server
	handlers *HandlerContext
	limiter  *ratelimit.Limiter
	logger   *logging.SlogAdapter
	cfg      Config
}

// Config holds the REST server configuration.
type Config struct {
	// Manager holds the sessions served by the API. Required.
	Manager *session.Manager

	// Host is the interface to bind (default: all interfaces)
	Host string

	// Port is the HTTP port to listen on (default: 8080)
	Port int

	// Version is reported by /health
	Version string

	// Logger defaults to a text logger on stderr
	Logger *logging.SlogAdapter

	// Limiter rate limits /api/v1 (optional)
	Limiter *ratelimit.Limiter

	// Checker supplies readiness checks for /health. Defaults to an
	// unlimited session capacity check.
	Checker *health.Checker

	// MetricsPath serves Prometheus metrics when set, e.g. "/metrics"
	MetricsPath string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Manager == nil {
		return nil, fmt.Errorf("session manager is required")
	}

	c := *cfg
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logging.NewSlogAdapter(&logging.SlogConfig{Level: logging.LevelInfo})
	}
	if c.Limiter == nil {
		c.Limiter = ratelimit.New(nil)
	}
	if c.Checker == nil {
		c.Checker = health.NewChecker()
		c.Checker.RegisterCheck("sessions", health.SessionCapacity(c.Manager.Len, 0))
	}

	s := &Server{
		handlers: NewHandlerContext(c.Manager, c.Checker, c.Version),
		limiter:  c.Limiter,
		logger:   c.Logger,
		cfg:      c,
	}

	s.server = &http.Server{
		Addr:         net.JoinHostPort(c.Host, fmt.Sprint(c.Port)),
		Handler:      s.setupRouter(),
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  c.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(c.Logger.Slog().Handler(), slog.LevelError),
	}
	return s, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware())
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", s.handlers.HealthHandler)
	r.Head("/health", s.handlers.HealthHandler)

	if s.cfg.MetricsPath != "" {
		r.Method(http.MethodGet, s.cfg.MetricsPath, metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ratelimit.Middleware(s.limiter))

		r.Post("/sessions", s.handlers.CreateSessionHandler)
		r.Get("/sessions", s.handlers.ListSessionsHandler)
		r.Get("/sessions/{id}", s.handlers.GetSessionHandler)
		r.Delete("/sessions/{id}", s.handlers.DeleteSessionHandler)

		r.Post("/sessions/{id}/removals", s.handlers.RemovalHandler)
		r.Post("/sessions/{id}/finalize", s.handlers.FinalizeHandler)
		r.Post("/sessions/{id}/escrow", s.handlers.EscrowHandler)
		r.Get("/sessions/{id}/events", s.handlers.EventsHandler)
	})

	return r
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens and serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		logging.String("addr", s.server.Addr),
		logging.Bool("rate_limit", s.limiter.IsEnabled()),
		logging.String("metrics_path", s.cfg.MetricsPath))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	s.limiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", logging.Error(err))
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}
