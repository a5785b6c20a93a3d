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

// Package server assembles the dkg-server process: session manager, rate
// limiter, health checks, metrics and the REST API.
package server

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jeremyhahn/go-dkg/internal/config"
	"github.com/jeremyhahn/go-dkg/internal/rest"
	"github.com/jeremyhahn/go-dkg/internal/session"
	"github.com/jeremyhahn/go-dkg/pkg/health"
	"github.com/jeremyhahn/go-dkg/pkg/logging"
	"github.com/jeremyhahn/go-dkg/pkg/metrics"
	"github.com/jeremyhahn/go-dkg/pkg/ratelimit"
)

// collectInterval is how often runtime resource gauges are refreshed.
const collectInterval = 30 * time.Second

// Server owns every long-lived component of dkg-server.
type Server struct {
	config  *config.Config
	logger  *logging.SlogAdapter
	version string

	manager *session.Manager
	limiter *ratelimit.Limiter
	checker *health.Checker

	restServer       *rest.Server
	metricsCollector *metrics.ResourceCollector

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds the server from validated configuration. An empty version
// falls back to the module build information.
func New(cfg *config.Config, version string) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if version == "" || version == "dev" {
		version = getBuildVersion()
	}

	logger := logging.NewSlogAdapter(&logging.SlogConfig{
		Level:  mustLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:  cfg,
		logger:  logger,
		version: version,
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := s.initializeSessions(); err != nil {
		cancel()
		return nil, err
	}
	s.initializeHealth()
	s.initializeMetrics()

	s.limiter = ratelimit.New(cfg.RateLimit.Limiter())

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	restServer, err := rest.NewServer(&rest.Config{
		Manager:      s.manager,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Version:      version,
		Logger:       logger,
		Limiter:      s.limiter,
		Checker:      s.checker,
		MetricsPath:  metricsPath,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	})
	if err != nil {
		_ = s.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create REST server: %w", err)
	}
	s.restServer = restServer

	return s, nil
}

func mustLevel(s string) logging.Level {
	level, err := logging.ParseLevel(s)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

// getBuildVersion retrieves the version from build information
func getBuildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return setting.Value[:7]
		}
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func (s *Server) initializeSessions() error {
	gen, err := s.config.Session.NewGenerator()
	if err != nil {
		return fmt.Errorf("failed to create polynomial generator: %w", err)
	}
	if s.config.Session.Seed != 0 {
		s.logger.Warn("Using a fixed PRNG seed; generated polynomials are reproducible",
			logging.Int64("seed", int64(s.config.Session.Seed)))
	}

	s.manager, err = session.NewManager(&session.Config{
		Generator:   gen,
		Options:     s.config.Session.Options(),
		MaxSessions: s.config.Session.MaxSessions,
		Logger:      s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}
	return nil
}

func (s *Server) initializeHealth() {
	s.checker = health.NewChecker()
	s.checker.RegisterCheck("sessions",
		health.SessionCapacity(s.manager.Len, s.config.Session.MaxSessions))
}

func (s *Server) initializeMetrics() {
	if !s.config.Metrics.Enabled {
		metrics.Disable()
		return
	}
	metrics.Enable()
	s.metricsCollector = metrics.StartResourceCollector(s.ctx, collectInterval)
	s.logger.Info("Metrics initialized", logging.String("path", s.config.Metrics.Path))
}

// Manager returns the session manager.
func (s *Server) Manager() *session.Manager {
	return s.manager
}

// RESTServer returns the HTTP API server.
func (s *Server) RESTServer() *rest.Server {
	return s.restServer
}

// Version returns the reported server version.
func (s *Server) Version() string {
	return s.version
}

// Start serves the REST API until Shutdown is called.
func (s *Server) Start() error {
	return s.restServer.Start()
}

// Shutdown stops the HTTP server and background collectors.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if s.metricsCollector != nil {
		s.metricsCollector.Stop()
	}
	s.cancel()

	var err error
	if s.restServer != nil {
		err = s.restServer.Stop(ctx)
	} else if s.limiter != nil {
		s.limiter.Stop()
	}

	s.logger.Info("Server shutdown complete", logging.Int("sessions_discarded", s.manager.Len()))
	return err
}
