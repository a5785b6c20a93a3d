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

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jeremyhahn/go-dkg/pkg/dkg"
	"github.com/jeremyhahn/go-dkg/pkg/rand"
	"github.com/jeremyhahn/go-dkg/pkg/ratelimit"
	"github.com/jeremyhahn/go-dkg/pkg/sharing"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration shared by the CLI and the
// server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Session   SessionConfig   `yaml:"session"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RateLimitConfig controls per-client rate limiting
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min"`
	Burst          int  `yaml:"burst"`
}

// SessionConfig controls how key generation sessions are built.
type SessionConfig struct {
	// SecretRange bounds each participant's secret (the constant term).
	SecretRange sharing.Range `yaml:"secret_range"`

	// CoeffRange bounds the higher-degree coefficients.
	CoeffRange sharing.Range `yaml:"coefficient_range"`

	// Seed makes polynomial generation reproducible. Zero keys the PRNG
	// from the operating system.
	Seed uint64 `yaml:"seed"`

	// EnforceThreshold rejects removals that would drop the active set
	// below the threshold.
	EnforceThreshold bool `yaml:"enforce_threshold"`

	// SecretConvention is "constant" or "reference".
	SecretConvention string `yaml:"secret_convention"`

	// MaxSessions caps the sessions held by the server. Zero is unlimited.
	MaxSessions int `yaml:"max_sessions"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		RateLimit: RateLimitConfig{
			Enabled:        false,
			RequestsPerMin: 600,
		},
		Session: SessionConfig{
			SecretRange:      sharing.DefaultRange(),
			CoeffRange:       sharing.DefaultRange(),
			EnforceThreshold: true,
			SecretConvention: string(dkg.ConventionConstantTerm),
			MaxSessions:      1000,
		},
	}
}

// Load reads configuration from a YAML file on top of Default and applies
// environment variable overrides.
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is set and otherwise returns Default
// with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("DKG_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if raw := os.Getenv("DKG_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			log.Printf("Warning: invalid DKG_PORT value %q, using %d: %v", raw, cfg.Server.Port, err)
		} else if port < 1 || port > 65535 {
			log.Printf("Warning: invalid DKG_PORT value %q (out of range 1-65535), using %d", raw, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}

	if level := os.Getenv("DKG_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("DKG_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if raw := os.Getenv("DKG_SEED"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			log.Printf("Warning: invalid DKG_SEED value %q, ignoring: %v", raw, err)
		} else {
			cfg.Session.Seed = seed
		}
	}
	if raw := os.Getenv("DKG_ENFORCE_THRESHOLD"); raw != "" {
		enforce, err := strconv.ParseBool(raw)
		if err != nil {
			log.Printf("Warning: invalid DKG_ENFORCE_THRESHOLD value %q, using %t: %v",
				raw, cfg.Session.EnforceThreshold, err)
		} else {
			cfg.Session.EnforceThreshold = enforce
		}
	}
	if convention := os.Getenv("DKG_SECRET_CONVENTION"); convention != "" {
		cfg.Session.SecretConvention = convention
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics path: %q (must start with /)", c.Metrics.Path)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMin < 1 {
		return fmt.Errorf("ratelimit requests_per_min must be positive when enabled, got %d", c.RateLimit.RequestsPerMin)
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("ratelimit burst cannot be negative: %d", c.RateLimit.Burst)
	}

	if err := c.Session.SecretRange.Validate(); err != nil {
		return fmt.Errorf("session secret_range: %w", err)
	}
	if err := c.Session.CoeffRange.Validate(); err != nil {
		return fmt.Errorf("session coefficient_range: %w", err)
	}
	if _, err := dkg.ParseConvention(c.Session.SecretConvention); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("session max_sessions cannot be negative: %d", c.Session.MaxSessions)
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Options returns the session options described by the configuration.
func (c *SessionConfig) Options() *dkg.Options {
	convention, err := dkg.ParseConvention(c.SecretConvention)
	if err != nil {
		convention = dkg.ConventionConstantTerm
	}
	return &dkg.Options{
		EnforceThreshold: c.EnforceThreshold,
		Convention:       convention,
	}
}

// RandConfig returns the PRNG configuration: seeded when Seed is set.
func (c *SessionConfig) RandConfig() *rand.Config {
	return &rand.Config{Seed: c.Seed}
}

// NewGenerator builds a polynomial generator from the session settings.
func (c *SessionConfig) NewGenerator() (*sharing.Generator, error) {
	source, err := rand.NewSource(c.RandConfig())
	if err != nil {
		return nil, err
	}
	secretRange, coeffRange := c.SecretRange, c.CoeffRange
	return sharing.NewGenerator(&sharing.Config{
		Source:      source,
		SecretRange: &secretRange,
		CoeffRange:  &coeffRange,
	})
}

// Limiter returns the rate limiter configuration.
func (c *RateLimitConfig) Limiter() *ratelimit.Config {
	return &ratelimit.Config{
		Enabled:           c.Enabled,
		RequestsPerMinute: c.RequestsPerMin,
		Burst:             c.Burst,
	}
}
