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

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeremyhahn/go-dkg/internal/config"
	"github.com/jeremyhahn/go-dkg/internal/session"
	"github.com/jeremyhahn/go-dkg/pkg/client"
	"github.com/jeremyhahn/go-dkg/pkg/logging"
)

// Config holds CLI configuration
type Config struct {
	// ConfigFile is the path to the YAML configuration file
	ConfigFile string

	// OutputFormat controls output formatting (text, json)
	OutputFormat string

	// Verbose enables debug logging to stderr
	Verbose bool

	// Server is the URL of a dkg-server. When empty sessions run in process.
	Server string
}

// NewConfig creates a new CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		OutputFormat: string(OutputFormatText),
	}
}

// IsRemote returns true if the CLI should drive a remote server
func (c *Config) IsRemote() bool {
	return strings.TrimSpace(c.Server) != ""
}

// Format returns the validated output format.
func (c *Config) Format() (OutputFormat, error) {
	return ParseOutputFormat(c.OutputFormat)
}

// Settings loads the configuration file, or defaults when none is set.
func (c *Config) Settings() (*config.Config, error) {
	return config.LoadOrDefault(c.ConfigFile)
}

// Logger returns a debug logger on stderr when verbose, else a discarding one.
func (c *Config) Logger(stderr io.Writer) *logging.SlogAdapter {
	if c.Verbose {
		return logging.New("debug", logging.FormatText, stderr)
	}
	return logging.Discard()
}

// NewDriver creates the session driver selected by Server. seed overrides
// the configured PRNG seed when non-zero; it only affects local sessions.
func (c *Config) NewDriver(settings *config.Config, seed uint64, stderr io.Writer) (Driver, error) {
	if c.IsRemote() {
		cl, err := client.New(&client.Config{Address: c.Server})
		if err != nil {
			return nil, err
		}
		return newRemoteDriver(cl), nil
	}

	sessionCfg := settings.Session
	if seed != 0 {
		sessionCfg.Seed = seed
	}
	gen, err := sessionCfg.NewGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create polynomial generator: %w", err)
	}
	manager, err := session.NewManager(&session.Config{
		Generator: gen,
		Options:   sessionCfg.Options(),
		Logger:    c.Logger(stderr),
	})
	if err != nil {
		return nil, err
	}
	return newLocalDriver(manager), nil
}
