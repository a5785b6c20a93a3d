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

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeremyhahn/go-dkg/internal/config"
	"github.com/jeremyhahn/go-dkg/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, "1.0.0")
	assert.Error(t, err)
}

func TestNew_WiresComponents(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Seed = 11
	cfg.Session.MaxSessions = 2
	cfg.Logging.Level = "error"

	s, err := New(cfg, "1.2.3")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	assert.Equal(t, "1.2.3", s.Version())
	require.NotNil(t, s.Manager())
	require.NotNil(t, s.RESTServer())
	assert.Equal(t, "0.0.0.0:8080", s.RESTServer().Addr())

	h := s.RESTServer().Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status  health.Status `json:"status"`
		Version string        `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	cfg.Logging.Level = "error"

	s, err := New(cfg, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	assert.NotEmpty(t, s.Version())

	rec := httptest.NewRecorder()
	s.RESTServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_InvalidSessionRange(t *testing.T) {
	cfg := config.Default()
	cfg.Session.SecretRange.Min = 10
	cfg.Session.SecretRange.Max = 1

	_, err := New(cfg, "1.0.0")
	assert.Error(t, err)
}
