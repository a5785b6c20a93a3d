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
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeremyhahn/go-dkg/pkg/correlation"
	"github.com/jeremyhahn/go-dkg/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryMiddleware(t *testing.T) {
	var logs bytes.Buffer
	s := &Server{logger: logging.New("debug", logging.FormatJSON, &logs)}

	h := s.RecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "kaboom")
}

func TestLoggingMiddleware_CarriesCorrelationID(t *testing.T) {
	var logs bytes.Buffer
	s := &Server{logger: logging.New("debug", logging.FormatJSON, &logs)}

	h := s.CorrelationMiddleware()(s.LoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "corr-1", correlation.GetCorrelationID(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	req.Header.Set(correlation.RequestIDHeader, "corr-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "corr-1", rec.Header().Get(correlation.CorrelationIDHeader))
	assert.Contains(t, logs.String(), `"correlation_id":"corr-1"`)
	assert.Contains(t, logs.String(), `"status":418`)
}

func TestCORSMiddleware(t *testing.T) {
	called := false
	h := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, called)
}
