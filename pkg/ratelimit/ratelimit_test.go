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

package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Disabled(t *testing.T) {
	l := New(nil)
	defer l.Stop()

	assert.False(t, l.IsEnabled())
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("client"))
	}
	assert.NoError(t, l.Wait(context.Background(), "client"))
}

func TestLimiter_Burst(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 60, Burst: 3})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("a"), "request %d", i)
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	stats := l.Stats()
	assert.Equal(t, 2, stats["active_clients"])
	assert.Equal(t, 3, stats["burst"])
	assert.InDelta(t, 60.0, stats["rate_per_min"], 0.0001)
}

func TestLimiter_BurstDefaultsToRate(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 5})
	defer l.Stop()
	assert.Equal(t, 5, l.Stats()["burst"])
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 1, Burst: 1})
	defer l.Stop()

	require.NoError(t, l.Wait(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "a"))
}

func TestLimiter_Cleanup(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 60, MaxIdle: time.Minute})
	defer l.Stop()

	l.Allow("old")
	l.cleanup(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, l.Stats()["active_clients"])

	l.Stop()
	l.Stop()
}

func TestMiddleware(t *testing.T) {
	l := New(&Config{Enabled: true, RequestsPerMinute: 60, Burst: 1})
	defer l.Stop()

	handler := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "9.9.9.9:1", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "9.9.9.9:1", "3.3.3.3"},
		{"remote with port", nil, "4.4.4.4:5678", "4.4.4.4"},
		{"remote without port", nil, "pipe", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
