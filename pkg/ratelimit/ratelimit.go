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

// Package ratelimit provides a per-client token bucket limiter for the
// session API.
package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeremyhahn/go-dkg/pkg/metrics"
	"golang.org/x/time/rate"
)

// Limiter tracks one token bucket per client identifier.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	enabled  bool

	cleanupInterval time.Duration
	maxIdle         time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// Config holds rate limiter configuration.
type Config struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// RequestsPerMinute sets the sustained rate.
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`

	// Burst allows short bursts above the sustained rate. Defaults to
	// RequestsPerMinute.
	Burst int `yaml:"burst" json:"burst"`

	// CleanupInterval controls how often idle clients are dropped.
	// Defaults to 10 minutes.
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`

	// MaxIdle is how long a client can be idle before cleanup. Defaults
	// to 30 minutes.
	MaxIdle time.Duration `yaml:"max_idle" json:"max_idle"`
}

// New creates a rate limiter. A nil or disabled config allows everything.
func New(config *Config) *Limiter {
	if config == nil {
		config = &Config{Enabled: false}
	}

	burst := config.Burst
	if burst == 0 {
		burst = config.RequestsPerMinute
	}
	cleanupInterval := config.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 10 * time.Minute
	}
	maxIdle := config.MaxIdle
	if maxIdle == 0 {
		maxIdle = 30 * time.Minute
	}

	l := &Limiter{
		limiters:        make(map[string]*rate.Limiter),
		lastSeen:        make(map[string]time.Time),
		rate:            rate.Limit(float64(config.RequestsPerMinute) / 60.0),
		burst:           burst,
		enabled:         config.Enabled,
		cleanupInterval: cleanupInterval,
		maxIdle:         maxIdle,
		stopCleanup:     make(chan struct{}),
	}

	if config.Enabled {
		go l.cleanupWorker()
	}
	return l
}

func (l *Limiter) getLimiter(clientID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[clientID]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[clientID] = limiter
	}
	l.lastSeen[clientID] = time.Now()
	return limiter
}

// Allow reports whether a request from clientID is within its limit.
func (l *Limiter) Allow(clientID string) bool {
	if !l.enabled {
		return true
	}
	return l.getLimiter(clientID).Allow()
}

// Wait blocks until clientID may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, clientID string) error {
	if !l.enabled {
		return nil
	}
	return l.getLimiter(clientID).Wait(ctx)
}

func (l *Limiter) cleanupWorker() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanup drops clients idle for longer than maxIdle as of now.
func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for clientID, lastSeen := range l.lastSeen {
		if now.Sub(lastSeen) > l.maxIdle {
			delete(l.limiters, clientID)
			delete(l.lastSeen, clientID)
		}
	}
}

// Stop stops the cleanup worker. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// Stats returns current limiter statistics.
func (l *Limiter) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	return map[string]interface{}{
		"enabled":        l.enabled,
		"active_clients": len(l.limiters),
		"rate_per_min":   float64(l.rate) * 60,
		"burst":          l.burst,
	}
}

// IsEnabled returns whether rate limiting is enabled.
func (l *Limiter) IsEnabled() bool {
	return l.enabled
}

// Middleware rejects requests over the limit with 429, keyed on client IP.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(ClientIP(r)) {
				metrics.RecordRateLimited()
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": "rate limit exceeded",
					"code":  http.StatusTooManyRequests,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client address, preferring X-Forwarded-For and
// X-Real-IP over RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
