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

// Package health reports liveness and readiness of the session server.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
}

// CheckFunc performs a readiness check.
type CheckFunc func(ctx context.Context) CheckResult

// Checker holds readiness checks and the process start time.
type Checker struct {
	mu        sync.RWMutex
	startTime time.Time
	checks    map[string]CheckFunc
}

// NewChecker creates a checker with no registered checks.
func NewChecker() *Checker {
	return &Checker{
		checks:    make(map[string]CheckFunc),
		startTime: time.Now(),
	}
}

// RegisterCheck adds or replaces a named readiness check. Nil checks are ignored.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	if check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Ready runs every registered check, ordered by name.
func (c *Checker) Ready(ctx context.Context) []CheckResult {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()
	sort.Strings(names)

	results := make([]CheckResult, 0, len(names))
	for _, name := range names {
		start := time.Now()
		result := checks[name](ctx)
		result.Latency = time.Since(start)
		if result.Name == "" {
			result.Name = name
		}
		results = append(results, result)
	}
	return results
}

// Uptime returns how long the checker has existed.
func (c *Checker) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// SessionCapacity reports degraded at 90% of max held sessions and
// unhealthy once the limit is reached. A max of zero is unlimited.
func SessionCapacity(count func() int, max int) CheckFunc {
	return func(ctx context.Context) CheckResult {
		n := count()
		result := CheckResult{
			Name:    "sessions",
			Status:  StatusHealthy,
			Message: fmt.Sprintf("%d sessions held", n),
		}
		if max <= 0 {
			return result
		}
		result.Message = fmt.Sprintf("%d of %d sessions held", n, max)
		switch {
		case n >= max:
			result.Status = StatusUnhealthy
		case n*10 >= max*9:
			result.Status = StatusDegraded
		}
		return result
	}
}

// AggregateStatus returns the worst status among results.
// - any unhealthy result makes the aggregate unhealthy
// - otherwise any degraded result makes it degraded
func AggregateStatus(results []CheckResult) Status {
	status := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}
