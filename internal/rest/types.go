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
	"github.com/jeremyhahn/go-dkg/internal/session"
	"github.com/jeremyhahn/go-dkg/pkg/audit"
	"github.com/jeremyhahn/go-dkg/pkg/health"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   health.Status        `json:"status"`
	Version  string               `json:"version,omitempty"`
	Sessions int                  `json:"sessions"`
	Uptime   string               `json:"uptime"`
	Checks   []health.CheckResult `json:"checks,omitempty"`
}

// CreateSessionRequest represents a session creation request.
type CreateSessionRequest = session.CreateRequest

// RemovalRequest names the participant to remove. The finish token "done"
// or an empty name finalizes the session instead.
type RemovalRequest struct {
	Name string `json:"name"`
}

// ListSessionsResponse represents the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []session.Summary `json:"sessions"`
	Count    int               `json:"count"`
}

// EventsResponse is the audit trail of one session.
type EventsResponse struct {
	Events []*audit.Event `json:"events"`
	Count  int            `json:"count"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
