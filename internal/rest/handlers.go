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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeremyhahn/go-dkg/internal/session"
	"github.com/jeremyhahn/go-dkg/pkg/health"
)

// HandlerContext holds dependencies for HTTP handlers.
type HandlerContext struct {
	Manager *session.Manager
	Checker *health.Checker
	Version string
}

// NewHandlerContext creates a new handler context.
func NewHandlerContext(manager *session.Manager, checker *health.Checker, version string) *HandlerContext {
	return &HandlerContext{
		Manager: manager,
		Checker: checker,
		Version: version,
	}
}

// HealthHandler handles GET /health. It answers 503 when a readiness
// check is unhealthy.
func (h *HandlerContext) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := h.Checker.Ready(r.Context())
	resp := HealthResponse{
		Status:   health.AggregateStatus(checks),
		Version:  h.Version,
		Sessions: h.Manager.Len(),
		Uptime:   h.Checker.Uptime().Round(time.Second).String(),
		Checks:   checks,
	}

	statusCode := http.StatusOK
	if resp.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, resp, statusCode)
}

// CreateSessionHandler handles POST /api/v1/sessions.
func (h *HandlerContext) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorWithMessage(w, ErrInvalidRequest, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.Manager.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/sessions/"+info.ID)
	writeJSON(w, info, http.StatusCreated)
}

// ListSessionsHandler handles GET /api/v1/sessions.
func (h *HandlerContext) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions := h.Manager.List(r.Context())
	writeJSON(w, ListSessionsResponse{
		Sessions: sessions,
		Count:    len(sessions),
	}, http.StatusOK)
}

// GetSessionHandler handles GET /api/v1/sessions/{id}.
func (h *HandlerContext) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, ErrMissingID, http.StatusBadRequest)
		return
	}

	info, err := h.Manager.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, info, http.StatusOK)
}

// RemovalHandler handles POST /api/v1/sessions/{id}/removals.
//
// The body names one participant. As in the interactive shell, the name
// "done" or an empty name finalizes the session, so the response carries
// either a step or a final report.
func (h *HandlerContext) RemovalHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, ErrMissingID, http.StatusBadRequest)
		return
	}

	var req RemovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErrorWithMessage(w, ErrInvalidRequest, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.Manager.Submit(r.Context(), id, req.Name)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, outcome, http.StatusOK)
}

// FinalizeHandler handles POST /api/v1/sessions/{id}/finalize.
func (h *HandlerContext) FinalizeHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, ErrMissingID, http.StatusBadRequest)
		return
	}

	final, err := h.Manager.Finalize(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, final, http.StatusOK)
}

// EscrowHandler handles POST /api/v1/sessions/{id}/escrow.
func (h *HandlerContext) EscrowHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, ErrMissingID, http.StatusBadRequest)
		return
	}

	escrow, err := h.Manager.Escrow(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, escrow, http.StatusOK)
}

// EventsHandler handles GET /api/v1/sessions/{id}/events.
func (h *HandlerContext) EventsHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, ErrMissingID, http.StatusBadRequest)
		return
	}

	events, err := h.Manager.Events(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, EventsResponse{Events: events, Count: len(events)}, http.StatusOK)
}

// DeleteSessionHandler handles DELETE /api/v1/sessions/{id}.
func (h *HandlerContext) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, ErrMissingID, http.StatusBadRequest)
		return
	}

	if err := h.Manager.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
