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
	"log"
	"net/http"

	"github.com/jeremyhahn/go-dkg/internal/session"
	"github.com/jeremyhahn/go-dkg/pkg/dkg"
	"github.com/jeremyhahn/go-dkg/pkg/threshold/shamir"
)

// Common errors
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrMissingID      = errors.New("missing session id")
	ErrInternalError  = errors.New("internal server error")
)

// writeError writes an error response to the client.
func writeError(w http.ResponseWriter, err error, statusCode int) {
	writeErrorWithMessage(w, err, "", statusCode)
}

// writeErrorWithMessage writes an error response with a custom message.
func writeErrorWithMessage(w http.ResponseWriter, err error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   err.Error(),
		Message: message,
		Code:    statusCode,
	}

	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		log.Printf("Failed to encode error response: %v", encErr)
	}
}

// mapErrorToStatusCode maps errors to HTTP status codes.
func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, dkg.ErrUnknownParticipant):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrMissingID),
		errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, dkg.ErrInvalidThreshold),
		errors.Is(err, dkg.ErrEmptyName),
		errors.Is(err, dkg.ErrDuplicateName),
		errors.Is(err, dkg.ErrReservedName),
		errors.Is(err, dkg.ErrInvalidPolynomial),
		errors.Is(err, dkg.ErrInvalidConvention):
		return http.StatusBadRequest
	case errors.Is(err, dkg.ErrSessionFinalized),
		errors.Is(err, dkg.ErrNotDistributed),
		errors.Is(err, dkg.ErrAlreadyDistributed),
		errors.Is(err, session.ErrNotFinalized):
		return http.StatusConflict
	case errors.Is(err, dkg.ErrBelowThreshold),
		errors.Is(err, dkg.ErrNoActiveParticipants),
		errors.Is(err, shamir.ErrTooFewHolders):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleError maps the error to a status code and writes the response.
// Internal errors are not echoed to the client.
func handleError(w http.ResponseWriter, err error) {
	statusCode := mapErrorToStatusCode(err)
	if statusCode == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
		writeErrorWithMessage(w, ErrInternalError, "An unexpected error occurred", statusCode)
		return
	}
	writeError(w, err, statusCode)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
		writeError(w, ErrInternalError, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(body, '\n'))
}
