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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeremyhahn/go-dkg/internal/session"
	"github.com/jeremyhahn/go-dkg/pkg/dkg"
	"github.com/jeremyhahn/go-dkg/pkg/threshold/shamir"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: %q", dkg.ErrUnknownParticipant, "Dave"), http.StatusNotFound},
		{ErrInvalidRequest, http.StatusBadRequest},
		{ErrMissingID, http.StatusBadRequest},
		{dkg.ErrInvalidThreshold, http.StatusBadRequest},
		{dkg.ErrDuplicateName, http.StatusBadRequest},
		{dkg.ErrInvalidConvention, http.StatusBadRequest},
		{dkg.ErrSessionFinalized, http.StatusConflict},
		{session.ErrNotFinalized, http.StatusConflict},
		{dkg.ErrBelowThreshold, http.StatusUnprocessableEntity},
		{shamir.ErrTooFewHolders, http.StatusUnprocessableEntity},
		{session.ErrTooManySessions, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, mapErrorToStatusCode(tt.err))
		})
	}
}

func TestHandleError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	handleError(rec, errors.New("secret detail"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
	assert.Contains(t, rec.Body.String(), ErrInternalError.Error())
}

func TestWriteJSON_UnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, map[string]interface{}{"f": func() {}}, http.StatusOK)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
