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

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeremyhahn/go-dkg/pkg/audit"
	"github.com/jeremyhahn/go-dkg/pkg/correlation"
	"github.com/jeremyhahn/go-dkg/pkg/dkg"
	"github.com/jeremyhahn/go-dkg/pkg/logging"
	"github.com/jeremyhahn/go-dkg/pkg/rand"
	"github.com/jeremyhahn/go-dkg/pkg/sharing"
	"github.com/jeremyhahn/go-dkg/pkg/threshold/shamir"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, cfg *Config) *Manager {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Generator == nil {
		gen, err := sharing.NewGenerator(&sharing.Config{Source: rand.NewSeeded(1)})
		require.NoError(t, err)
		cfg.Generator = gen
	}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m
}

func fixtureRequest() *CreateRequest {
	return &CreateRequest{
		Threshold:    2,
		Participants: []string{"Alice", "Bob", "Carol"},
		Polynomials:  [][]string{{"3", "7"}, {"2", "5"}, {"4", "9"}},
	}
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(nil)
	assert.Error(t, err)

	_, err = NewManager(&Config{})
	assert.Error(t, err)

	gen, err := sharing.NewGenerator(&sharing.Config{Source: rand.NewSeeded(1)})
	require.NoError(t, err)
	_, err = NewManager(&Config{Generator: gen, MaxSessions: -1})
	assert.Error(t, err)
}

func TestManager_FullLifecycle(t *testing.T) {
	var logs bytes.Buffer
	m := newTestManager(t, &Config{Logger: logging.New("debug", logging.FormatJSON, &logs)})
	ctx := context.Background()

	info, err := m.Create(ctx, fixtureRequest())
	require.NoError(t, err)
	require.NotEmpty(t, info.ID)
	assert.Equal(t, "shares_distributed", info.Session.State)
	assert.Equal(t, 1, m.Len())

	out, err := m.Submit(ctx, info.ID, "bob")
	require.NoError(t, err)
	require.NotNil(t, out.Step)
	assert.Equal(t, "7", out.Step.Secret.RatString())
	assert.Equal(t, []string{"Alice", "Carol"}, out.Step.Active)

	_, err = m.Escrow(ctx, info.ID)
	assert.ErrorIs(t, err, ErrNotFinalized)

	out, err = m.Submit(ctx, info.ID, "DONE")
	require.NoError(t, err)
	require.NotNil(t, out.Final)
	assert.Equal(t, "7", out.Final.Secret.RatString())

	_, err = m.Remove(ctx, info.ID, "Alice")
	assert.ErrorIs(t, err, dkg.ErrSessionFinalized)

	escrow, err := m.Escrow(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, escrow.Threshold)
	require.Len(t, escrow.Shares, 2)
	assert.Equal(t, "Alice", escrow.Shares[0].Holder())
	assert.Equal(t, "Carol", escrow.Shares[1].Holder())

	secret, err := shamir.RecoverSecret(escrow.Shares)
	require.NoError(t, err)
	assert.Equal(t, "7", secret.RatString())

	again, err := m.Escrow(ctx, info.ID)
	require.NoError(t, err)
	assert.Same(t, escrow, again)

	got, err := m.Get(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "finalized", got.Session.State)
	assert.Same(t, escrow, got.Escrow)

	require.NoError(t, m.Delete(ctx, info.ID))
	assert.Equal(t, 0, m.Len())

	assert.Contains(t, logs.String(), `"session_id":"`+info.ID+`"`)
	assert.Contains(t, logs.String(), "Participant removed")
}

func TestManager_RandomDistribution(t *testing.T) {
	m := newTestManager(t, nil)
	info, err := m.Create(context.Background(), &CreateRequest{
		Threshold:    3,
		Participants: []string{"a", "b", "c", "d"},
	})
	require.NoError(t, err)

	for _, p := range info.Session.Participants {
		assert.Equal(t, 3, p.Polynomial.Len())
		assert.Len(t, p.Shares, 4)
	}
}

func TestManager_CreateErrors(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	_, err := m.Create(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = m.Create(ctx, &CreateRequest{Threshold: 4, Participants: []string{"a", "b"}})
	assert.ErrorIs(t, err, dkg.ErrInvalidThreshold)

	_, err = m.Create(ctx, &CreateRequest{Threshold: 1, Participants: []string{"a", "A"}})
	assert.ErrorIs(t, err, dkg.ErrDuplicateName)

	req := fixtureRequest()
	req.Polynomials[1] = []string{"two", "5"}
	_, err = m.Create(ctx, req)
	assert.ErrorIs(t, err, dkg.ErrInvalidPolynomial)

	req = fixtureRequest()
	req.Polynomials[1] = []string{"2"}
	_, err = m.Create(ctx, req)
	assert.ErrorIs(t, err, dkg.ErrInvalidPolynomial)

	req = fixtureRequest()
	req.Convention = "middle"
	_, err = m.Create(ctx, req)
	assert.ErrorIs(t, err, dkg.ErrInvalidConvention)

	assert.Equal(t, 0, m.Len())
}

func TestManager_Overrides(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	enforce := false
	req := fixtureRequest()
	req.EnforceThreshold = &enforce
	req.Convention = string(dkg.ConventionReference)

	info, err := m.Create(ctx, req)
	require.NoError(t, err)
	assert.False(t, info.Session.Enforced)

	step, err := m.Remove(ctx, info.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "16", step.Secret.RatString())

	step, err = m.Remove(ctx, info.ID, "Alice")
	require.NoError(t, err)
	assert.True(t, step.BelowThreshold)
}

func TestManager_MaxSessions(t *testing.T) {
	m := newTestManager(t, &Config{MaxSessions: 1})
	ctx := context.Background()

	first, err := m.Create(ctx, fixtureRequest())
	require.NoError(t, err)

	_, err = m.Create(ctx, fixtureRequest())
	assert.ErrorIs(t, err, ErrTooManySessions)

	require.NoError(t, m.Delete(ctx, first.ID))
	_, err = m.Create(ctx, fixtureRequest())
	assert.NoError(t, err)
}

func TestManager_NotFound(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	missing := uuid.NewString()
	_, err := m.Get(ctx, missing)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Remove(ctx, missing, "Alice")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Submit(ctx, missing, "done")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Escrow(ctx, missing)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(ctx, missing), ErrSessionNotFound)
}

func TestManager_RejectsMalformedSessionID(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	for _, id := range []string{"", "missing", "not-a-uuid", "../etc"} {
		_, err := m.Get(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidRequest, id)
		_, err = m.Remove(ctx, id, "Alice")
		assert.ErrorIs(t, err, ErrInvalidRequest, id)
		_, err = m.Finalize(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidRequest, id)
		_, err = m.Events(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidRequest, id)
		assert.ErrorIs(t, m.Delete(ctx, id), ErrInvalidRequest, id)
	}

	events, err := m.audit.GetEvents(ctx, &audit.EventQuery{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestManager_UnknownRemovalIsIdempotent(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	info, err := m.Create(ctx, fixtureRequest())
	require.NoError(t, err)

	_, err = m.Remove(ctx, info.ID, "Mallory")
	assert.ErrorIs(t, err, dkg.ErrUnknownParticipant)

	after, err := m.Get(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.Session, after.Session)
}

func TestManager_ListOrdering(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	m := newTestManager(t, &Config{Clock: func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		info, err := m.Create(ctx, fixtureRequest())
		require.NoError(t, err)
		ids = append(ids, info.ID)
	}

	list := m.List(ctx)
	require.Len(t, list, 3)
	for i, s := range list {
		assert.Equal(t, ids[i], s.ID)
		assert.Equal(t, 3, s.Participants)
		assert.Equal(t, 3, s.Active)
		assert.Equal(t, 2, s.Threshold)
	}
}

func TestManager_Concurrent(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			names := []string{fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i), fmt.Sprintf("c%d", i)}
			info, err := m.Create(ctx, &CreateRequest{Threshold: 2, Participants: names})
			if err != nil {
				errs <- err
				return
			}
			if _, err := m.Remove(ctx, info.ID, names[1]); err != nil {
				errs <- err
				return
			}
			if _, err := m.Finalize(ctx, info.ID); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 20, m.Len())
	assert.Len(t, m.List(ctx), 20)
}

func TestManager_AuditTrail(t *testing.T) {
	log := audit.NewMemoryAdapter(0)
	m := newTestManager(t, &Config{Audit: log})
	ctx := correlation.WithCorrelationID(context.Background(), "req-1")

	info, err := m.Create(ctx, fixtureRequest())
	require.NoError(t, err)
	_, err = m.Remove(ctx, info.ID, "Dave\n")
	require.Error(t, err)
	_, err = m.Submit(ctx, info.ID, "bob")
	require.NoError(t, err)
	_, err = m.Submit(ctx, info.ID, "done")
	require.NoError(t, err)
	_, err = m.Escrow(ctx, info.ID)
	require.NoError(t, err)
	_, err = m.Escrow(ctx, info.ID)
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, info.ID))

	events, err := m.Events(ctx, info.ID)
	require.NoError(t, err)
	types := make([]audit.EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
		assert.Equal(t, info.ID, e.SessionID)
		assert.Equal(t, "req-1", e.CorrelationID)
	}
	assert.Equal(t, []audit.EventType{
		audit.EventSessionCreated,
		audit.EventRemovalRejected,
		audit.EventParticipantRemoved,
		audit.EventSessionFinalized,
		audit.EventSecretEscrowed,
		audit.EventSessionDeleted,
	}, types)

	assert.Equal(t, audit.OutcomeFailure, events[1].Outcome)
	assert.Equal(t, "Dave", events[1].Participant, "control characters are stripped")
	assert.Equal(t, "Bob", events[2].Participant)
	for _, ev := range events[2:4] {
		assert.Equal(t, map[string]string{"points": "2", "degree": "1"}, ev.Metadata)
		assert.NotContains(t, ev.Detail, "7")
	}

	_, err = m.Events(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_RejectsUnsafeInput(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	_, err := m.Create(ctx, &CreateRequest{Threshold: 1, Participants: []string{"Al\x00ice"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = m.Create(ctx, &CreateRequest{
		Threshold:    1,
		Participants: []string{"Alice"},
		Polynomials:  [][]string{{strings.Repeat("9", 2000)}},
	})
	assert.ErrorIs(t, err, dkg.ErrInvalidPolynomial)
	assert.Equal(t, 0, m.Len())
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrSessionNotFound, "session_not_found"},
		{fmt.Errorf("wrap: %w", ErrTooManySessions), "too_many_sessions"},
		{ErrNotFinalized, "not_finalized"},
		{ErrInvalidRequest, "invalid_request"},
		{dkg.ErrInvalidThreshold, "invalid_threshold"},
		{dkg.ErrReservedName, "invalid_name"},
		{dkg.ErrUnknownParticipant, "unknown_participant"},
		{dkg.ErrBelowThreshold, "below_threshold"},
		{dkg.ErrNoActiveParticipants, "no_active_participants"},
		{dkg.ErrSessionFinalized, "session_finalized"},
		{dkg.ErrInvalidPolynomial, "invalid_polynomial"},
		{dkg.ErrInvalidConvention, "invalid_convention"},
		{shamir.ErrTooFewHolders, "too_few_holders"},
		{errors.New("other"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorType(tt.err), tt.err.Error())
	}
}
