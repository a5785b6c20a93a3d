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

// Package session holds concurrent key generation sessions for the HTTP
// API. Each session is driven by a single dkg.Session guarded by its own
// mutex; the Manager records metrics and logs every lifecycle event.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jeremyhahn/go-dkg/pkg/audit"
	"github.com/jeremyhahn/go-dkg/pkg/correlation"
	"github.com/jeremyhahn/go-dkg/pkg/dkg"
	"github.com/jeremyhahn/go-dkg/pkg/logging"
	"github.com/jeremyhahn/go-dkg/pkg/metrics"
	"github.com/jeremyhahn/go-dkg/pkg/polynomial"
	"github.com/jeremyhahn/go-dkg/pkg/sharing"
	"github.com/jeremyhahn/go-dkg/pkg/threshold/shamir"
	"github.com/jeremyhahn/go-dkg/pkg/validation"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("session limit reached")
	ErrNotFinalized    = errors.New("session is not finalized")
	ErrInvalidRequest  = errors.New("invalid session request")
)

// Config configures a Manager.
type Config struct {
	// Generator draws participant polynomials. Required.
	Generator *sharing.Generator

	// Options are the defaults for sessions that do not override them.
	Options *dkg.Options

	// MaxSessions caps held sessions. Zero is unlimited.
	MaxSessions int

	// Logger defaults to a discarding logger.
	Logger *logging.SlogAdapter

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// Audit receives session lifecycle events. Defaults to an in-memory
	// log of audit.DefaultCapacity events.
	Audit audit.Adapter
}

// CreateRequest describes a new session.
type CreateRequest struct {
	Threshold    int      `json:"threshold"`
	Participants []string `json:"participants"`

	// Polynomials optionally fixes each participant's coefficients, lowest
	// degree first, instead of drawing them at random.
	Polynomials [][]string `json:"polynomials,omitempty"`

	// EnforceThreshold and Convention override the manager defaults.
	EnforceThreshold *bool  `json:"enforce_threshold,omitempty"`
	Convention       string `json:"convention,omitempty"`
}

// Info is the externally visible state of a held session.
type Info struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Session   *dkg.Snapshot  `json:"session"`
	Escrow    *shamir.Escrow `json:"escrow,omitempty"`
}

// Summary is the list view of a held session.
type Summary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	State        string    `json:"state"`
	Threshold    int       `json:"threshold"`
	Participants int       `json:"participants"`
	Active       int       `json:"active"`
}

type entry struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	updatedAt time.Time
	session   *dkg.Session
	escrow    *shamir.Escrow
}

// Manager is a concurrency-safe registry of sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	// genMu serializes access to the generator's PRNG.
	genMu sync.Mutex
	gen   *sharing.Generator

	opts        dkg.Options
	maxSessions int
	logger      *logging.SlogAdapter
	audit       audit.Adapter
	now         func() time.Time
}

// NewManager creates a Manager.
func NewManager(config *Config) (*Manager, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if config.MaxSessions < 0 {
		return nil, fmt.Errorf("max sessions cannot be negative: %d", config.MaxSessions)
	}

	opts := dkg.DefaultOptions()
	if config.Options != nil {
		opts = config.Options
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}
	auditLog := config.Audit
	if auditLog == nil {
		auditLog = audit.NewMemoryAdapter(audit.DefaultCapacity)
	}

	return &Manager{
		sessions:    make(map[string]*entry),
		gen:         config.Generator,
		opts:        *opts,
		maxSessions: config.MaxSessions,
		logger:      logger,
		audit:       auditLog,
		now:         now,
	}, nil
}

// Create validates the request, distributes shares and registers the
// session under a new UUID.
func (m *Manager) Create(ctx context.Context, req *CreateRequest) (info *Info, err error) {
	start := time.Now()
	defer func() { m.record(ctx, metrics.OpCreate, start, err) }()

	if req == nil {
		return nil, fmt.Errorf("%w: request body is required", ErrInvalidRequest)
	}
	if err := validation.ValidateParticipants(req.Participants); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	opts := m.opts
	if req.EnforceThreshold != nil {
		opts.EnforceThreshold = *req.EnforceThreshold
	}
	if req.Convention != "" {
		opts.Convention = dkg.SecretConvention(req.Convention)
	}

	s, err := dkg.New(req.Threshold, req.Participants, &opts)
	if err != nil {
		return nil, err
	}

	if len(req.Polynomials) > 0 {
		polys, err := parsePolynomials(req.Polynomials)
		if err != nil {
			return nil, err
		}
		if err := s.DistributeWith(polys); err != nil {
			return nil, err
		}
	} else {
		m.genMu.Lock()
		err = s.Distribute(m.gen)
		m.genMu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	now := m.now()
	e := &entry{
		id:        correlation.NewID(),
		createdAt: now,
		updatedAt: now,
		session:   s,
	}

	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %d sessions held", ErrTooManySessions, m.maxSessions)
	}
	m.sessions[e.id] = e
	m.mu.Unlock()

	ctx = correlation.WithSessionID(ctx, e.id)
	metrics.ObserveParticipants(len(req.Participants))
	m.logger.InfoContext(ctx, "Session created",
		logging.Int("threshold", req.Threshold),
		logging.Strings("participants", s.Participants()),
		logging.Bool("enforce_threshold", opts.EnforceThreshold))
	m.updateGauges()
	m.recordEvent(ctx, &audit.Event{
		Type:   audit.EventSessionCreated,
		Detail: fmt.Sprintf("threshold %d of %d", req.Threshold, len(req.Participants)),
		Metadata: map[string]string{
			"convention":        string(opts.Convention),
			"enforce_threshold": fmt.Sprint(opts.EnforceThreshold),
		},
	})

	return e.info(), nil
}

func parsePolynomials(raw [][]string) ([]polynomial.Polynomial, error) {
	polys := make([]polynomial.Polynomial, len(raw))
	for i, coeffs := range raw {
		for _, c := range coeffs {
			if err := validation.ValidateCoefficient(c); err != nil {
				return nil, fmt.Errorf("%w: participant %d: %v", dkg.ErrInvalidPolynomial, i+1, err)
			}
		}
		p, err := polynomial.Parse(coeffs...)
		if err != nil {
			return nil, fmt.Errorf("%w: participant %d: %v", dkg.ErrInvalidPolynomial, i+1, err)
		}
		polys[i] = p
	}
	return polys, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(ctx context.Context, id string) (info *Info, err error) {
	start := time.Now()
	defer func() { m.record(ctx, metrics.OpGet, start, err) }()

	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info(), nil
}

// List returns summaries of all sessions, oldest first.
func (m *Manager) List(ctx context.Context) []Summary {
	start := time.Now()
	defer m.record(ctx, metrics.OpList, start, nil)

	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, Summary{
			ID:           e.id,
			CreatedAt:    e.createdAt,
			State:        e.session.State().String(),
			Threshold:    e.session.Threshold(),
			Participants: len(e.session.Participants()),
			Active:       len(e.session.Active()),
		})
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Submit feeds one removal-loop input to the session: a participant name
// removes that participant, while "done" or a blank input finalizes.
func (m *Manager) Submit(ctx context.Context, id, input string) (*dkg.Outcome, error) {
	if dkg.IsFinish(input) {
		final, err := m.Finalize(ctx, id)
		if err != nil {
			return nil, err
		}
		return &dkg.Outcome{Final: final}, nil
	}
	step, err := m.Remove(ctx, id, input)
	if err != nil {
		return nil, err
	}
	return &dkg.Outcome{Step: step}, nil
}

// Remove drops a participant and returns the recomputed reconstruction.
func (m *Manager) Remove(ctx context.Context, id, name string) (step *dkg.StepReport, err error) {
	start := time.Now()
	ctx = correlation.WithSessionID(ctx, id)
	defer func() { m.record(ctx, metrics.OpRemove, start, err) }()

	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	step, err = e.session.Remove(name)
	if err == nil {
		e.updatedAt = m.now()
	}
	e.mu.Unlock()
	if err != nil {
		name = validation.SanitizeForLog(name)
		m.logger.WarnContext(ctx, "Removal rejected", logging.String("participant", name), logging.Error(err))
		m.recordEvent(ctx, &audit.Event{
			Type:        audit.EventRemovalRejected,
			Outcome:     audit.OutcomeFailure,
			Participant: name,
			Detail:      err.Error(),
		})
		return nil, err
	}

	metrics.RecordRemoval()
	m.logger.InfoContext(ctx, "Participant removed",
		logging.String("participant", step.Removed),
		logging.Int("active", len(step.Active)),
		logging.Bool("below_threshold", step.BelowThreshold))
	m.logger.DebugContext(ctx, "Sum polynomial reconstructed",
		logging.String("reconstruction", step.Polynomial.String()))
	m.updateGauges()
	m.recordEvent(ctx, &audit.Event{
		Type:        audit.EventParticipantRemoved,
		Participant: step.Removed,
		Detail:      fmt.Sprintf("reconstructed from %d points", len(step.Points)),
		Metadata:    reconstructionMetadata(&step.Reconstruction),
	})
	return step, nil
}

// Finalize ends the removal loop and returns the final report.
func (m *Manager) Finalize(ctx context.Context, id string) (final *dkg.FinalReport, err error) {
	start := time.Now()
	ctx = correlation.WithSessionID(ctx, id)
	defer func() { m.record(ctx, metrics.OpFinalize, start, err) }()

	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	final, err = e.session.Finalize()
	if err == nil {
		e.updatedAt = m.now()
	}
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Session finalized",
		logging.Strings("active", final.Active),
		logging.Bool("recomputed", final.Recomputed))
	m.logger.DebugContext(ctx, "Final sum polynomial",
		logging.String("reconstruction", final.Polynomial.String()))
	m.updateGauges()
	m.recordEvent(ctx, &audit.Event{
		Type:     audit.EventSessionFinalized,
		Detail:   fmt.Sprintf("finalized with %d active participants", len(final.Active)),
		Metadata: reconstructionMetadata(&final.Reconstruction),
	})
	return final, nil
}

// Escrow splits the finalized joint secret among the surviving
// participants. Repeated calls return the same escrow.
func (m *Manager) Escrow(ctx context.Context, id string) (escrow *shamir.Escrow, err error) {
	start := time.Now()
	ctx = correlation.WithSessionID(ctx, id)
	defer func() { m.record(ctx, metrics.OpEscrow, start, err) }()

	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.escrow != nil {
		return e.escrow, nil
	}
	final, ok := e.session.FinalReport()
	if !ok {
		return nil, fmt.Errorf("%w: state %s", ErrNotFinalized, e.session.State())
	}
	escrow, err = shamir.EscrowSecret(final.Secret, final.Active, e.session.Threshold())
	if err != nil {
		return nil, err
	}
	e.escrow = escrow
	e.updatedAt = m.now()

	m.logger.InfoContext(ctx, "Secret escrowed",
		logging.Int("escrow_threshold", escrow.Threshold),
		logging.Int("shares", len(escrow.Shares)))
	m.recordEvent(ctx, &audit.Event{
		Type:   audit.EventSecretEscrowed,
		Detail: fmt.Sprintf("%d of %d shares", escrow.Threshold, len(escrow.Shares)),
	})
	return escrow, nil
}

// Delete forgets a session.
func (m *Manager) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	ctx = correlation.WithSessionID(ctx, id)
	defer func() { m.record(ctx, metrics.OpDelete, start, err) }()

	if err := checkID(id); err != nil {
		return err
	}

	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	m.logger.InfoContext(ctx, "Session deleted")
	m.updateGauges()
	m.recordEvent(ctx, &audit.Event{Type: audit.EventSessionDeleted})
	return nil
}

// Events returns the audit trail of a session, oldest first. The trail
// outlives the session itself until the audit log evicts it.
func (m *Manager) Events(ctx context.Context, id string) ([]*audit.Event, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	events, err := m.audit.GetEvents(ctx, &audit.EventQuery{SessionID: id})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		if _, err := m.lookup(id); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// Len returns the number of held sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id string) (*entry, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

func checkID(id string) error {
	if err := validation.ValidateSessionID(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// reconstructionMetadata describes a reconstruction for the audit log
// without its coefficients.
func reconstructionMetadata(r *dkg.Reconstruction) map[string]string {
	return map[string]string{
		"points": strconv.Itoa(len(r.Points)),
		"degree": strconv.Itoa(r.Polynomial.Degree()),
	}
}

// recordEvent stamps the event with the IDs carried by ctx and writes it
// to the audit log. Audit failures are logged, never returned.
func (m *Manager) recordEvent(ctx context.Context, event *audit.Event) {
	event.SessionID = correlation.GetSessionID(ctx)
	event.CorrelationID = correlation.GetCorrelationID(ctx)
	event.Timestamp = m.now()
	if err := m.audit.LogEvent(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "Failed to write audit event",
			logging.String("type", string(event.Type)), logging.Error(err))
	}
}

func (m *Manager) record(ctx context.Context, op string, start time.Time, err error) {
	metrics.RecordOperation(op, metrics.Status(err), time.Since(start).Seconds())
	if err != nil {
		metrics.RecordError(op, ErrorType(err))
		m.logger.DebugContext(ctx, "Operation failed", logging.String("operation", op), logging.Error(err))
	}
}

// updateGauges recounts sessions per state.
func (m *Manager) updateGauges() {
	counts := map[dkg.State]int{
		dkg.StateSetup:             0,
		dkg.StateSharesDistributed: 0,
		dkg.StateActive:            0,
		dkg.StateFinalized:         0,
	}

	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		counts[e.session.State()]++
		e.mu.Unlock()
	}
	for state, n := range counts {
		metrics.SetSessions(state.String(), n)
	}
}

func (e *entry) info() *Info {
	return &Info{
		ID:        e.id,
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
		Session:   e.session.Snapshot(),
		Escrow:    e.escrow,
	}
}

// ErrorType classifies an error for the errors_total metric.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrTooManySessions):
		return "too_many_sessions"
	case errors.Is(err, ErrNotFinalized):
		return "not_finalized"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, dkg.ErrInvalidThreshold):
		return "invalid_threshold"
	case errors.Is(err, dkg.ErrEmptyName),
		errors.Is(err, dkg.ErrDuplicateName),
		errors.Is(err, dkg.ErrReservedName):
		return "invalid_name"
	case errors.Is(err, dkg.ErrUnknownParticipant):
		return "unknown_participant"
	case errors.Is(err, dkg.ErrBelowThreshold):
		return "below_threshold"
	case errors.Is(err, dkg.ErrNoActiveParticipants):
		return "no_active_participants"
	case errors.Is(err, dkg.ErrSessionFinalized):
		return "session_finalized"
	case errors.Is(err, dkg.ErrInvalidPolynomial):
		return "invalid_polynomial"
	case errors.Is(err, dkg.ErrInvalidConvention):
		return "invalid_convention"
	case errors.Is(err, shamir.ErrTooFewHolders):
		return "too_few_holders"
	default:
		return "internal"
	}
}
