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

// Package dkg implements a simplified joint key-generation session over
// polynomial secret sharing.
//
// Every participant owns a random polynomial of degree t-1 and evaluates it
// at x = 1..n. Participants can then be removed one at a time. After each
// removal the remaining participants sum their shares into points on the sum
// polynomial, and Lagrange interpolation recovers that sum polynomial. Its
// constant term is the joint secret, which no single participant knows.
//
// The arithmetic is exact rational arithmetic with no modular reduction.
// This is a teaching model of distributed key generation, not a secure one.
//
// A Session is not safe for concurrent use.
//
// Example:
//
//	s, _ := dkg.New(2, []string{"Alice", "Bob", "Carol"}, nil)
//	_ = s.Distribute(gen)
//	step, _ := s.Remove("bob")
//	final, _ := s.Finalize()
package dkg

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/jeremyhahn/go-dkg/pkg/polynomial"
	"github.com/jeremyhahn/go-dkg/pkg/sharing"
)

// FinishToken ends the removal loop when submitted, ignoring case.
const FinishToken = "done"

// State is a session lifecycle state.
type State int

const (
	StateSetup State = iota
	StateSharesDistributed
	StateActive
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateSharesDistributed:
		return "shares_distributed"
	case StateActive:
		return "active"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SecretConvention selects which coefficient of the reconstructed sum
// polynomial is reported as the secret.
type SecretConvention string

const (
	// ConventionConstantTerm reports the value at x = 0 at every step.
	ConventionConstantTerm SecretConvention = "constant"

	// ConventionReference reports the leading coefficient for intermediate
	// steps and the lowest non-zero coefficient for the final report.
	ConventionReference SecretConvention = "reference"
)

// ParseConvention maps a configuration string to a SecretConvention. The
// empty string selects ConventionConstantTerm.
func ParseConvention(s string) (SecretConvention, error) {
	switch c := SecretConvention(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return ConventionConstantTerm, nil
	case ConventionConstantTerm, ConventionReference:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidConvention, s)
	}
}

// Options tune session behaviour.
type Options struct {
	// EnforceThreshold rejects removals that would leave fewer than t
	// active participants.
	EnforceThreshold bool

	// Convention selects the reported secret coefficient.
	Convention SecretConvention
}

// DefaultOptions enforces the threshold and reports constant terms.
func DefaultOptions() *Options {
	return &Options{
		EnforceThreshold: true,
		Convention:       ConventionConstantTerm,
	}
}

// Participant is a named shareholder and its polynomial.
type Participant struct {
	Name       string
	Polynomial polynomial.Polynomial
	Shares     []sharing.Share
}

// Session holds the participants, their share matrix, and the evolving
// active set.
type Session struct {
	threshold    int
	opts         Options
	state        State
	participants []*Participant
	active       []*Participant
	removed      []string
	last         *reconstruction
	final        *FinalReport
}

type reconstruction struct {
	points []SumPoint
	poly   polynomial.Polynomial
}

// New validates the threshold and participant names and returns a session
// in StateSetup. Names are trimmed; identity is case-insensitive. On error
// no session is returned.
func New(threshold int, names []string, opts *Options) (*Session, error) {
	n := len(names)
	if threshold < 1 || threshold > n {
		return nil, fmt.Errorf("%w: t=%d must be in [1, %d]", ErrInvalidThreshold, threshold, n)
	}

	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	convention, err := ParseConvention(string(o.Convention))
	if err != nil {
		return nil, err
	}
	o.Convention = convention

	seen := make(map[string]int, n)
	participants := make([]*Participant, n)
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("%w: participant %d", ErrEmptyName, i+1)
		}
		if strings.EqualFold(name, FinishToken) {
			return nil, fmt.Errorf("%w: %q", ErrReservedName, name)
		}
		key := nameKey(name)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %q (participant %d) matches participant %d",
				ErrDuplicateName, name, i+1, prev+1)
		}
		seen[key] = i
		participants[i] = &Participant{Name: name}
	}

	return &Session{
		threshold:    threshold,
		opts:         o,
		state:        StateSetup,
		participants: participants,
	}, nil
}

// Distribute draws one polynomial of degree t-1 per participant and
// evaluates n shares from each.
func (s *Session) Distribute(gen *sharing.Generator) error {
	if gen == nil {
		return fmt.Errorf("generator cannot be nil")
	}
	if s.state != StateSetup {
		return ErrAlreadyDistributed
	}

	polys := make([]polynomial.Polynomial, len(s.participants))
	for i, p := range s.participants {
		poly, err := gen.NewPolynomial(s.threshold - 1)
		if err != nil {
			return fmt.Errorf("failed to generate polynomial for %s: %w", p.Name, err)
		}
		polys[i] = poly
	}
	return s.DistributeWith(polys)
}

// DistributeWith installs the given polynomials, one per participant in
// setup order, and evaluates n shares from each. Every polynomial must have
// exactly t coefficients.
func (s *Session) DistributeWith(polys []polynomial.Polynomial) error {
	if s.state != StateSetup {
		return ErrAlreadyDistributed
	}
	if len(polys) != len(s.participants) {
		return fmt.Errorf("%w: got %d polynomials for %d participants",
			ErrInvalidPolynomial, len(polys), len(s.participants))
	}
	for i, poly := range polys {
		if poly.Len() != s.threshold {
			return fmt.Errorf("%w: %s has %d coefficients, want %d",
				ErrInvalidPolynomial, s.participants[i].Name, poly.Len(), s.threshold)
		}
	}

	n := len(s.participants)
	rows := make([][]sharing.Share, n)
	for i, poly := range polys {
		shares, err := sharing.GenerateShares(poly, n)
		if err != nil {
			return fmt.Errorf("failed to generate shares for %s: %w", s.participants[i].Name, err)
		}
		// any t shares must recover the participant's secret
		if err := crossCheck(sharing.Points(shares[:s.threshold]), poly); err != nil {
			return fmt.Errorf("shares for %s: %w", s.participants[i].Name, err)
		}
		rows[i] = shares
	}

	for i, p := range s.participants {
		p.Polynomial = polys[i]
		p.Shares = rows[i]
	}
	s.active = append([]*Participant(nil), s.participants...)
	s.state = StateSharesDistributed
	return nil
}

// Remove drops the named active participant, recomputes the sum points over
// the remaining participants, and interpolates the sum polynomial.
//
// Points are assigned positionally: the i-th remaining participant, in
// setup order, holds x = i and the sum of every active participant's i-th
// share. Failed removals leave the session unchanged.
func (s *Session) Remove(name string) (*StepReport, error) {
	if err := s.checkRunning(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	idx := s.activeIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParticipant, name)
	}
	remaining := len(s.active) - 1
	if remaining == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoActiveParticipants, s.active[idx].Name)
	}
	if s.opts.EnforceThreshold && remaining < s.threshold {
		return nil, fmt.Errorf("%w: removing %q leaves %d of %d required",
			ErrBelowThreshold, s.active[idx].Name, remaining, s.threshold)
	}

	next := make([]*Participant, 0, remaining)
	next = append(next, s.active[:idx]...)
	next = append(next, s.active[idx+1:]...)

	rec, err := reconstruct(next)
	if err != nil {
		return nil, err
	}

	removed := s.active[idx].Name
	s.active = next
	s.removed = append(s.removed, removed)
	s.last = rec
	s.state = StateActive

	return s.stepReport(removed, rec), nil
}

// Finalize ends the session. If no participant was removed the sum
// polynomial is reconstructed once over the full participant set; otherwise
// the last reconstruction is reused.
func (s *Session) Finalize() (*FinalReport, error) {
	if err := s.checkRunning(); err != nil {
		return nil, err
	}

	rec := s.last
	recomputed := false
	if rec == nil {
		var err error
		rec, err = reconstruct(s.active)
		if err != nil {
			return nil, err
		}
		s.last = rec
		recomputed = true
	}

	report := s.finalReport(rec, recomputed)
	s.final = report
	s.state = StateFinalized
	return report.clone(), nil
}

// Submit is the driver entry point for one line of input. The finish token
// or a blank line finalizes the session; anything else removes the named
// participant.
func (s *Session) Submit(input string) (*Outcome, error) {
	if IsFinish(input) {
		final, err := s.Finalize()
		if err != nil {
			return nil, err
		}
		return &Outcome{Final: final}, nil
	}
	step, err := s.Remove(input)
	if err != nil {
		return nil, err
	}
	return &Outcome{Step: step}, nil
}

// IsFinish reports whether input ends the removal loop.
func IsFinish(input string) bool {
	input = strings.TrimSpace(input)
	return input == "" || strings.EqualFold(input, FinishToken)
}

// SumPoints computes the current sum points over the active set without
// changing the session.
func (s *Session) SumPoints() ([]SumPoint, error) {
	if s.state == StateSetup {
		return nil, ErrNotDistributed
	}
	return sumPoints(s.active), nil
}

func (s *Session) checkRunning() error {
	switch s.state {
	case StateSetup:
		return ErrNotDistributed
	case StateFinalized:
		return ErrSessionFinalized
	}
	return nil
}

func (s *Session) activeIndex(name string) int {
	if name == "" {
		return -1
	}
	key := nameKey(name)
	for i, p := range s.active {
		if nameKey(p.Name) == key {
			return i
		}
	}
	return -1
}

// sumPoints assigns x = i+1 to the i-th active participant and sums every
// active participant's share at offset i.
func sumPoints(active []*Participant) []SumPoint {
	points := make([]SumPoint, len(active))
	for i, holder := range active {
		pt := SumPoint{Holder: holder.Name, X: i + 1}
		y := new(big.Rat)
		for _, p := range active {
			y.Add(y, p.Shares[i].Y)
		}
		pt.Y = y
		points[i] = pt
	}
	return points
}

func reconstruct(active []*Participant) (*reconstruction, error) {
	points := sumPoints(active)
	interp := make([]polynomial.Point, len(points))
	for i, pt := range points {
		interp[i] = pt.Point()
	}
	poly, err := polynomial.Interpolate(interp)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct sum polynomial: %w", err)
	}
	if err := crossCheck(interp, poly); err != nil {
		return nil, fmt.Errorf("sum polynomial: %w", err)
	}
	return &reconstruction{points: points, poly: poly}, nil
}

// crossCheck evaluates the interpolant of points at zero directly and
// compares it with the constant term of poly.
func crossCheck(points []polynomial.Point, poly polynomial.Polynomial) error {
	secret, err := polynomial.InterpolateAt(points, new(big.Rat))
	if err != nil {
		return err
	}
	if secret.Cmp(poly.ConstantTerm()) != 0 {
		return fmt.Errorf("%w: f(0) = %s, constant term %s",
			ErrReconstructionMismatch, secret.RatString(), poly.ConstantTerm().RatString())
	}
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
