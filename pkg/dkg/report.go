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

package dkg

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-dkg/pkg/polynomial"
	"github.com/jeremyhahn/go-dkg/pkg/sharing"
)

// SumPoint is a point on the sum polynomial held by one active participant.
type SumPoint struct {
	Holder string
	X      int
	Y      *big.Rat
}

// Point converts the sum point to an interpolation point.
func (p SumPoint) Point() polynomial.Point {
	return polynomial.NewPoint(int64(p.X), p.Y)
}

func (p SumPoint) clone() SumPoint {
	out := p
	if p.Y != nil {
		out.Y = new(big.Rat).Set(p.Y)
	}
	return out
}

func cloneSumPoints(points []SumPoint) []SumPoint {
	if points == nil {
		return nil
	}
	out := make([]SumPoint, len(points))
	for i, p := range points {
		out[i] = p.clone()
	}
	return out
}

// String returns "(x, y)"
func (p SumPoint) String() string {
	return fmt.Sprintf("(%d, %s)", p.X, p.Y.RatString())
}

// MarshalJSON implements json.Marshaler for SumPoint
func (p SumPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Holder string `json:"holder"`
		X      int    `json:"x"`
		Y      string `json:"y"`
	}{p.Holder, p.X, p.Y.RatString()})
}

// UnmarshalJSON implements json.Unmarshaler for SumPoint
func (p *SumPoint) UnmarshalJSON(data []byte) error {
	var aux struct {
		Holder string `json:"holder"`
		X      int    `json:"x"`
		Y      string `json:"y"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	y, err := parseRat("y", aux.Y)
	if err != nil {
		return err
	}
	*p = SumPoint{Holder: aux.Holder, X: aux.X, Y: y}
	return nil
}

// Reconstruction is an interpolated sum polynomial with its designated
// secret.
type Reconstruction struct {
	Points             []SumPoint
	Polynomial         polynomial.Polynomial
	Secret             *big.Rat
	ConstantTerm       *big.Rat
	LeadingCoefficient *big.Rat
}

type reconstructionJSON struct {
	Points             []SumPoint            `json:"points"`
	Polynomial         polynomial.Polynomial `json:"polynomial"`
	Expression         string                `json:"expression"`
	Secret             string                `json:"secret"`
	ConstantTerm       string                `json:"constant_term"`
	LeadingCoefficient string                `json:"leading_coefficient"`
}

// MarshalJSON implements json.Marshaler for Reconstruction
func (r Reconstruction) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toJSON())
}

func (r Reconstruction) toJSON() reconstructionJSON {
	return reconstructionJSON{
		Points:             r.Points,
		Polynomial:         r.Polynomial,
		Expression:         r.Polynomial.String(),
		Secret:             r.Secret.RatString(),
		ConstantTerm:       r.ConstantTerm.RatString(),
		LeadingCoefficient: r.LeadingCoefficient.RatString(),
	}
}

func (j reconstructionJSON) reconstruction() (Reconstruction, error) {
	r := Reconstruction{Points: j.Points, Polynomial: j.Polynomial}
	var err error
	if r.Secret, err = parseRat("secret", j.Secret); err != nil {
		return r, err
	}
	if r.ConstantTerm, err = parseRat("constant_term", j.ConstantTerm); err != nil {
		return r, err
	}
	if r.LeadingCoefficient, err = parseRat("leading_coefficient", j.LeadingCoefficient); err != nil {
		return r, err
	}
	return r, nil
}

func parseRat(field, s string) (*big.Rat, error) {
	v, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}

// StepReport is the result of one successful removal.
type StepReport struct {
	Reconstruction

	// Removed is the registered name of the removed participant
	Removed string

	// Active lists the remaining participants in setup order
	Active []string

	// BelowThreshold is set when fewer than t participants remain, which
	// only happens with threshold enforcement disabled. Reconstruction from
	// fewer than t points is not guaranteed to match the true sum.
	BelowThreshold bool
}

// MarshalJSON implements json.Marshaler for StepReport
func (r StepReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		reconstructionJSON
		Removed        string   `json:"removed"`
		Active         []string `json:"active"`
		BelowThreshold bool     `json:"below_threshold"`
	}{r.Reconstruction.toJSON(), r.Removed, r.Active, r.BelowThreshold})
}

// UnmarshalJSON implements json.Unmarshaler for StepReport
func (r *StepReport) UnmarshalJSON(data []byte) error {
	var aux struct {
		reconstructionJSON
		Removed        string   `json:"removed"`
		Active         []string `json:"active"`
		BelowThreshold bool     `json:"below_threshold"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	rec, err := aux.reconstruction()
	if err != nil {
		return err
	}
	*r = StepReport{Reconstruction: rec, Removed: aux.Removed, Active: aux.Active, BelowThreshold: aux.BelowThreshold}
	return nil
}

// FinalReport is the result of finalizing a session.
type FinalReport struct {
	Reconstruction

	Active  []string
	Removed []string

	// Recomputed is set when no removal happened and the sum polynomial was
	// reconstructed over the full participant set at finalization.
	Recomputed bool
}

func (r Reconstruction) clone() Reconstruction {
	out := r
	out.Points = cloneSumPoints(r.Points)
	out.Secret = cloneRat(r.Secret)
	out.ConstantTerm = cloneRat(r.ConstantTerm)
	out.LeadingCoefficient = cloneRat(r.LeadingCoefficient)
	return out
}

func (r *FinalReport) clone() *FinalReport {
	if r == nil {
		return nil
	}
	out := *r
	out.Reconstruction = r.Reconstruction.clone()
	out.Active = append([]string(nil), r.Active...)
	out.Removed = append([]string(nil), r.Removed...)
	return &out
}

func cloneRat(r *big.Rat) *big.Rat {
	if r == nil {
		return nil
	}
	return new(big.Rat).Set(r)
}

// MarshalJSON implements json.Marshaler for FinalReport
func (r FinalReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		reconstructionJSON
		Active     []string `json:"active"`
		Removed    []string `json:"removed"`
		Recomputed bool     `json:"recomputed"`
	}{r.Reconstruction.toJSON(), r.Active, r.Removed, r.Recomputed})
}

// UnmarshalJSON implements json.Unmarshaler for FinalReport
func (r *FinalReport) UnmarshalJSON(data []byte) error {
	var aux struct {
		reconstructionJSON
		Active     []string `json:"active"`
		Removed    []string `json:"removed"`
		Recomputed bool     `json:"recomputed"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	rec, err := aux.reconstruction()
	if err != nil {
		return err
	}
	*r = FinalReport{Reconstruction: rec, Active: aux.Active, Removed: aux.Removed, Recomputed: aux.Recomputed}
	return nil
}

// Outcome is the result of Submit: exactly one field is set.
type Outcome struct {
	Step  *StepReport  `json:"step,omitempty"`
	Final *FinalReport `json:"final,omitempty"`
}

// Threshold returns t.
func (s *Session) Threshold() int {
	return s.threshold
}

// Options returns the session options.
func (s *Session) Options() Options {
	return s.opts
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Participants returns all participant names in setup order.
func (s *Session) Participants() []string {
	return names(s.participants)
}

// Active returns the active participant names in setup order.
func (s *Session) Active() []string {
	return names(s.active)
}

// Removed returns removed participant names in removal order.
func (s *Session) Removed() []string {
	return append([]string(nil), s.removed...)
}

// Polynomial returns the named participant's polynomial, matching the name
// case-insensitively. Removed participants are included.
func (s *Session) Polynomial(name string) (polynomial.Polynomial, bool) {
	p := s.lookup(name)
	if p == nil || s.state == StateSetup {
		return polynomial.Polynomial{}, false
	}
	return p.Polynomial, true
}

// Shares returns the named participant's shares.
func (s *Session) Shares(name string) ([]sharing.Share, bool) {
	p := s.lookup(name)
	if p == nil || s.state == StateSetup {
		return nil, false
	}
	return sharing.CloneShares(p.Shares), true
}

// LastReconstruction returns the most recent reconstruction, if any.
func (s *Session) LastReconstruction() (*Reconstruction, bool) {
	if s.last == nil {
		return nil, false
	}
	r := s.reconstruction(s.last, s.opts.Convention == ConventionReference, false)
	return &r, true
}

// FinalReport returns the report produced by Finalize, if finalized.
func (s *Session) FinalReport() (*FinalReport, bool) {
	return s.final.clone(), s.final != nil
}

// ParticipantView is a read-only snapshot of one participant.
type ParticipantView struct {
	Name       string                `json:"name"`
	Active     bool                  `json:"active"`
	Polynomial polynomial.Polynomial `json:"polynomial"`
	Expression string                `json:"expression"`
	Shares     []sharing.Share       `json:"shares"`
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	Threshold    int               `json:"threshold"`
	Total        int               `json:"total"`
	State        string            `json:"state"`
	Convention   SecretConvention  `json:"convention"`
	Enforced     bool              `json:"enforce_threshold"`
	Participants []ParticipantView `json:"participants"`
	Removed      []string          `json:"removed"`
	Final        *FinalReport      `json:"final,omitempty"`
}

// Snapshot returns a copy of the session's observable state.
func (s *Session) Snapshot() *Snapshot {
	active := make(map[*Participant]bool, len(s.active))
	for _, p := range s.active {
		active[p] = true
	}
	views := make([]ParticipantView, len(s.participants))
	for i, p := range s.participants {
		views[i] = ParticipantView{
			Name:       p.Name,
			Active:     active[p] || s.state == StateSetup,
			Polynomial: p.Polynomial,
			Expression: p.Polynomial.String(),
			Shares:     sharing.CloneShares(p.Shares),
		}
	}
	return &Snapshot{
		Threshold:    s.threshold,
		Total:        len(s.participants),
		State:        s.state.String(),
		Convention:   s.opts.Convention,
		Enforced:     s.opts.EnforceThreshold,
		Participants: views,
		Removed:      s.Removed(),
		Final:        s.final.clone(),
	}
}

func (s *Session) lookup(name string) *Participant {
	key := nameKey(name)
	for _, p := range s.participants {
		if nameKey(p.Name) == key {
			return p
		}
	}
	return nil
}

// reconstruction builds the exported view. Under the reference convention
// intermediate steps report the leading coefficient and the final report
// the lowest non-zero coefficient.
func (s *Session) reconstruction(rec *reconstruction, reference, final bool) Reconstruction {
	out := Reconstruction{
		Points:             cloneSumPoints(rec.points),
		Polynomial:         rec.poly,
		ConstantTerm:       rec.poly.ConstantTerm(),
		LeadingCoefficient: rec.poly.LeadingCoefficient(),
	}
	switch {
	case !reference:
		out.Secret = rec.poly.ConstantTerm()
	case final:
		out.Secret = rec.poly.LowestNonZero()
	default:
		out.Secret = rec.poly.LeadingCoefficient()
	}
	return out
}

func (s *Session) stepReport(removed string, rec *reconstruction) *StepReport {
	return &StepReport{
		Reconstruction: s.reconstruction(rec, s.opts.Convention == ConventionReference, false),
		Removed:        removed,
		Active:         s.Active(),
		BelowThreshold: len(s.active) < s.threshold,
	}
}

func (s *Session) finalReport(rec *reconstruction, recomputed bool) *FinalReport {
	return &FinalReport{
		Reconstruction: s.reconstruction(rec, s.opts.Convention == ConventionReference, true),
		Active:         s.Active(),
		Removed:        s.Removed(),
		Recomputed:     recomputed,
	}
}

func names(ps []*Participant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}
