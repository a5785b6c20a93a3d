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

package sharing

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-dkg/pkg/polynomial"
)

// Share is one evaluation (X, f(X)) of a participant's polynomial, destined
// for the participant at index X.
type Share struct {
	// X is the recipient index, starting at 1
	X int

	// Y is the polynomial value at X
	Y *big.Rat
}

// Clone returns a copy of the share that shares no memory with s.
func (s Share) Clone() Share {
	out := Share{X: s.X}
	if s.Y != nil {
		out.Y = new(big.Rat).Set(s.Y)
	}
	return out
}

// CloneShares deep-copies a share row.
func CloneShares(shares []Share) []Share {
	if shares == nil {
		return nil
	}
	out := make([]Share, len(shares))
	for i, s := range shares {
		out[i] = s.Clone()
	}
	return out
}

// Point converts the share to an interpolation point.
func (s Share) Point() polynomial.Point {
	return polynomial.NewPoint(int64(s.X), s.Y)
}

// String returns "(x, y)"
func (s Share) String() string {
	return fmt.Sprintf("(%d, %s)", s.X, s.Y.RatString())
}

// Validate checks that the share has a positive index and a value.
func (s Share) Validate() error {
	if s.X < 1 {
		return fmt.Errorf("invalid share index: %d (must be >= 1)", s.X)
	}
	if s.Y == nil {
		return fmt.Errorf("share %d has no value", s.X)
	}
	return nil
}

// Points converts shares to interpolation points.
func Points(shares []Share) []polynomial.Point {
	points := make([]polynomial.Point, len(shares))
	for i, s := range shares {
		points[i] = s.Point()
	}
	return points
}

type shareJSON struct {
	X int    `json:"x"`
	Y string `json:"y"`
}

// MarshalJSON encodes the value as a rational string so large and
// fractional values survive JSON round trips.
func (s Share) MarshalJSON() ([]byte, error) {
	y := "0"
	if s.Y != nil {
		y = s.Y.RatString()
	}
	return json.Marshal(shareJSON{X: s.X, Y: y})
}

// UnmarshalJSON implements json.Unmarshaler for Share
func (s *Share) UnmarshalJSON(data []byte) error {
	var aux shareJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	y, ok := new(big.Rat).SetString(aux.Y)
	if !ok {
		return fmt.Errorf("invalid share value %q", aux.Y)
	}
	s.X = aux.X
	s.Y = y
	return nil
}
