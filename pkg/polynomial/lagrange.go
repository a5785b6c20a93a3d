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

package polynomial

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrDuplicateXCoordinate is returned when two interpolation points share
	// an x value.
	ErrDuplicateXCoordinate = errors.New("polynomial: duplicate x coordinate")

	// ErrNoPoints is returned when interpolation is requested over no points.
	ErrNoPoints = errors.New("polynomial: no points to interpolate")
)

// Point is an (x, y) sample of a polynomial.
type Point struct {
	X *big.Rat `json:"x"`
	Y *big.Rat `json:"y"`
}

// NewPoint returns a point with integer x and the given y.
func NewPoint(x int64, y *big.Rat) Point {
	return Point{X: new(big.Rat).SetInt64(x), Y: new(big.Rat).Set(y)}
}

// String returns "(x, y)".
func (pt Point) String() string {
	return fmt.Sprintf("(%s, %s)", pt.X.RatString(), pt.Y.RatString())
}

// Interpolate returns the unique polynomial of degree at most len(points)-1
// that passes through every point. For each point j it builds the basis term
//
//	y_j * prod_{m != j} (x - x_m) / (x_j - x_m)
//
// and sums the terms. The result is normalized.
func Interpolate(points []Point) (Polynomial, error) {
	if len(points) == 0 {
		return Polynomial{}, ErrNoPoints
	}
	if err := checkDistinct(points); err != nil {
		return Polynomial{}, err
	}

	sum := Zero()
	for j, pj := range points {
		term := New(pj.Y)
		for m, pm := range points {
			if m == j {
				continue
			}
			// (x - x_m)
			factor := New(new(big.Rat).Neg(pm.X), big.NewRat(1, 1))
			var err error
			factor, err = factor.ScalarDiv(new(big.Rat).Sub(pj.X, pm.X))
			if err != nil {
				return Polynomial{}, fmt.Errorf("%w: x=%s", ErrDuplicateXCoordinate, pj.X.RatString())
			}
			term = term.Mul(factor)
		}
		sum = sum.Add(term)
	}
	return sum.Normalize(), nil
}

// InterpolateAt evaluates the interpolating polynomial of points at x
// without building it, using the Lagrange basis values directly.
func InterpolateAt(points []Point, x *big.Rat) (*big.Rat, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	if err := checkDistinct(points); err != nil {
		return nil, err
	}

	result := new(big.Rat)
	for j, pj := range points {
		num := big.NewRat(1, 1)
		den := big.NewRat(1, 1)
		for m, pm := range points {
			if m == j {
				continue
			}
			num.Mul(num, new(big.Rat).Sub(x, pm.X))
			den.Mul(den, new(big.Rat).Sub(pj.X, pm.X))
		}
		basis := new(big.Rat).Quo(num, den)
		result.Add(result, basis.Mul(basis, pj.Y))
	}
	return result, nil
}

func checkDistinct(points []Point) error {
	seen := make(map[string]struct{}, len(points))
	for i, pt := range points {
		if pt.X == nil || pt.Y == nil {
			return fmt.Errorf("polynomial: point %d has a nil coordinate", i)
		}
		key := pt.X.RatString()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: x=%s", ErrDuplicateXCoordinate, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
