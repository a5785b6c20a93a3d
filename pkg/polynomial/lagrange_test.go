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
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(p Polynomial, xs ...int64) []Point {
	points := make([]Point, len(xs))
	for i, x := range xs {
		points[i] = NewPoint(x, p.EvaluateInt(x))
	}
	return points
}

func TestInterpolate_Line(t *testing.T) {
	points := []Point{
		NewPoint(1, big.NewRat(23, 1)),
		NewPoint(2, big.NewRat(39, 1)),
	}

	got, err := Interpolate(points)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "16"}, got.Strings())
}

func TestInterpolate_ReconstructsRandomPolynomials(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for degree := 0; degree <= 6; degree++ {
		coeffs := make([]int64, degree+1)
		for i := range coeffs {
			coeffs[i] = rng.Int64N(1000) + 1
		}
		p := FromInt64s(coeffs...)

		// degree+1 distinct, non-contiguous samples
		xs := make([]int64, degree+1)
		for i := range xs {
			xs[i] = int64(3*i - 4)
		}

		got, err := Interpolate(samples(p, xs...))
		require.NoError(t, err)
		assert.True(t, p.Equal(got), "degree %d: want %s got %s", degree, p, got)
		assert.True(t, got.IsInteger())
	}
}

func TestInterpolate_ExtraPointsStillExact(t *testing.T) {
	p := FromInt64s(5, -2, 9)

	got, err := Interpolate(samples(p, 1, 2, 3, 4, 5, 6))
	require.NoError(t, err)
	assert.True(t, p.Equal(got))
	assert.Equal(t, 2, got.Degree())
}

func TestInterpolate_TooFewPointsDiverges(t *testing.T) {
	p := FromInt64s(5, -2, 9)

	got, err := Interpolate(samples(p, 1, 2))
	require.NoError(t, err)
	assert.False(t, p.Equal(got))
	assert.LessOrEqual(t, got.Degree(), 1)
}

func TestInterpolate_RationalResult(t *testing.T) {
	points := []Point{
		NewPoint(0, big.NewRat(0, 1)),
		NewPoint(2, big.NewRat(1, 1)),
	}

	got, err := Interpolate(points)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1/2"}, got.Strings())
}

func TestInterpolate_DuplicateX(t *testing.T) {
	points := []Point{
		NewPoint(1, big.NewRat(3, 1)),
		NewPoint(1, big.NewRat(4, 1)),
	}

	_, err := Interpolate(points)
	assert.ErrorIs(t, err, ErrDuplicateXCoordinate)

	_, err = InterpolateAt(points, new(big.Rat))
	assert.ErrorIs(t, err, ErrDuplicateXCoordinate)
}

func TestInterpolate_NoPoints(t *testing.T) {
	_, err := Interpolate(nil)
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = InterpolateAt(nil, new(big.Rat))
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestInterpolate_NilCoordinate(t *testing.T) {
	_, err := Interpolate([]Point{{X: big.NewRat(1, 1)}})
	assert.Error(t, err)
}

func TestInterpolateAt_MatchesConstantTerm(t *testing.T) {
	p := FromInt64s(412, 17, 3)
	points := samples(p, 1, 2, 3)

	secret, err := InterpolateAt(points, new(big.Rat))
	require.NoError(t, err)
	assert.Equal(t, "412", secret.RatString())

	full, err := Interpolate(points)
	require.NoError(t, err)
	assert.Equal(t, 0, full.ConstantTerm().Cmp(secret))
}

func TestPoint_String(t *testing.T) {
	assert.Equal(t, "(2, 39)", NewPoint(2, big.NewRat(39, 1)).String())
}
