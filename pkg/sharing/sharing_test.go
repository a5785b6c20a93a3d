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
	"math/big"
	"testing"

	"github.com/jeremyhahn/go-dkg/pkg/polynomial"
	"github.com/jeremyhahn/go-dkg/pkg/rand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, seed uint64) *Generator {
	t.Helper()
	gen, err := NewGenerator(&Config{Source: rand.NewSeeded(seed)})
	require.NoError(t, err)
	return gen
}

func TestNewGenerator_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{"nil config", nil, "config cannot be nil"},
		{"nil source", &Config{}, "random source cannot be nil"},
		{
			"bad secret range",
			&Config{Source: rand.NewSeeded(1), SecretRange: &Range{Min: 5, Max: 1}},
			"secret range",
		},
		{
			"bad coefficient range",
			&Config{Source: rand.NewSeeded(1), CoeffRange: &Range{Min: 5, Max: 1}},
			"coefficient range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewPolynomial_CoefficientCount(t *testing.T) {
	gen := newTestGenerator(t, 99)
	for n := 1; n <= 8; n++ {
		for threshold := 1; threshold <= n; threshold++ {
			p, err := gen.NewPolynomial(threshold - 1)
			require.NoError(t, err)
			assert.Equal(t, threshold, p.Len(), "t=%d n=%d", threshold, n)
		}
	}
}

func TestNewPolynomial_RespectsRanges(t *testing.T) {
	gen, err := NewGenerator(&Config{
		Source:      rand.NewSeeded(3),
		SecretRange: &Range{Min: 500, Max: 510},
		CoeffRange:  &Range{Min: -2, Max: 2},
	})
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		p, err := gen.NewPolynomial(3)
		require.NoError(t, err)

		secret := p.ConstantTerm()
		assert.True(t, secret.Cmp(big.NewRat(500, 1)) >= 0 && secret.Cmp(big.NewRat(510, 1)) <= 0)
		for j := 1; j <= 3; j++ {
			c := p.Coefficient(j)
			assert.True(t, c.Cmp(big.NewRat(-2, 1)) >= 0 && c.Cmp(big.NewRat(2, 1)) <= 0)
		}
	}
}

func TestNewPolynomial_DefaultRange(t *testing.T) {
	gen := newTestGenerator(t, 5)
	p, err := gen.NewPolynomial(4)
	require.NoError(t, err)
	for _, c := range p.Coefficients() {
		assert.True(t, c.Cmp(big.NewRat(DefaultMin, 1)) >= 0)
		assert.True(t, c.Cmp(big.NewRat(DefaultMax, 1)) <= 0)
	}
}

func TestNewPolynomial_ExplicitZeroRange(t *testing.T) {
	gen, err := NewGenerator(&Config{
		Source:      rand.NewSeeded(3),
		SecretRange: &Range{},
		CoeffRange:  &Range{},
	})
	require.NoError(t, err)

	p, err := gen.NewPolynomial(2)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())
	for _, c := range p.Coefficients() {
		assert.Equal(t, 0, c.Sign())
	}
}

func TestNewPolynomial_Deterministic(t *testing.T) {
	a, err := newTestGenerator(t, 11).NewPolynomial(2)
	require.NoError(t, err)
	b, err := newTestGenerator(t, 11).NewPolynomial(2)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestNewPolynomial_NegativeDegree(t *testing.T) {
	_, err := newTestGenerator(t, 1).NewPolynomial(-1)
	assert.ErrorIs(t, err, ErrInvalidDegree)
}

func TestGenerateShares(t *testing.T) {
	p := polynomial.FromInt64s(7, 3)

	shares, err := GenerateShares(p, 3)
	require.NoError(t, err)
	require.Len(t, shares, 3)

	for i, s := range shares {
		assert.Equal(t, i+1, s.X)
		assert.Equal(t, 0, s.Y.Cmp(p.EvaluateInt(int64(i+1))))
		assert.NoError(t, s.Validate())
	}
	assert.Equal(t, "(1, 10)", shares[0].String())
	assert.Equal(t, "(3, 16)", shares[2].String())
}

func TestGenerateShares_InvalidCount(t *testing.T) {
	_, err := GenerateShares(polynomial.FromInt64s(1), 0)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestGenerateShares_RoundTripThroughInterpolation(t *testing.T) {
	gen := newTestGenerator(t, 21)
	p, err := gen.NewPolynomial(3)
	require.NoError(t, err)

	shares, err := GenerateShares(p, 6)
	require.NoError(t, err)

	got, err := polynomial.Interpolate(Points(shares[2:6]))
	require.NoError(t, err)
	assert.True(t, p.Equal(got))
}

func TestShare_Validate(t *testing.T) {
	assert.Error(t, Share{X: 0, Y: big.NewRat(1, 1)}.Validate())
	assert.Error(t, Share{X: 1}.Validate())
}

func TestShare_JSON(t *testing.T) {
	s := Share{X: 2, Y: big.NewRat(-7, 2)}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":2,"y":"-7/2"}`, string(data))

	var decoded Share
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.X)
	assert.Equal(t, 0, decoded.Y.Cmp(s.Y))

	assert.Error(t, json.Unmarshal([]byte(`{"x":1,"y":"abc"}`), &decoded))
}
