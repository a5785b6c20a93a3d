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
	"encoding/json"
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rat(a, b int64) *big.Rat {
	return big.NewRat(a, b)
}

// powerSum evaluates p at x term by term, without Horner.
func powerSum(p Polynomial, x int64) *big.Rat {
	result := new(big.Rat)
	xr := new(big.Rat).SetInt64(x)
	for i, c := range p.Coefficients() {
		pow := big.NewRat(1, 1)
		for k := 0; k < i; k++ {
			pow.Mul(pow, xr)
		}
		result.Add(result, pow.Mul(pow, c))
	}
	return result
}

func TestEvaluate_MatchesPowerSum(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		coeffs := make([]int64, 1+rng.IntN(6))
		for i := range coeffs {
			coeffs[i] = rng.Int64N(2001) - 1000
		}
		p := FromInt64s(coeffs...)
		for x := int64(-5); x <= 5; x++ {
			assert.Equal(t, 0, powerSum(p, x).Cmp(p.EvaluateInt(x)), "p=%s x=%d", p, x)
		}
	}
}

func TestEvaluate_EmptyPolynomial(t *testing.T) {
	var p Polynomial
	assert.Equal(t, 0, p.EvaluateInt(42).Sign())
	assert.Equal(t, -1, p.Degree())
}

func TestEvaluate_Rational(t *testing.T) {
	p := New(rat(1, 2), rat(1, 3))
	// 1/2 + x/3 at x = 3/2 = 1/2 + 1/2 = 1
	assert.Equal(t, "1", p.Evaluate(rat(3, 2)).RatString())
}

func TestAdd_PadsShorterOperand(t *testing.T) {
	p := FromInt64s(7, 3)
	q := FromInt64s(1, 2, 5)

	sum := p.Add(q)
	assert.Equal(t, []string{"8", "5", "5"}, sum.Strings())
	assert.Equal(t, 2, sum.Degree())
}

func TestAdd_NoAutoTrim(t *testing.T) {
	p := FromInt64s(1, 4)
	q := FromInt64s(2, -4)

	sum := p.Add(q)
	assert.Equal(t, []string{"3", "0"}, sum.Strings())
	assert.Equal(t, 1, sum.Degree())
	assert.Equal(t, 0, sum.Normalize().Degree())
}

func TestSub(t *testing.T) {
	p := FromInt64s(7, 3)
	q := FromInt64s(2, 5)
	assert.Equal(t, []string{"5", "-2"}, p.Sub(q).Strings())
}

func TestMul_Convolution(t *testing.T) {
	// (x + 1)(x - 1) = x^2 - 1
	p := FromInt64s(1, 1)
	q := FromInt64s(-1, 1)

	prod := p.Mul(q)
	assert.Equal(t, []string{"-1", "0", "1"}, prod.Strings())
	assert.Equal(t, p.Len()+q.Len()-1, prod.Len())
}

func TestMul_Empty(t *testing.T) {
	assert.Equal(t, 0, FromInt64s(1, 2).Mul(Polynomial{}).Len())
}

func TestScalarDiv(t *testing.T) {
	p := FromInt64s(3, 4)

	q, err := p.ScalarDiv(rat(2, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"3/2", "2"}, q.Strings())
}

func TestScalarDiv_ByZero(t *testing.T) {
	p := FromInt64s(3, 4)

	_, err := p.ScalarDiv(new(big.Rat))
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = p.ScalarDiv(nil)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestImmutability(t *testing.T) {
	c := rat(5, 1)
	p := New(c)
	c.SetInt64(9)
	assert.Equal(t, "5", p.ConstantTerm().RatString())

	got := p.Coefficient(0)
	got.SetInt64(11)
	assert.Equal(t, "5", p.ConstantTerm().RatString())
}

func TestCoefficientAccessors(t *testing.T) {
	p := FromInt64s(0, 7, 3, 0)

	assert.Equal(t, "0", p.ConstantTerm().RatString())
	assert.Equal(t, "3", p.LeadingCoefficient().RatString())
	assert.Equal(t, "7", p.LowestNonZero().RatString())
	assert.Equal(t, "0", p.Coefficient(10).RatString())
	assert.Equal(t, "0", p.Coefficient(-1).RatString())
	assert.True(t, p.IsInteger())
	assert.False(t, p.IsZero())

	zero := FromInt64s(0, 0)
	assert.True(t, zero.IsZero())
	assert.Equal(t, "0", zero.LeadingCoefficient().RatString())
	assert.Equal(t, "0", zero.LowestNonZero().RatString())
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Polynomial
		want []string
	}{
		{"already normal", FromInt64s(1, 2), []string{"1", "2"}},
		{"trailing zeros", FromInt64s(1, 2, 0, 0), []string{"1", "2"}},
		{"all zero", FromInt64s(0, 0, 0), []string{"0"}},
		{"empty", Polynomial{}, []string{"0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize().Strings())
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, FromInt64s(1, 2, 0).Equal(FromInt64s(1, 2)))
	assert.False(t, FromInt64s(1, 2).Equal(FromInt64s(1, 3)))
	assert.True(t, New(rat(2, 4)).Equal(New(rat(1, 2))))
}

func TestString(t *testing.T) {
	tests := []struct {
		in   Polynomial
		want string
	}{
		{FromInt64s(7, 16), "16*x + 7"},
		{FromInt64s(-1, 0, 1), "x**2 - 1"},
		{FromInt64s(0, -1), "-x"},
		{New(rat(1, 2), rat(-1, 2)), "-x/2 + 1/2"},
		{New(rat(0, 1), rat(3, 4)), "3*x/4"},
		{FromInt64s(0, 0), "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.String())
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("7", "-3/2", " 0.5 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "-3/2", "1/2"}, p.Strings())

	_, err = Parse("7", "seven")
	assert.ErrorIs(t, err, ErrInvalidCoefficient)
}

func TestJSON(t *testing.T) {
	p := New(rat(7, 1), rat(-3, 2))

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `["7","-3/2"]`, string(data))

	var decoded Polynomial
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, p.Equal(decoded))

	assert.Error(t, json.Unmarshal([]byte(`["x"]`), &decoded))
}
