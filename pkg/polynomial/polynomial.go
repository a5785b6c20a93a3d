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

// Package polynomial implements exact arithmetic over univariate polynomials
// with rational coefficients, and Lagrange interpolation over a set of
// distinct points.
//
// Coefficients are stored lowest degree first: c[0] is the constant term and
// c[len-1] the highest-degree term. All values are *big.Rat so that
// interpolation cancels exactly; floating point is never used.
//
// A Polynomial is immutable. Every operation returns a new value and no
// method retains or exposes the caller's *big.Rat pointers.
package polynomial

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	// ErrDivisionByZero is returned when a polynomial is divided by zero.
	ErrDivisionByZero = errors.New("polynomial: division by zero")

	// ErrInvalidCoefficient is returned when a coefficient cannot be parsed.
	ErrInvalidCoefficient = errors.New("polynomial: invalid coefficient")
)

// Polynomial is an ordered sequence of rational coefficients, lowest degree
// first. The zero value is the empty polynomial, which evaluates to zero.
type Polynomial struct {
	coeffs []*big.Rat
}

// New returns a polynomial with copies of the given coefficients.
// A nil coefficient is treated as zero.
func New(coeffs ...*big.Rat) Polynomial {
	c := make([]*big.Rat, len(coeffs))
	for i, v := range coeffs {
		c[i] = new(big.Rat)
		if v != nil {
			c[i].Set(v)
		}
	}
	return Polynomial{coeffs: c}
}

// FromInt64s returns a polynomial with integer coefficients.
//
//	FromInt64s(7, 3) // 3*x + 7
func FromInt64s(coeffs ...int64) Polynomial {
	c := make([]*big.Rat, len(coeffs))
	for i, v := range coeffs {
		c[i] = new(big.Rat).SetInt64(v)
	}
	return Polynomial{coeffs: c}
}

// Parse builds a polynomial from rational strings such as "7", "-3/2" or "0.5".
func Parse(coeffs ...string) (Polynomial, error) {
	c := make([]*big.Rat, len(coeffs))
	for i, s := range coeffs {
		r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
		if !ok {
			return Polynomial{}, fmt.Errorf("%w: %q at position %d", ErrInvalidCoefficient, s, i)
		}
		c[i] = r
	}
	return Polynomial{coeffs: c}, nil
}

// Zero returns the polynomial with a single zero coefficient.
func Zero() Polynomial {
	return Polynomial{coeffs: []*big.Rat{new(big.Rat)}}
}

// Len returns the number of stored coefficients.
func (p Polynomial) Len() int {
	return len(p.coeffs)
}

// Degree returns the degree of the stored coefficient sequence, len-1.
// Trailing zero coefficients are counted; call Normalize first for the
// mathematical degree. The empty polynomial has degree -1.
func (p Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

// Coefficient returns a copy of the coefficient of x^i. Indices outside the
// stored range yield zero.
func (p Polynomial) Coefficient(i int) *big.Rat {
	if i < 0 || i >= len(p.coeffs) {
		return new(big.Rat)
	}
	return new(big.Rat).Set(p.coeffs[i])
}

// Coefficients returns copies of all coefficients, lowest degree first.
func (p Polynomial) Coefficients() []*big.Rat {
	out := make([]*big.Rat, len(p.coeffs))
	for i, c := range p.coeffs {
		out[i] = new(big.Rat).Set(c)
	}
	return out
}

// ConstantTerm returns the value of the polynomial at x = 0.
func (p Polynomial) ConstantTerm() *big.Rat {
	return p.Coefficient(0)
}

// LeadingCoefficient returns the highest-degree non-zero coefficient, or zero
// for the zero polynomial.
func (p Polynomial) LeadingCoefficient() *big.Rat {
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		if p.coeffs[i].Sign() != 0 {
			return new(big.Rat).Set(p.coeffs[i])
		}
	}
	return new(big.Rat)
}

// LowestNonZero returns the lowest-degree non-zero coefficient, or zero for
// the zero polynomial.
func (p Polynomial) LowestNonZero() *big.Rat {
	for _, c := range p.coeffs {
		if c.Sign() != 0 {
			return new(big.Rat).Set(c)
		}
	}
	return new(big.Rat)
}

// IsZero reports whether every coefficient is zero.
func (p Polynomial) IsZero() bool {
	for _, c := range p.coeffs {
		if c.Sign() != 0 {
			return false
		}
	}
	return true
}

// IsInteger reports whether every coefficient is an integer.
func (p Polynomial) IsInteger() bool {
	for _, c := range p.coeffs {
		if !c.IsInt() {
			return false
		}
	}
	return true
}

// Evaluate computes p(x) with Horner's method:
// p(x) = c0 + x(c1 + x(c2 + ... + x*cn)).
func (p Polynomial) Evaluate(x *big.Rat) *big.Rat {
	result := new(big.Rat)
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		result.Mul(result, x)
		result.Add(result, p.coeffs[i])
	}
	return result
}

// EvaluateInt is Evaluate at an integer point.
func (p Polynomial) EvaluateInt(x int64) *big.Rat {
	return p.Evaluate(new(big.Rat).SetInt64(x))
}

// Add returns p + q. The shorter operand is padded with zeros; the result
// has max(len(p), len(q)) coefficients even when the leading terms cancel.
func (p Polynomial) Add(q Polynomial) Polynomial {
	n := max(len(p.coeffs), len(q.coeffs))
	out := make([]*big.Rat, n)
	for i := range out {
		out[i] = new(big.Rat)
		if i < len(p.coeffs) {
			out[i].Add(out[i], p.coeffs[i])
		}
		if i < len(q.coeffs) {
			out[i].Add(out[i], q.coeffs[i])
		}
	}
	return Polynomial{coeffs: out}
}

// Sub returns p - q with the same padding rules as Add.
func (p Polynomial) Sub(q Polynomial) Polynomial {
	return p.Add(q.Scale(big.NewRat(-1, 1)))
}

// Mul returns the product p * q, the convolution of both coefficient
// sequences. The result has len(p)+len(q)-1 coefficients; multiplying by the
// empty polynomial yields the empty polynomial.
func (p Polynomial) Mul(q Polynomial) Polynomial {
	if len(p.coeffs) == 0 || len(q.coeffs) == 0 {
		return Polynomial{}
	}
	out := make([]*big.Rat, len(p.coeffs)+len(q.coeffs)-1)
	for i := range out {
		out[i] = new(big.Rat)
	}
	term := new(big.Rat)
	for i, a := range p.coeffs {
		for j, b := range q.coeffs {
			term.Mul(a, b)
			out[i+j].Add(out[i+j], term)
		}
	}
	return Polynomial{coeffs: out}
}

// Scale multiplies every coefficient by c.
func (p Polynomial) Scale(c *big.Rat) Polynomial {
	out := make([]*big.Rat, len(p.coeffs))
	for i, v := range p.coeffs {
		out[i] = new(big.Rat).Mul(v, c)
	}
	return Polynomial{coeffs: out}
}

// ScalarDiv divides every coefficient by c. Integer inputs produce exact
// rational results.
func (p Polynomial) ScalarDiv(c *big.Rat) (Polynomial, error) {
	if c == nil || c.Sign() == 0 {
		return Polynomial{}, ErrDivisionByZero
	}
	return p.Scale(new(big.Rat).Inv(c)), nil
}

// Normalize trims trailing zero high-degree coefficients. At least one
// coefficient is kept, so the zero polynomial normalizes to [0].
func (p Polynomial) Normalize() Polynomial {
	n := len(p.coeffs)
	for n > 1 && p.coeffs[n-1].Sign() == 0 {
		n--
	}
	if n == 0 {
		return Zero()
	}
	return New(p.coeffs[:n]...)
}

// Equal reports whether p and q are the same polynomial after normalization.
func (p Polynomial) Equal(q Polynomial) bool {
	a, b := p.Normalize(), q.Normalize()
	if len(a.coeffs) != len(b.coeffs) {
		return false
	}
	for i := range a.coeffs {
		if a.coeffs[i].Cmp(b.coeffs[i]) != 0 {
			return false
		}
	}
	return true
}

// Strings returns the coefficients in rational string form, lowest degree
// first. Integers render without a denominator.
func (p Polynomial) Strings() []string {
	out := make([]string, len(p.coeffs))
	for i, c := range p.coeffs {
		out[i] = c.RatString()
	}
	return out
}

// String renders p as an expression, highest degree first, e.g.
// "3*x**2 - x/2 + 7". Zero terms are omitted.
func (p Polynomial) String() string {
	var b strings.Builder
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		c := p.coeffs[i]
		if c.Sign() == 0 {
			continue
		}
		abs := new(big.Rat).Abs(c)
		switch {
		case b.Len() == 0 && c.Sign() < 0:
			b.WriteString("-")
		case b.Len() > 0 && c.Sign() < 0:
			b.WriteString(" - ")
		case b.Len() > 0:
			b.WriteString(" + ")
		}
		b.WriteString(formatTerm(abs, i))
	}
	if b.Len() == 0 {
		return "0"
	}
	return b.String()
}

func formatTerm(abs *big.Rat, power int) string {
	if power == 0 {
		return abs.RatString()
	}
	v := "x"
	if power > 1 {
		v = fmt.Sprintf("x**%d", power)
	}
	one := abs.Cmp(big.NewRat(1, 1)) == 0
	switch {
	case one:
		return v
	case abs.IsInt():
		return abs.RatString() + "*" + v
	case abs.Num().Cmp(big.NewInt(1)) == 0:
		return v + "/" + abs.Denom().String()
	default:
		return abs.Num().String() + "*" + v + "/" + abs.Denom().String()
	}
}

// MarshalJSON encodes p as an array of rational strings, lowest degree first.
func (p Polynomial) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Strings())
}

// UnmarshalJSON decodes an array of rational strings.
func (p *Polynomial) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := Parse(raw...)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
