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

// Package sharing draws per-participant random polynomials and evaluates
// them into shares.
//
// A participant's polynomial of degree t-1 is
//
//	f(x) = s + a1*x + ... + a(t-1)*x^(t-1)
//
// where the secret s is drawn from the secret range and a1..a(t-1) from the
// coefficient range. Share i is the point (i, f(i)) for i = 1..n.
//
// The generator uses the non-secure PRNG from pkg/rand.
package sharing

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-dkg/pkg/polynomial"
	"github.com/jeremyhahn/go-dkg/pkg/rand"
)

var (
	// ErrInvalidDegree is returned for a negative polynomial degree.
	ErrInvalidDegree = errors.New("sharing: invalid degree")

	// ErrInvalidCount is returned when fewer than one share is requested.
	ErrInvalidCount = errors.New("sharing: invalid share count")
)

// DefaultMin and DefaultMax bound secrets and coefficients when no range is
// configured.
const (
	DefaultMin = 1
	DefaultMax = 1000
)

// Range is an inclusive integer interval.
type Range struct {
	Min int64 `yaml:"min" json:"min"`
	Max int64 `yaml:"max" json:"max"`
}

// DefaultRange returns [DefaultMin, DefaultMax].
func DefaultRange() Range {
	return Range{Min: DefaultMin, Max: DefaultMax}
}

// Validate checks that Min <= Max.
func (r Range) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("invalid range [%d, %d]: min exceeds max", r.Min, r.Max)
	}
	return nil
}

// Config configures a Generator.
type Config struct {
	// Source supplies randomness. Required.
	Source *rand.Source

	// SecretRange bounds the constant term. Nil means DefaultRange.
	SecretRange *Range

	// CoeffRange bounds the higher-degree coefficients. Nil means
	// DefaultRange.
	CoeffRange *Range
}

// Generator creates random polynomials and their shares.
type Generator struct {
	source      *rand.Source
	secretRange Range
	coeffRange  Range
}

// NewGenerator creates a Generator from the configuration.
func NewGenerator(config *Config) (*Generator, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Source == nil {
		return nil, fmt.Errorf("random source cannot be nil")
	}

	secretRange := DefaultRange()
	if config.SecretRange != nil {
		secretRange = *config.SecretRange
	}
	coeffRange := DefaultRange()
	if config.CoeffRange != nil {
		coeffRange = *config.CoeffRange
	}
	if err := secretRange.Validate(); err != nil {
		return nil, fmt.Errorf("secret range: %w", err)
	}
	if err := coeffRange.Validate(); err != nil {
		return nil, fmt.Errorf("coefficient range: %w", err)
	}

	return &Generator{
		source:      config.Source,
		secretRange: secretRange,
		coeffRange:  coeffRange,
	}, nil
}

// NewPolynomial draws a polynomial with exactly degree+1 coefficients. The
// constant term is the participant's secret.
func (g *Generator) NewPolynomial(degree int) (polynomial.Polynomial, error) {
	if degree < 0 {
		return polynomial.Polynomial{}, fmt.Errorf("%w: %d", ErrInvalidDegree, degree)
	}

	coeffs := make([]*big.Rat, degree+1)
	secret, err := g.source.Int64Range(g.secretRange.Min, g.secretRange.Max)
	if err != nil {
		return polynomial.Polynomial{}, fmt.Errorf("failed to draw secret: %w", err)
	}
	coeffs[0] = new(big.Rat).SetInt64(secret)

	for i := 1; i <= degree; i++ {
		c, err := g.source.Int64Range(g.coeffRange.Min, g.coeffRange.Max)
		if err != nil {
			return polynomial.Polynomial{}, fmt.Errorf("failed to draw coefficient %d: %w", i, err)
		}
		coeffs[i] = new(big.Rat).SetInt64(c)
	}

	return polynomial.New(coeffs...), nil
}

// GenerateShares evaluates p at x = 1..count, one share per index.
func GenerateShares(p polynomial.Polynomial, count int) ([]Share, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	shares := make([]Share, count)
	for i := range shares {
		x := i + 1
		shares[i] = Share{
			X: x,
			Y: p.EvaluateInt(int64(x)),
		}
	}
	return shares, nil
}
