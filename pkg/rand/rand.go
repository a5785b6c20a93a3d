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

// Package rand provides the explicit pseudo-random source used to draw
// polynomial coefficients.
//
// # Security
//
// None of the sources in this package are suitable for key material. The
// joint key-generation demo performs plain rational arithmetic with no
// finite-field reduction, so coefficient secrecy is not a goal. Sources are
// ChaCha8 generators from math/rand/v2 and exist so that sessions can be
// replayed deterministically in tests.
//
// # Modes
//
//   - ModeSeeded: deterministic stream derived from Config.Seed
//   - ModeSystem: ChaCha8 keyed once from the operating system's entropy
//
// A Source is not safe for concurrent use. Each session owns its own.
package rand

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mrand "math/rand/v2"
)

// Mode selects how a Source is keyed.
type Mode string

const (
	// ModeSeeded derives the generator state from Config.Seed.
	ModeSeeded Mode = "seeded"

	// ModeSystem keys the generator from crypto/rand.
	ModeSystem Mode = "system"
)

// ErrInvalidRange is returned when a range has Min > Max.
var ErrInvalidRange = errors.New("rand: invalid range")

// Config contains PRNG configuration.
type Config struct {
	// Mode defaults to ModeSystem, or ModeSeeded when Seed is non-zero.
	Mode Mode

	// Seed is the deterministic seed for ModeSeeded.
	Seed uint64
}

// Source draws uniformly distributed integers from a ChaCha8 stream.
type Source struct {
	rng  *mrand.Rand
	mode Mode
}

// NewSource creates a Source from the given configuration. A nil config
// yields a system-keyed source.
func NewSource(config *Config) (*Source, error) {
	cfg := normalizeConfig(config)

	switch cfg.Mode {
	case ModeSeeded:
		return NewSeeded(cfg.Seed), nil
	case ModeSystem:
		var key [32]byte
		if _, err := crand.Read(key[:]); err != nil {
			return nil, fmt.Errorf("failed to key system source: %w", err)
		}
		return &Source{rng: mrand.New(mrand.NewChaCha8(key)), mode: ModeSystem}, nil
	default:
		return nil, fmt.Errorf("unknown PRNG mode: %s", cfg.Mode)
	}
}

// NewSeeded returns a deterministic source. Equal seeds produce equal streams.
func NewSeeded(seed uint64) *Source {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	binary.LittleEndian.PutUint64(key[8:16], ^seed)
	return &Source{rng: mrand.New(mrand.NewChaCha8(key)), mode: ModeSeeded}
}

func normalizeConfig(config *Config) *Config {
	if config == nil {
		return &Config{Mode: ModeSystem}
	}
	cfg := *config
	if cfg.Mode == "" {
		if cfg.Seed != 0 {
			cfg.Mode = ModeSeeded
		} else {
			cfg.Mode = ModeSystem
		}
	}
	return &cfg
}

// Mode returns how the source was keyed.
func (s *Source) Mode() Mode {
	return s.mode
}

// Int64Range returns a uniform integer in the inclusive range [lo, hi].
func (s *Source) Int64Range(lo, hi int64) (int64, error) {
	if lo > hi {
		return 0, fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, lo, hi)
	}
	span := uint64(hi - lo)
	if span == ^uint64(0) {
		return int64(s.rng.Uint64()), nil
	}
	return lo + int64(s.rng.Uint64N(span+1)), nil
}
