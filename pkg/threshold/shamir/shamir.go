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

// Package shamir escrows the joint secret produced by a finalized key
// generation session. The textual secret is split with Shamir's Secret
// Sharing (sssa-golang) so that any threshold of the surviving participants
// can recover it later.
package shamir

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/SSSaaS/sssa-golang"
)

// MaxShares is the largest share count accepted by Split.
const MaxShares = 255

var (
	ErrInvalidThreshold = errors.New("shamir: invalid threshold")
	ErrInvalidTotal     = errors.New("shamir: invalid share total")
	ErrEmptySecret      = errors.New("shamir: secret cannot be empty")
	ErrNoShares         = errors.New("shamir: no shares provided")
	ErrShareMismatch    = errors.New("shamir: inconsistent shares")
	ErrInsufficient     = errors.New("shamir: insufficient shares")
)

// Split divides secret into total shares where any threshold of them
// reconstruct it. The secret is hex encoded before it is handed to
// sssa-golang, and each share value is base64 encoded.
func Split(secret []byte, threshold, total int) ([]*Share, error) {
	if threshold < 2 || threshold > MaxShares {
		return nil, fmt.Errorf("%w: %d (must be between 2 and %d)", ErrInvalidThreshold, threshold, MaxShares)
	}
	if total < threshold || total > MaxShares {
		return nil, fmt.Errorf("%w: %d (must be between threshold %d and %d)", ErrInvalidTotal, total, threshold, MaxShares)
	}
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	raw, err := sssa.Create(threshold, total, hex.EncodeToString(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to split secret: %w", err)
	}

	shares := make([]*Share, len(raw))
	for i, s := range raw {
		shares[i] = &Share{
			Index:     i + 1,
			Threshold: threshold,
			Total:     total,
			Value:     base64.StdEncoding.EncodeToString([]byte(s)),
			Metadata:  make(map[string]string),
		}
	}
	return shares, nil
}

// Combine reconstructs the secret from at least Threshold consistent shares.
func Combine(shares []*Share) ([]byte, error) {
	if len(shares) == 0 {
		return nil, ErrNoShares
	}
	if err := checkConsistent(shares); err != nil {
		return nil, err
	}
	threshold := shares[0].Threshold
	if len(shares) < threshold {
		return nil, fmt.Errorf("%w: need at least %d shares, got %d", ErrInsufficient, threshold, len(shares))
	}

	raw := make([]string, len(shares))
	for i, share := range shares {
		decoded, err := share.Bytes()
		if err != nil {
			return nil, fmt.Errorf("failed to decode share %d: %w", share.Index, err)
		}
		raw[i] = string(decoded)
	}

	secretHex, err := sssa.Combine(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to combine shares: %w", err)
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hex secret: %w", err)
	}
	return secret, nil
}

// VerifyShare checks that share is valid and agrees with others on its
// parameters without repeating an index.
func VerifyShare(share *Share, others []*Share) error {
	if err := share.Validate(); err != nil {
		return err
	}
	for _, other := range others {
		if other.Threshold != share.Threshold || other.Total != share.Total {
			return fmt.Errorf("%w: share %d is %d/%d, share %d is %d/%d", ErrShareMismatch,
				share.Index, share.Threshold, share.Total, other.Index, other.Threshold, other.Total)
		}
		if other.Index == share.Index {
			return fmt.Errorf("%w: duplicate share index %d", ErrShareMismatch, share.Index)
		}
	}
	return nil
}

func checkConsistent(shares []*Share) error {
	for i, share := range shares {
		if err := VerifyShare(share, shares[:i]); err != nil {
			return err
		}
	}
	return nil
}
