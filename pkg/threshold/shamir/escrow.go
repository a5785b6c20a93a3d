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

package shamir

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// MetadataHolder is the metadata key naming the share holder.
const MetadataHolder = "holder"

// ErrTooFewHolders is returned when fewer than two holders remain to
// receive escrow shares.
var ErrTooFewHolders = errors.New("shamir: escrow needs at least two holders")

// Escrow is a joint secret split across the surviving participants.
type Escrow struct {
	Threshold int      `json:"threshold"`
	Shares    []*Share `json:"shares"`
}

// EscrowThreshold clamps the session threshold to the number of holders,
// raising it to the minimum of two that Shamir splitting requires.
func EscrowThreshold(sessionThreshold, holders int) int {
	t := min(sessionThreshold, holders)
	if t < 2 {
		t = 2
	}
	return t
}

// EscrowSecret splits the rational secret, in its exact a/b text form,
// into one share per holder.
func EscrowSecret(secret *big.Rat, holders []string, sessionThreshold int) (*Escrow, error) {
	if secret == nil {
		return nil, ErrEmptySecret
	}
	if len(holders) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewHolders, len(holders))
	}

	threshold := EscrowThreshold(sessionThreshold, len(holders))
	shares, err := Split([]byte(secret.RatString()), threshold, len(holders))
	if err != nil {
		return nil, err
	}
	for i, share := range shares {
		share.Metadata[MetadataHolder] = holders[i]
	}
	return &Escrow{Threshold: threshold, Shares: shares}, nil
}

// Holder returns the share issued to name, matched case-insensitively.
func (e *Escrow) Holder(name string) (*Share, bool) {
	for _, share := range e.Shares {
		if strings.EqualFold(share.Holder(), strings.TrimSpace(name)) {
			return share, true
		}
	}
	return nil, false
}

// RecoverSecret combines escrow shares back into the rational secret.
func RecoverSecret(shares []*Share) (*big.Rat, error) {
	raw, err := Combine(shares)
	if err != nil {
		return nil, err
	}
	secret, ok := new(big.Rat).SetString(string(raw))
	if !ok {
		return nil, fmt.Errorf("%w: recovered value %q is not a rational", ErrShareMismatch, raw)
	}
	return secret, nil
}
