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
	"encoding/base64"
	"fmt"
)

// Share is one piece of an escrowed secret.
type Share struct {
	// Index is the share number, 1 to Total.
	Index int `json:"index"`

	// Threshold is the number of shares required to reconstruct.
	Threshold int `json:"threshold"`

	// Total is the number of shares created.
	Total int `json:"total"`

	// Value is the base64 encoded sssa share.
	Value string `json:"value"`

	// Metadata carries labels such as the holder name.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Bytes returns the decoded share value.
func (s *Share) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(s.Value)
}

// Holder returns the participant the share was issued to, if recorded.
func (s *Share) Holder() string {
	return s.Metadata[MetadataHolder]
}

func (s *Share) String() string {
	return fmt.Sprintf("Share{Index: %d, Threshold: %d/%d, Value: %s...}",
		s.Index, s.Threshold, s.Total, s.Value[:min(len(s.Value), 16)])
}

// Validate checks the share parameters.
func (s *Share) Validate() error {
	if s.Index < 1 {
		return fmt.Errorf("invalid share index: %d (must be >= 1)", s.Index)
	}
	if s.Threshold < 2 {
		return fmt.Errorf("invalid threshold: %d (must be >= 2)", s.Threshold)
	}
	if s.Total < s.Threshold {
		return fmt.Errorf("invalid total: %d (must be >= threshold %d)", s.Total, s.Threshold)
	}
	if s.Index > s.Total {
		return fmt.Errorf("invalid share index: %d (must be <= total %d)", s.Index, s.Total)
	}
	if s.Value == "" {
		return fmt.Errorf("share value is empty")
	}
	return nil
}
