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

// Package validation checks untrusted input arriving through the REST API
// and the CLI before it reaches a session.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxNameLength bounds a participant name in bytes
	MaxNameLength = 128

	// MaxParticipants bounds the participants of one session. It matches
	// the escrow share limit so every finalized session can be escrowed.
	MaxParticipants = 255

	// MaxCoefficientLength bounds a textual rational coefficient in bytes
	MaxCoefficientLength = 1024
)

// ValidateParticipantName rejects names that cannot be displayed or logged
// safely. Emptiness and uniqueness are checked by the session itself.
func ValidateParticipantName(name string) error {
	// Check for null bytes
	if strings.Contains(name, "\x00") {
		return fmt.Errorf("participant name contains null byte")
	}

	// Check length before other validations
	if len(name) > MaxNameLength {
		return fmt.Errorf("participant name too long (max %d bytes)", MaxNameLength)
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("participant name is not valid UTF-8")
	}

	// Check for control characters
	for _, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("participant name contains control characters")
		}
	}
	return nil
}

// ValidateParticipants checks the participant count and every name.
func ValidateParticipants(names []string) error {
	if len(names) > MaxParticipants {
		return fmt.Errorf("too many participants: %d (max %d)", len(names), MaxParticipants)
	}
	for i, name := range names {
		if err := ValidateParticipantName(name); err != nil {
			return fmt.Errorf("participant %d: %w", i+1, err)
		}
	}
	return nil
}

// ValidateCoefficient bounds the size of a textual coefficient so a client
// cannot submit arbitrarily large rationals.
func ValidateCoefficient(s string) error {
	if len(s) > MaxCoefficientLength {
		return fmt.Errorf("coefficient too long (max %d bytes)", MaxCoefficientLength)
	}
	return nil
}

// ValidateSessionID checks that id is a UUID.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session ID: %w", err)
	}
	return nil
}

// SanitizeForLog sanitizes a string for safe logging (prevents log injection).
func SanitizeForLog(s string) string {
	// Remove control characters and null bytes
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	// Limit length to prevent log flooding
	if len(s) > 256 {
		s = s[:256] + "...[truncated]"
	}

	return s
}
