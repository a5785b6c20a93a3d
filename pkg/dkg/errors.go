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

package dkg

import "errors"

var (
	// ErrInvalidThreshold is returned at setup when t is outside [1, n].
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrEmptyName is returned at setup for a blank participant name.
	ErrEmptyName = errors.New("participant name cannot be empty")

	// ErrDuplicateName is returned at setup when two names are equal
	// ignoring case.
	ErrDuplicateName = errors.New("duplicate participant name")

	// ErrReservedName is returned at setup for a name that collides with the
	// finish sentinel.
	ErrReservedName = errors.New("reserved participant name")

	// ErrUnknownParticipant is returned when a removal names a participant
	// that is not currently active. The session is left unchanged.
	ErrUnknownParticipant = errors.New("unknown participant")

	// ErrBelowThreshold is returned when a removal would leave fewer than t
	// active participants and threshold enforcement is on. The session is
	// left unchanged.
	ErrBelowThreshold = errors.New("removal would drop below threshold")

	// ErrNoActiveParticipants is returned when a removal would leave no
	// participant to reconstruct from.
	ErrNoActiveParticipants = errors.New("cannot remove the last active participant")

	// ErrNotDistributed is returned when a step is attempted before shares
	// have been distributed.
	ErrNotDistributed = errors.New("shares have not been distributed")

	// ErrAlreadyDistributed is returned when shares are distributed twice.
	ErrAlreadyDistributed = errors.New("shares already distributed")

	// ErrSessionFinalized is returned for any step after finalization.
	ErrSessionFinalized = errors.New("session is finalized")

	// ErrInvalidPolynomial is returned when a supplied polynomial does not
	// have exactly t coefficients.
	ErrInvalidPolynomial = errors.New("invalid participant polynomial")

	// ErrReconstructionMismatch is returned when the value of an
	// interpolant at zero disagrees with its constant term. No report is
	// produced and the session is left unchanged.
	ErrReconstructionMismatch = errors.New("reconstruction cross-check failed")

	// ErrInvalidConvention is returned for an unknown secret convention.
	ErrInvalidConvention = errors.New("unknown secret convention")
)
