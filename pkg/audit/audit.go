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

// Package audit records the lifecycle of key generation sessions.
//
// Every state change a session manager performs is captured as an Event
// carrying the session and correlation IDs, so the full history of a
// session (who was removed, when it was finalized and escrowed) can be
// retrieved after the fact.
package audit

import (
	"context"
	"time"
)

// EventType categorizes audit events
type EventType string

const (
	EventSessionCreated     EventType = "session.created"
	EventParticipantRemoved EventType = "participant.removed"
	EventRemovalRejected    EventType = "removal.rejected"
	EventSessionFinalized   EventType = "session.finalized"
	EventSecretEscrowed     EventType = "secret.escrowed"
	EventSessionDeleted     EventType = "session.deleted"
)

// Outcome indicates whether the audited operation succeeded
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event represents a single audit log entry
type Event struct {
	// ID is a unique identifier for this audit event
	ID string `json:"id"`

	// Timestamp when the event occurred
	Timestamp time.Time `json:"timestamp"`

	Type    EventType `json:"type"`
	Outcome Outcome   `json:"outcome"`

	// SessionID identifies the key generation session
	SessionID string `json:"session_id"`

	// CorrelationID correlates this event with a request
	CorrelationID string `json:"correlation_id,omitempty"`

	// Participant is the participant the event concerns, if any
	Participant string `json:"participant,omitempty"`

	// Detail is a human-readable result or error message
	Detail string `json:"detail,omitempty"`

	// Metadata stores additional context
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Adapter stores and queries audit events.
//
// Applications can implement this interface to ship events elsewhere
// (a database or a SIEM); MemoryAdapter keeps them in process.
type Adapter interface {
	// LogEvent records an audit event, assigning ID and Timestamp when unset
	LogEvent(ctx context.Context, event *Event) error

	// GetEvents retrieves audit events matching query
	GetEvents(ctx context.Context, query *EventQuery) ([]*Event, error)

	// DeleteEvents removes events matching query and returns the count
	DeleteEvents(ctx context.Context, query *EventQuery) (int, error)
}

// Order is the result ordering of GetEvents
type Order string

const (
	// OrderAscending returns the oldest events first (default)
	OrderAscending Order = "timestamp_asc"
	// OrderDescending returns the newest events first
	OrderDescending Order = "timestamp_desc"
)

// EventQuery provides parameters for querying audit events.
// Zero-valued fields match everything.
type EventQuery struct {
	Types     []EventType
	Outcomes  []Outcome
	SessionID string

	// Since filters events at or after this time
	Since time.Time

	Limit  int
	Offset int
	Order  Order
}

func (q *EventQuery) matches(e *Event) bool {
	if q.SessionID != "" && e.SessionID != q.SessionID {
		return false
	}
	if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
		return false
	}
	if len(q.Types) > 0 && !contains(q.Types, e.Type) {
		return false
	}
	if len(q.Outcomes) > 0 && !contains(q.Outcomes, e.Outcome) {
		return false
	}
	return true
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
