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

package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of events a MemoryAdapter keeps by default.
const DefaultCapacity = 10000

// MemoryAdapter is an in-memory, bounded audit log. When full, the oldest
// events are dropped. Events are lost on process restart.
type MemoryAdapter struct {
	mu       sync.RWMutex
	events   []*Event
	capacity int
	dropped  int64
	now      func() time.Time
}

// NewMemoryAdapter creates an adapter holding at most capacity events.
// A capacity of zero or less uses DefaultCapacity.
func NewMemoryAdapter(capacity int) *MemoryAdapter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryAdapter{
		events:   make([]*Event, 0, min(capacity, 1024)),
		capacity: capacity,
		now:      time.Now,
	}
}

// LogEvent records an audit event in memory
func (m *MemoryAdapter) LogEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	e := *event
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = m.now()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) >= m.capacity {
		n := len(m.events) - m.capacity + 1
		m.events = append(m.events[:0], m.events[n:]...)
		m.dropped += int64(n)
	}
	m.events = append(m.events, &e)
	return nil
}

// GetEvents retrieves audit events based on query parameters. Events are
// returned in recording order unless OrderDescending is requested.
func (m *MemoryAdapter) GetEvents(ctx context.Context, query *EventQuery) ([]*Event, error) {
	if query == nil {
		query = &EventQuery{}
	}

	m.mu.RLock()
	results := make([]*Event, 0)
	for _, e := range m.events {
		if query.matches(e) {
			copied := *e
			results = append(results, &copied)
		}
	}
	m.mu.RUnlock()

	switch query.Order {
	case "", OrderAscending:
	case OrderDescending:
		for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
			results[i], results[j] = results[j], results[i]
		}
	default:
		return nil, fmt.Errorf("unknown order: %s", query.Order)
	}

	// Apply offset and limit
	if query.Offset > 0 {
		if query.Offset >= len(results) {
			return []*Event{}, nil
		}
		results = results[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results, nil
}

// DeleteEvents removes events matching query. Limit, Offset and Order are
// ignored.
func (m *MemoryAdapter) DeleteEvents(ctx context.Context, query *EventQuery) (int, error) {
	if query == nil {
		query = &EventQuery{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	deleted := 0
	for _, e := range m.events {
		if query.matches(e) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	clear(m.events[len(kept):])
	m.events = kept
	return deleted, nil
}

// Len returns the number of stored events.
func (m *MemoryAdapter) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Dropped returns how many events were evicted to respect the capacity.
func (m *MemoryAdapter) Dropped() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dropped
}
