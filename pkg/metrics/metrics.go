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

// Package metrics provides Prometheus instrumentation for key generation
// sessions and the HTTP API that drives them.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all metrics
	Namespace = "dkg"

	// Label names
	LabelOperation  = "operation"
	LabelStatus     = "status"
	LabelErrorType  = "error_type"
	LabelProtocol   = "protocol"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"
	LabelState      = "state"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpCreate   = "create"
	OpGet      = "get"
	OpList     = "list"
	OpRemove   = "remove"
	OpFinalize = "finalize"
	OpEscrow   = "escrow"
	OpDelete   = "delete"
	OpCombine  = "combine"
)

var (
	// OperationsTotal counts session operations by type and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of session operations by type and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration tracks session operation latency. Reconstruction
	// cost grows quadratically with the participant count.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of session operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{LabelOperation},
	)

	// ErrorsTotal counts failures by operation and error type, for example
	// "unknown_participant" or "below_threshold".
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	// Sessions tracks held sessions by state.
	Sessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sessions",
			Help:      "Number of held sessions by state",
		},
		[]string{LabelState},
	)

	// RemovalsTotal counts accepted participant removals.
	RemovalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "removals_total",
			Help:      "Total number of accepted participant removals",
		},
	)

	// ParticipantsPerSession observes the participant count of each new session.
	ParticipantsPerSession = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "session_participants",
			Help:      "Participant count of created sessions",
			Buckets:   []float64{2, 3, 5, 8, 13, 21, 34, 55},
		},
	)

	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_connections",
			Help:      "Number of active connections by protocol",
		},
		[]string{LabelProtocol},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)

	// Resource gauges, updated by ResourceCollector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordOperation records a session operation with its duration in seconds.
//
// Example:
//
//	start := time.Now()
//	_, err := session.Remove(name)
//	metrics.RecordOperation(metrics.OpRemove, metrics.Status(err), time.Since(start).Seconds())
func RecordOperation(operation, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordError records a failed operation by error type.
func RecordError(operation, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// Status maps an operation result to StatusSuccess or StatusError.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordRemoval counts an accepted participant removal.
func RecordRemoval() {
	if !enabled.Load() {
		return
	}
	RemovalsTotal.Inc()
}

// ObserveParticipants records the size of a newly created session.
func ObserveParticipants(n int) {
	if !enabled.Load() {
		return
	}
	ParticipantsPerSession.Observe(float64(n))
}

// SetSessions sets the number of held sessions in a state.
func SetSessions(state string, count int) {
	if !enabled.Load() {
		return
	}
	Sessions.WithLabelValues(state).Set(float64(count))
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	if !enabled.Load() {
		return
	}
	RateLimitedTotal.Inc()
}

func IncrementActiveConnections(protocol string) {
	if !enabled.Load() {
		return
	}
	ActiveConnections.WithLabelValues(protocol).Inc()
}

func DecrementActiveConnections(protocol string) {
	if !enabled.Load() {
		return
	}
	ActiveConnections.WithLabelValues(protocol).Dec()
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
