// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vesper Contributors

package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for handler invocation metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MessagesTotal counts messages entering the dispatcher by direction.
// Use RegisterMetrics to register this with a Prometheus registry.
var MessagesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vesper_messages_total",
		Help: "Total number of messages dispatched",
	},
	[]string{"direction"},
)

// HandlerInvocations counts handler invocations by handler and status.
var HandlerInvocations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vesper_handler_invocations_total",
		Help: "Total number of handler invocations",
	},
	[]string{"handler", "status"},
)

// HandlerDuration is the histogram of handler invocation duration.
var HandlerDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "vesper_handler_duration_seconds",
		Help:    "Handler invocation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"handler"},
)

// RegisterMetrics registers client package metrics with the given registry.
// Call once at startup. Panics if registration fails (prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(MessagesTotal)
	reg.MustRegister(HandlerInvocations)
	reg.MustRegister(HandlerDuration)
}

// RecordMessage increments the message counter for a direction.
func RecordMessage(direction string) {
	MessagesTotal.WithLabelValues(direction).Inc()
}

// RecordInvocation records one handler invocation.
func RecordInvocation(handler, status string, duration time.Duration) {
	HandlerInvocations.WithLabelValues(handler, status).Inc()
	HandlerDuration.WithLabelValues(handler).Observe(duration.Seconds())
}
