// Package monitor exposes Prometheus counters for relay traffic. The
// /metrics endpoint itself is registered in main when enabled.
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poe_bridge_relay_requests_total",
			Help: "Relay requests by endpoint and model.",
		},
		[]string{"mode", "model"},
	)

	relayErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poe_bridge_relay_errors_total",
			Help: "Relay failures by endpoint and normalized error type.",
		},
		[]string{"mode", "error_type"},
	)
)

// RecordRelayRequest counts one relay request for an endpoint and model.
func RecordRelayRequest(mode, model string) {
	relayRequests.WithLabelValues(mode, model).Inc()
}

// RecordRelayError counts one failed relay by normalized error type.
func RecordRelayError(mode, errType string) {
	relayErrors.WithLabelValues(mode, errType).Inc()
}
