// Package blmetrics exposes Prometheus metrics for the Broadlink
// protocol engine.
package blmetrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "gobroadlink"
	subsystem = "device"
)

// Label names for device metrics.
const (
	labelHost      = "host"
	labelCode      = "code"
	labelFamily    = "family"
	labelFromState = "from_state"
	labelToState   = "to_state"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Device Metrics
// -------------------------------------------------------------------------

// Collector holds all Broadlink Prometheus metrics. It implements
// broadlink.MetricsReporter, so a single Collector can be attached to
// any number of device handles and discovery sweeps.
type Collector struct {
	// CommandsSent counts transmitted command frames per device.
	CommandsSent *prometheus.CounterVec

	// Responses counts successfully parsed responses per device.
	Responses *prometheus.CounterVec

	// Timeouts counts requests that exhausted their retry budget.
	Timeouts *prometheus.CounterVec

	// DeviceErrors counts non-zero firmware error codes per device,
	// labeled with the hex code. Includes the 0xfff6 soft error.
	DeviceErrors *prometheus.CounterVec

	// AuthFailures counts failed auth handshakes per device.
	AuthFailures *prometheus.CounterVec

	// Discovered counts devices surfaced by discovery, per family.
	Discovered *prometheus.CounterVec

	// LearnTransitions counts learning FSM state changes, labeled with
	// the old and new state.
	LearnTransitions *prometheus.CounterVec
}

// NewCollector creates a Collector with all metrics registered against
// the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.CommandsSent,
		c.Responses,
		c.Timeouts,
		c.DeviceErrors,
		c.AuthFailures,
		c.Discovered,
		c.LearnTransitions,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering
// them.
func newMetrics() *Collector {
	hostLabels := []string{labelHost}

	return &Collector{
		CommandsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_sent_total",
			Help:      "Total command frames transmitted.",
		}, hostLabels),

		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "responses_total",
			Help:      "Total responses parsed and decrypted successfully.",
		}, hostLabels),

		Timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "timeouts_total",
			Help:      "Total requests that timed out after all retries.",
		}, hostLabels),

		DeviceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total non-zero firmware error codes received.",
		}, []string{labelHost, labelCode}),

		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "auth_failures_total",
			Help:      "Total failed authentication handshakes.",
		}, hostLabels),

		Discovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "discovered_total",
			Help:      "Total devices surfaced by discovery sweeps.",
		}, []string{labelFamily}),

		LearnTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "learn_transitions_total",
			Help:      "Total learning-mode state machine transitions.",
		}, []string{labelHost, labelFromState, labelToState}),
	}
}

// -------------------------------------------------------------------------
// broadlink.MetricsReporter implementation
// -------------------------------------------------------------------------

// IncCommandsSent increments the transmitted frame counter.
func (c *Collector) IncCommandsSent(host string) {
	c.CommandsSent.WithLabelValues(host).Inc()
}

// IncResponses increments the parsed response counter.
func (c *Collector) IncResponses(host string) {
	c.Responses.WithLabelValues(host).Inc()
}

// IncTimeouts increments the timeout counter.
func (c *Collector) IncTimeouts(host string) {
	c.Timeouts.WithLabelValues(host).Inc()
}

// IncDeviceErrors increments the firmware error counter, rendering the
// code as four hex digits.
func (c *Collector) IncDeviceErrors(host string, code uint16) {
	c.DeviceErrors.WithLabelValues(host, fmt.Sprintf("%04x", code)).Inc()
}

// IncAuthFailures increments the failed handshake counter.
func (c *Collector) IncAuthFailures(host string) {
	c.AuthFailures.WithLabelValues(host).Inc()
}

// IncDiscovered increments the discovered device counter.
func (c *Collector) IncDiscovered(family string) {
	c.Discovered.WithLabelValues(family).Inc()
}

// RecordLearnTransition increments the learning FSM transition counter.
func (c *Collector) RecordLearnTransition(host, from, to string) {
	c.LearnTransitions.WithLabelValues(host, from, to).Inc()
}
