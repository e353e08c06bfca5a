package broadlink

// MetricsReporter receives protocol-level events for instrumentation.
// The prometheus-backed implementation lives in internal/metrics; the
// library itself only depends on this interface.
type MetricsReporter interface {
	// IncCommandsSent is called once per transmitted command frame.
	IncCommandsSent(host string)

	// IncResponses is called once per successfully parsed response.
	IncResponses(host string)

	// IncTimeouts is called when a request exhausts its retry budget.
	IncTimeouts(host string)

	// IncDeviceErrors is called when a response carries a non-zero
	// firmware error code. The 0xFFF6 soft error is included.
	IncDeviceErrors(host string, code uint16)

	// IncAuthFailures is called when the auth handshake fails.
	IncAuthFailures(host string)

	// IncDiscovered is called once per device surfaced by discovery.
	IncDiscovered(family string)

	// RecordLearnTransition is called on each learning FSM state change
	// made by the Device learning operations.
	RecordLearnTransition(host, from, to string)
}

// noopMetrics is the default reporter when no collector is configured.
type noopMetrics struct{}

func (noopMetrics) IncCommandsSent(string)                       {}
func (noopMetrics) IncResponses(string)                          {}
func (noopMetrics) IncTimeouts(string)                           {}
func (noopMetrics) IncDeviceErrors(string, uint16)               {}
func (noopMetrics) IncAuthFailures(string)                       {}
func (noopMetrics) IncDiscovered(string)                         {}
func (noopMetrics) RecordLearnTransition(string, string, string) {}
