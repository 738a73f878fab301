// Package metrics provides Prometheus instrumentation for the modem, the
// registration monitor and the PDP monitor.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/simensrostad/mailpal/at"
)

// Metrics holds all collectors exported by the daemon.
type Metrics struct {
	// AT channel metrics
	ATCommands        *prometheus.CounterVec
	ATCommandDuration *prometheus.HistogramVec
	URCsDropped       prometheus.Counter

	// Registration metrics
	RegistrationStatus  prometheus.Gauge
	RegistrationChanges *prometheus.CounterVec

	// PDP metrics
	PDPActivations *prometheus.CounterVec
	PDPActive      prometheus.Gauge
}

// New creates and registers all collectors on reg under the given namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "mailpal"
	}
	factory := promauto.With(reg)

	return &Metrics{
		ATCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "at_commands_total",
				Help:      "Total number of AT commands exchanged with the modem",
			},
			[]string{"command", "result"},
		),
		ATCommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "at_command_duration_seconds",
				Help:      "AT command round trip time in seconds",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2, 5, 10},
			},
			[]string{"command"},
		),
		URCsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "urcs_dropped_total",
				Help:      "Unsolicited result codes dropped because no consumer kept up",
			},
		),
		RegistrationStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registration_status",
				Help:      "Last observed CEREG status code (0-5)",
			},
		),
		RegistrationChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registration_changes_total",
				Help:      "Registration status changes by new status",
			},
			[]string{"status"},
		),
		PDPActivations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pdp_activations_total",
				Help:      "PDP context activation attempts by result",
			},
			[]string{"result"},
		),
		PDPActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pdp_active",
				Help:      "1 when the PDP context is active with an address, 0 otherwise",
			},
		),
	}
}

// CommandDone records one completed AT exchange.
func (m *Metrics) CommandDone(cmd string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	name := at.CommandName(cmd)
	if name == "" {
		name = cmd
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ATCommands.WithLabelValues(name, result).Inc()
	m.ATCommandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// URCDropped records a URC that could not be delivered.
func (m *Metrics) URCDropped() {
	if m == nil {
		return
	}
	m.URCsDropped.Inc()
}

// RegistrationChanged records a deduplicated registration change.
func (m *Metrics) RegistrationChanged(code uint8, name string) {
	if m == nil {
		return
	}
	m.RegistrationStatus.Set(float64(code))
	m.RegistrationChanges.WithLabelValues(name).Inc()
}

// Activation records the outcome of a PDP activation attempt.
// result is one of "activated", "already_active", "failed" or "refreshed".
func (m *Metrics) Activation(result string) {
	if m == nil {
		return
	}
	m.PDPActivations.WithLabelValues(result).Inc()
}

// PDPState records whether a context is currently active.
func (m *Metrics) PDPState(active bool) {
	if m == nil {
		return
	}
	if active {
		m.PDPActive.Set(1)
		return
	}
	m.PDPActive.Set(0)
}
