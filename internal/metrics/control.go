// Package metrics provides Prometheus metrics for the control plane and the
// RTSP mounts it configures.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rpirtspd"

// Directive outcomes.
const (
	OutcomeApplied            = "applied"
	OutcomeReset              = "reset"
	OutcomeSelect             = "select"
	OutcomeMalformed          = "malformed"
	OutcomeUnknownParameter   = "unknown_parameter"
	OutcomeNoActiveInstance   = "no_active_instance"
	OutcomeStageNotFound      = "stage_not_found"
	OutcomeTypeCoercionFailed = "type_coercion_failed"
)

var (
	controlCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control",
		Name:      "commands_total",
		Help:      "Configuration commands received, by source",
	}, []string{"source"})

	controlDirectives = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control",
		Name:      "directives_total",
		Help:      "Directives processed, by outcome",
	}, []string{"outcome"})

	controlStoredOptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "control",
		Name:      "stored_options",
		Help:      "Options currently held for replay",
	})

	controlReplayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control",
		Name:      "replayed_total",
		Help:      "Stored options re-applied to new instances",
	}, []string{"stream"})
)

// IncCommand counts one command from source (http, nats, file, cli).
func IncCommand(source string) {
	controlCommands.WithLabelValues(source).Inc()
}

// IncDirective counts one processed directive.
func IncDirective(outcome string) {
	controlDirectives.WithLabelValues(outcome).Inc()
}

// SetStoredOptions sets the current option store size.
func SetStoredOptions(n int) {
	controlStoredOptions.Set(float64(n))
}

// AddReplayed counts options re-applied onto a new instance of stream.
func AddReplayed(stream string, n int) {
	controlReplayed.WithLabelValues(stream).Add(float64(n))
}
