package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	transitions   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	emitFailures  prometheus.Counter
	revertFailure prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what most tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sx",
				Name:      "transitions_total",
				Help:      "Counter of transitions by action and outcome.",
			}, []string{"action", "outcome"}),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sx",
				Name:      "transition_duration_seconds",
				Help:      "Bucketed histogram of transition execution time.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
			}, []string{"action"}),

		emitFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sx",
				Name:      "emit_failures_total",
				Help:      "Counter of committed transitions whose event could not be delivered.",
			}),

		revertFailure: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sx",
				Name:      "transfer_revert_failures_total",
				Help:      "Counter of transitions whose applied writes could not be reverted after a later write failed.",
			}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.duration, m.emitFailures, m.revertFailure)
	}
	return m
}

func (m *Metrics) observe(action string, started time.Time, err error) {
	m.transitions.WithLabelValues(action, Outcome(err)).Inc()
	m.duration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}
