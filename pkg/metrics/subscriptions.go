package metrics

import "github.com/prometheus/client_golang/prometheus"

// SubscriptionMetrics counts committed lifecycle transitions and pin attempts.
type SubscriptionMetrics struct {
	transitions *prometheus.CounterVec
	pins        *prometheus.CounterVec
}

// NewSubscriptionMetrics registers the subscription metrics on reg. A nil
// registerer yields a no-op recorder.
func NewSubscriptionMetrics(reg prometheus.Registerer) *SubscriptionMetrics {
	if reg == nil {
		return &SubscriptionMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "subscriptions",
		Name:      "transitions_total",
		Help:      "Subscription lifecycle transitions by history action.",
	}, []string{"action"})
	pins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pins",
		Name:      "attempts_total",
		Help:      "Pin attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(transitions, pins)
	return &SubscriptionMetrics{transitions: transitions, pins: pins}
}

// IncTransition counts one committed transition.
func (m *SubscriptionMetrics) IncTransition(action string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncPin counts a pin attempt; outcome is e.g. "pinned", "replaced", "denied".
func (m *SubscriptionMetrics) IncPin(outcome string) {
	if m == nil || m.pins == nil {
		return
	}
	m.pins.WithLabelValues(normalizeLabel(outcome)).Inc()
}
