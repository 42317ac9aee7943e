package service

import "github.com/prometheus/client_golang/prometheus"

var (
	sagaTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "registration_saga_transitions_total",
		Help:      "Provider registration saga state transitions.",
	}, []string{"state"})

	sagaCompensationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "registration_compensation_failures_total",
		Help:      "Compensating actions that failed and may have left an orphan record.",
	})

	policyFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "policy_fallbacks_total",
		Help:      "Upstream failures tolerated by a fail-open call site.",
	}, []string{"call_site"})

	demandTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "demand_transitions_total",
		Help:      "Applied demand status transitions.",
	}, []string{"from", "to"})

	seedAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Name:      "conversation_seed_attempts_total",
		Help:      "Conversation seeding attempts after a demand is accepted.",
	}, []string{"outcome"})
)

// RegisterMetrics adds the service-level collectors to reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(sagaTransitions, sagaCompensationFailures, policyFallbacks, demandTransitions, seedAttempts)
}
