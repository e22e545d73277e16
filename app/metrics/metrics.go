// Package metrics provides Prometheus metrics for account-service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts account flow operations.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "account",
			Name:      "operations_total",
			Help:      "Total number of account flow operations",
		},
		[]string{"operation", "outcome"},
	)

	// OperationDuration measures account flow duration.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "account",
			Name:      "operation_duration_seconds",
			Help:      "Duration of account flow operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// GatewayErrorsTotal counts identity provider failures by reason.
	GatewayErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "account",
			Name:      "gateway_errors_total",
			Help:      "Total number of identity provider errors",
		},
		[]string{"operation", "reason"},
	)

	// ConsistencyErrorsTotal counts identities left without a profile record.
	ConsistencyErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "account",
			Name:      "consistency_errors_total",
			Help:      "Total number of identities created without a profile record",
		},
	)

	// SubmitRejectedTotal counts submissions rejected while another was in flight.
	SubmitRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "account",
			Name:      "submit_rejected_total",
			Help:      "Total number of submissions rejected by the in-flight guard",
		},
		[]string{"form"},
	)

	// SessionAuthenticated tracks the observed session (1 = signed in, 0 = not).
	SessionAuthenticated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "account",
			Name:      "session_authenticated",
			Help:      "Observed session status (1 = authenticated, 0 = anonymous)",
		},
	)

	// AuthEventsTotal counts session change events seen by the observer.
	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "account",
			Name:      "auth_events_total",
			Help:      "Total number of session change events",
		},
		[]string{"type"},
	)

	// ProfileStoreConnections tracks the profile store pool by connection state.
	ProfileStoreConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "account",
			Name:      "profile_store_connections",
			Help:      "Profile store pool connections by state",
		},
		[]string{"state"},
	)

	// MigrationsApplied counts schema migrations applied or rolled back.
	MigrationsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "account",
			Name:      "migrations_total",
			Help:      "Total number of schema migrations run",
		},
		[]string{"direction"},
	)
)

// RecordOperation records a finished account flow.
func RecordOperation(operation, outcome string, duration float64) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordGatewayError records an identity provider failure.
func RecordGatewayError(operation, reason string) {
	GatewayErrorsTotal.WithLabelValues(operation, reason).Inc()
}

// RecordConsistencyError records an identity left without its profile.
func RecordConsistencyError() {
	ConsistencyErrorsTotal.Inc()
}

// RecordSubmitRejected records a rejected duplicate submission.
func RecordSubmitRejected(form string) {
	SubmitRejectedTotal.WithLabelValues(form).Inc()
}

// RecordAuthEvent records a session change event.
func RecordAuthEvent(eventType string) {
	AuthEventsTotal.WithLabelValues(eventType).Inc()
}

// SetSessionAuthenticated sets the observed session status.
func SetSessionAuthenticated(authenticated bool) {
	if authenticated {
		SessionAuthenticated.Set(1)
		return
	}
	SessionAuthenticated.Set(0)
}

// SetPoolConnections publishes the profile store pool occupancy.
func SetPoolConnections(acquired, idle, total int32) {
	ProfileStoreConnections.WithLabelValues("acquired").Set(float64(acquired))
	ProfileStoreConnections.WithLabelValues("idle").Set(float64(idle))
	ProfileStoreConnections.WithLabelValues("total").Set(float64(total))
}

// RecordMigration records one migration run in the given direction ("up" or "down").
func RecordMigration(direction string) {
	MigrationsApplied.WithLabelValues(direction).Inc()
}
