package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	admissionDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "admission_decisions_total",
			Help:      "Admission decisions by outcome.",
		},
		[]string{"outcome"},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stolik",
			Name:      "status_transitions_total",
			Help:      "Reservation status transitions by target status.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, admissionDecisions, statusTransitions)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncAdmission increments the admission counter for an outcome label
// (admitted, invalid_interval, resource_unavailable, capacity_exceeded,
// slot_conflict, error).
func IncAdmission(outcome string) {
	admissionDecisions.WithLabelValues(outcome).Inc()
}

// IncTransition increments the transition counter for a terminal status.
func IncTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}
