package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "termin",
			Name:      "bookings_submitted_total",
			Help:      "Booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	moderationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "termin",
			Name:      "moderation_actions_total",
			Help:      "Admin moderation actions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	availabilityQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "termin",
			Name:      "availability_queries_total",
			Help:      "Availability resolutions served.",
		},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "termin",
			Name:      "availability_cache_lookups_total",
			Help:      "Availability cache lookups by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "termin",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsSubmitted,
			moderationActions,
			availabilityQueries,
			cacheLookups,
			httpRequests,
		)
	})
}

// IncSubmission increments the booking submission counter.
func IncSubmission(outcome string) {
	bookingsSubmitted.WithLabelValues(outcome).Inc()
}

// IncModeration increments the moderation action counter.
func IncModeration(action, outcome string) {
	moderationActions.WithLabelValues(action, outcome).Inc()
}

// IncAvailabilityQuery counts one served availability resolution.
func IncAvailabilityQuery() {
	availabilityQueries.Inc()
}

// IncCacheLookup records a cache hit or miss.
func IncCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
