package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "space_reservation"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_created_total",
			Help:      "Reservations created in pending status.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "Create or reschedule attempts rejected because the slot overlaps an active reservation.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Committed reservation status transitions by target status.",
		},
		[]string{"to"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationsCreated, slotConflicts, transitions)
	})
}

// IncHTTP increments the request counter.
func IncHTTP(method, route string, status int) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// IncReservationCreated increments the created reservations counter.
func IncReservationCreated() {
	reservationsCreated.Inc()
}

// IncSlotConflict increments the slot conflict counter.
func IncSlotConflict() {
	slotConflicts.Inc()
}

// IncTransition increments the transition counter for the target status.
func IncTransition(to string) {
	transitions.WithLabelValues(to).Inc()
}
