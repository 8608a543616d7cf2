package services

import "github.com/prometheus/client_golang/prometheus"

// Domain counters. HTTP-level metrics live in the middleware package.
var (
	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentme_booking_transitions_total",
			Help: "Booking status transitions applied, by target status.",
		},
		[]string{"status"},
	)

	notificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentme_notifications_total",
			Help: "Best-effort notification dispatches, by type and result.",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(bookingTransitions, notificationsDispatched)
}
