// Package metrics holds the Prometheus collectors for the matching lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reservation outcomes.
const (
	ReservationBooked   = "booked"
	ReservationConflict = "conflict"
)

// Metrics groups the domain collectors. A nil *Metrics records nothing.
type Metrics struct {
	matchTransitions *prometheus.CounterVec
	slotReservations *prometheus.CounterVec
	slotReleases     prometheus.Counter
}

// New registers the domain collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		matchTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coffee_matcher_match_requests_total",
				Help: "Match requests entering each status",
			},
			[]string{"status"},
		),
		slotReservations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coffee_matcher_slot_reservations_total",
				Help: "Time slot reservation attempts by outcome",
			},
			[]string{"result"},
		),
		slotReleases: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "coffee_matcher_slot_releases_total",
				Help: "Time slots released back to available",
			},
		),
	}
}

// MatchTransition counts a match request entering status.
func (m *Metrics) MatchTransition(status string) {
	if m == nil {
		return
	}
	m.matchTransitions.WithLabelValues(status).Inc()
}

// SlotReservation counts a reservation attempt outcome.
func (m *Metrics) SlotReservation(result string) {
	if m == nil {
		return
	}
	m.slotReservations.WithLabelValues(result).Inc()
}

// SlotReleased counts a booked slot made available again.
func (m *Metrics) SlotReleased() {
	if m == nil {
		return
	}
	m.slotReleases.Inc()
}
