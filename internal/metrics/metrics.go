// Package metrics records booking activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a reservation or release attempt.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Recorder receives booking measurements.
type Recorder interface {
	ObserveReservation(outcome string)
	ObserveRelease(outcome string)
	ObserveRanking(combinations int, elapsed time.Duration)
	SetFleetSize(idle, onRoute int)
}

// NopRecorder drops every measurement.
type NopRecorder struct{}

func (NopRecorder) ObserveReservation(string)         {}
func (NopRecorder) ObserveRelease(string)             {}
func (NopRecorder) ObserveRanking(int, time.Duration) {}
func (NopRecorder) SetFleetSize(int, int)             {}

// PromRecorder exposes booking measurements as Prometheus collectors.
type PromRecorder struct {
	reservations *prometheus.CounterVec
	releases     *prometheus.CounterVec
	rankingTime  prometheus.Histogram
	combinations prometheus.Histogram
	fleet        *prometheus.GaugeVec
}

// NewPromRecorder registers the booking collectors on reg. If reg is nil the
// default registerer is used. Already registered collectors are reused.
func NewPromRecorder(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_reservations_total",
		Help: "Reservation attempts by outcome",
	}, []string{"outcome"})
	releases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_releases_total",
		Help: "Early release attempts by outcome",
	}, []string{"outcome"})
	rankingTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleet_ranking_duration_seconds",
		Help:    "Time spent building a combination ranking",
		Buckets: prometheus.DefBuckets,
	})
	combinations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleet_ranking_combinations",
		Help:    "Number of eligible vehicles per ranking",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})
	fleet := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleet_vehicles",
		Help: "Vehicles by availability state as of the last fleet listing",
	}, []string{"state"})

	var err error
	if reservations, err = register(reg, reservations); err != nil {
		return nil, err
	}
	if releases, err = register(reg, releases); err != nil {
		return nil, err
	}
	if rankingTime, err = register(reg, rankingTime); err != nil {
		return nil, err
	}
	if combinations, err = register(reg, combinations); err != nil {
		return nil, err
	}
	if fleet, err = register(reg, fleet); err != nil {
		return nil, err
	}
	return &PromRecorder{
		reservations: reservations,
		releases:     releases,
		rankingTime:  rankingTime,
		combinations: combinations,
		fleet:        fleet,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (r *PromRecorder) ObserveReservation(outcome string) {
	r.reservations.WithLabelValues(outcome).Inc()
}

func (r *PromRecorder) ObserveRelease(outcome string) {
	r.releases.WithLabelValues(outcome).Inc()
}

func (r *PromRecorder) ObserveRanking(combinations int, elapsed time.Duration) {
	r.combinations.Observe(float64(combinations))
	r.rankingTime.Observe(elapsed.Seconds())
}

func (r *PromRecorder) SetFleetSize(idle, onRoute int) {
	r.fleet.WithLabelValues("idle").Set(float64(idle))
	r.fleet.WithLabelValues("on_route").Set(float64(onRoute))
}
