// Package ranking turns a trip request and a fleet snapshot into a
// profit-ordered list of candidate vehicles.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ukydev/fleet-booking/internal/clock"
	"github.com/ukydev/fleet-booking/internal/costing"
	"github.com/ukydev/fleet-booking/internal/metrics"
	"github.com/ukydev/fleet-booking/internal/models"
)

const statusAvailableNow = "Available now"

// Snapshotter provides a read-only view of the fleet ordered by id.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]models.Vehicle, error)
}

// Ranker computes ranking reports. It never mutates the fleet.
type Ranker struct {
	fleet   Snapshotter
	metrics metrics.Recorder
}

// New returns a Ranker over fleet. A nil recorder disables metrics.
func New(fleet Snapshotter, rec metrics.Recorder) *Ranker {
	if rec == nil {
		rec = metrics.NopRecorder{}
	}
	return &Ranker{fleet: fleet, metrics: rec}
}

// Rank prices req against every vehicle that is free at now and returns the
// results by profit, highest first. Vehicles with equal profit keep their
// fleet order.
func (r *Ranker) Rank(ctx context.Context, req models.TripRequest, now time.Time) (*models.Ranking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()

	vehicles, err := r.fleet.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot fleet: %w", err)
	}

	combinations := make([]models.Combination, 0, len(vehicles))
	for _, v := range vehicles {
		if v.OnRoute && v.AvailableFrom.After(now) {
			continue
		}
		res, ok := costing.Cost(v.FuelType, v.Seats, req.Distance, req.Passengers)
		if !ok {
			continue
		}
		combinations = append(combinations, models.Combination{
			VehicleID:         v.ID,
			LicensePlate:      v.LicensePlateNumber,
			CarBrand:          v.CarBrand,
			FuelType:          v.FuelType,
			Seats:             v.Seats,
			TravelTimeMinutes: res.TravelTimeMinutes,
			ActualDistance:    res.ActualDistance,
			Revenue:           res.Revenue,
			Costs:             res.Cost,
			Profit:            res.Profit,
			CurrentStatus:     status(v, now.Location()),
		})
	}
	sort.SliceStable(combinations, func(i, j int) bool {
		return combinations[i].Profit > combinations[j].Profit
	})

	r.metrics.ObserveRanking(len(combinations), time.Since(started))

	return &models.Ranking{
		RequestDetails: models.RequestDetails{
			Passengers: req.Passengers,
			Distance:   req.Distance,
			QueryTime:  clock.Format(now),
		},
		Combinations: combinations,
	}, nil
}

// status describes when v can start a trip. A vehicle still flagged on route
// after its return time reports that past instant.
func status(v models.Vehicle, loc *time.Location) string {
	if !v.OnRoute {
		return statusAvailableNow
	}
	return "Available from " + clock.Format(v.AvailableFrom.In(loc))
}
