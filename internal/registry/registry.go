// Package registry owns the fleet and the availability state machine of each
// vehicle. A vehicle is Idle (on_route false) or OnRoute (on_route true, busy
// until available_from). Reserve moves Idle to OnRoute, Release moves any
// vehicle back to Idle.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-booking/internal/clock"
	"github.com/ukydev/fleet-booking/internal/costing"
	"github.com/ukydev/fleet-booking/internal/db"
	"github.com/ukydev/fleet-booking/internal/events"
	"github.com/ukydev/fleet-booking/internal/metrics"
	"github.com/ukydev/fleet-booking/internal/models"
)

// Registry is the vehicle registry.
type Registry struct {
	vehicles db.VehicleCollection
	clock    clock.Clock
	events   events.Publisher
	metrics  metrics.Recorder
	logger   *log.Entry
}

// Option customizes a Registry.
type Option func(*Registry)

// WithPublisher announces committed changes on p.
func WithPublisher(p events.Publisher) Option {
	return func(r *Registry) { r.events = p }
}

// WithRecorder records reservation activity on m.
func WithRecorder(m metrics.Recorder) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Entry) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates a Registry backed by vehicles.
func New(vehicles db.VehicleCollection, c clock.Clock, opts ...Option) *Registry {
	r := &Registry{
		vehicles: vehicles,
		clock:    c,
		events:   events.NopPublisher{},
		metrics:  metrics.NopRecorder{},
		logger:   log.WithField("component", "registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns every vehicle ordered by id. Idle vehicles have their
// available_from refreshed to now, and the refresh is persisted, so calling
// List twice moves idle timestamps forward each time.
func (r *Registry) List(ctx context.Context) ([]models.Vehicle, error) {
	now := r.clock.Now()
	if err := r.vehicles.RefreshIdleVehicles(ctx, now); err != nil {
		return nil, fmt.Errorf("refresh idle vehicles: %w", err)
	}
	vehicles, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	idle := 0
	for _, v := range vehicles {
		if v.Idle() {
			idle++
		}
	}
	r.metrics.SetFleetSize(idle, len(vehicles)-idle)
	return vehicles, nil
}

// Snapshot returns every vehicle ordered by id without touching the store.
func (r *Registry) Snapshot(ctx context.Context) ([]models.Vehicle, error) {
	vehicles, err := r.vehicles.FindVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("find vehicles: %w", err)
	}
	for i := range vehicles {
		r.normalize(&vehicles[i])
	}
	return vehicles, nil
}

// Create registers a new vehicle, available from now.
func (r *Registry) Create(ctx context.Context, attrs models.VehicleAttributes) (*models.Vehicle, error) {
	if err := attrs.ValidateForCreate(); err != nil {
		return nil, err
	}
	now := r.clock.Now()
	v, err := r.vehicles.InsertVehicle(ctx, attrs.NewVehicle(now))
	if err != nil {
		if errors.Is(err, models.ErrDuplicatePlate) {
			return nil, &models.ValidationError{
				Field:   "license_plate_number",
				Message: fmt.Sprintf("license plate number %s already exists", *attrs.LicensePlateNumber),
				Err:     err,
			}
		}
		return nil, fmt.Errorf("insert vehicle: %w", err)
	}
	r.normalize(v)
	r.logger.WithFields(log.Fields{
		"vehicle_id":    v.ID,
		"license_plate": v.LicensePlateNumber,
		"fuel_type":     v.FuelType,
		"seats":         v.Seats,
	}).Info("Created vehicle")
	r.publish(ctx, events.VehicleCreated, *v, now)
	return v, nil
}

// Update applies the supplied attributes to the selected vehicle and resets
// its available_from to now.
func (r *Registry) Update(ctx context.Context, sel models.Selector, attrs models.VehicleAttributes) (*models.Vehicle, error) {
	if err := attrs.ValidateForUpdate(); err != nil {
		return nil, err
	}
	current, err := r.resolve(ctx, sel)
	if err != nil {
		return nil, err
	}
	now := r.clock.Now()
	v, err := r.vehicles.UpdateVehicle(ctx, current.ID, attrs, now)
	if err != nil {
		return nil, fmt.Errorf("update vehicle %d: %w", current.ID, err)
	}
	r.normalize(v)
	r.logger.WithFields(log.Fields{
		"vehicle_id":    v.ID,
		"license_plate": v.LicensePlateNumber,
		"on_route":      v.OnRoute,
	}).Info("Updated vehicle")
	r.publish(ctx, events.VehicleUpdated, *v, now)
	return v, nil
}

// Delete removes the selected vehicle permanently.
func (r *Registry) Delete(ctx context.Context, sel models.Selector) (*models.Deletion, error) {
	v, err := r.resolve(ctx, sel)
	if err != nil {
		return nil, err
	}
	if err := r.vehicles.DeleteVehicle(ctx, v.ID); err != nil {
		return nil, fmt.Errorf("delete vehicle %d: %w", v.ID, err)
	}
	r.logger.WithFields(log.Fields{
		"vehicle_id":    v.ID,
		"license_plate": v.LicensePlateNumber,
	}).Info("Deleted vehicle")
	r.publish(ctx, events.VehicleDeleted, *v, r.clock.Now())
	return &models.Deletion{Selector: sel, Vehicle: *v}, nil
}

// Reserve puts an idle vehicle on route for a trip of distanceKm. A vehicle
// that is already on route yields a *models.ConflictError carrying the
// instant it becomes free.
func (r *Registry) Reserve(ctx context.Context, plate string, distanceKm int) (*models.TripDetails, error) {
	trip, err := r.reserve(ctx, plate, distanceKm)
	r.metrics.ObserveReservation(outcome(err))
	return trip, err
}

func (r *Registry) reserve(ctx context.Context, plate string, distanceKm int) (*models.TripDetails, error) {
	if distanceKm <= 0 {
		return nil, models.NewValidationError("distance", "Please provide distance parameter")
	}
	if err := models.ValidateTripDistance(distanceKm); err != nil {
		return nil, err
	}
	if plate == "" {
		return nil, models.NewValidationError("license_plate_number", "license_plate_number is required")
	}
	current, err := r.vehicles.FindVehicleByPlate(ctx, plate)
	if err != nil {
		return nil, fmt.Errorf("find vehicle %s: %w", plate, err)
	}
	r.normalize(current)
	if current.OnRoute {
		return nil, &models.ConflictError{LicensePlate: plate, AvailableFrom: current.AvailableFrom}
	}

	start := r.clock.Now()
	travel, actual := costing.Timing(current.FuelType, distanceKm)
	until := start.Add(time.Duration(travel) * time.Minute)

	v, err := r.vehicles.MarkOnRoute(ctx, plate, until)
	if errors.Is(err, models.ErrVehicleOnRoute) {
		// Lost a race with a concurrent reservation.
		winner, ferr := r.vehicles.FindVehicleByPlate(ctx, plate)
		if ferr != nil {
			return nil, fmt.Errorf("find vehicle %s: %w", plate, ferr)
		}
		r.normalize(winner)
		return nil, &models.ConflictError{LicensePlate: plate, AvailableFrom: winner.AvailableFrom}
	}
	if err != nil {
		return nil, fmt.Errorf("reserve vehicle %s: %w", plate, err)
	}
	r.normalize(v)

	r.logger.WithFields(log.Fields{
		"license_plate":       plate,
		"distance_km":         distanceKm,
		"travel_time_minutes": travel,
		"available_from":      clock.Format(v.AvailableFrom),
	}).Info("Vehicle set on route")
	r.publish(ctx, events.VehicleReserved, *v, start)

	return &models.TripDetails{
		LicensePlate:      plate,
		StartTime:         start,
		TravelTimeMinutes: travel,
		ActualDistance:    actual,
		WillBeAvailable:   v.AvailableFrom,
	}, nil
}

// Release returns a vehicle to the idle pool immediately, whatever its
// scheduled return time.
func (r *Registry) Release(ctx context.Context, plate string) (*models.Release, error) {
	rel, err := r.release(ctx, plate)
	r.metrics.ObserveRelease(outcome(err))
	return rel, err
}

func (r *Registry) release(ctx context.Context, plate string) (*models.Release, error) {
	if plate == "" {
		return nil, models.NewValidationError("license_plate_number", "license_plate_number is required")
	}
	now := r.clock.Now()
	v, err := r.vehicles.MarkIdle(ctx, plate, now)
	if err != nil {
		return nil, fmt.Errorf("release vehicle %s: %w", plate, err)
	}
	r.normalize(v)
	r.logger.WithFields(log.Fields{
		"license_plate":  plate,
		"available_from": clock.Format(v.AvailableFrom),
	}).Info("Vehicle released")
	r.publish(ctx, events.VehicleReleased, *v, now)
	return &models.Release{LicensePlate: plate, AvailableFrom: v.AvailableFrom}, nil
}

// resolve looks a vehicle up by id when one is given, else by plate.
func (r *Registry) resolve(ctx context.Context, sel models.Selector) (*models.Vehicle, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	var (
		v   *models.Vehicle
		err error
	)
	if sel.ID != nil {
		v, err = r.vehicles.FindVehicleByID(ctx, *sel.ID)
	} else {
		v, err = r.vehicles.FindVehicleByPlate(ctx, sel.LicensePlate)
	}
	if err != nil {
		return nil, fmt.Errorf("find vehicle %s: %w", sel, err)
	}
	r.normalize(v)
	return v, nil
}

// normalize moves stored timestamps into the fleet timezone.
func (r *Registry) normalize(v *models.Vehicle) {
	v.AvailableFrom = v.AvailableFrom.In(r.clock.Location())
}

func (r *Registry) publish(ctx context.Context, t events.Type, v models.Vehicle, at time.Time) {
	if err := r.events.Publish(ctx, events.NewVehicleEvent(t, v, at)); err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"event":         t,
			"license_plate": v.LicensePlateNumber,
		}).Warn("Failed to publish vehicle event")
	}
}

func outcome(err error) string {
	var (
		verr *models.ValidationError
		cerr *models.ConflictError
	)
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &cerr):
		return metrics.OutcomeConflict
	case errors.Is(err, models.ErrVehicleNotFound):
		return metrics.OutcomeNotFound
	case errors.As(err, &verr):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
