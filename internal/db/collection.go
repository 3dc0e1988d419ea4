package db

import (
	"context"
	"time"

	"github.com/ukydev/fleet-booking/internal/models"
)

// VehicleCollection defines the storage operations the booking core needs.
// Every method is a single atomic step against the store.
type VehicleCollection interface {
	// InsertVehicle assigns an id and stores v. Returns models.ErrDuplicatePlate
	// when the license plate is taken.
	InsertVehicle(ctx context.Context, v models.Vehicle) (*models.Vehicle, error)
	// FindVehicles returns every vehicle ordered by id.
	FindVehicles(ctx context.Context) ([]models.Vehicle, error)
	FindVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error)
	FindVehicleByPlate(ctx context.Context, plate string) (*models.Vehicle, error)
	// UpdateVehicle applies the supplied attributes and sets available_from to at.
	UpdateVehicle(ctx context.Context, id int64, attrs models.VehicleAttributes, at time.Time) (*models.Vehicle, error)
	DeleteVehicle(ctx context.Context, id int64) error
	// RefreshIdleVehicles sets available_from to at on every vehicle that is not on route.
	RefreshIdleVehicles(ctx context.Context, at time.Time) error
	// MarkOnRoute puts an idle vehicle on route until the given instant.
	// Returns models.ErrVehicleOnRoute when the vehicle is already on route.
	MarkOnRoute(ctx context.Context, plate string, until time.Time) (*models.Vehicle, error)
	// MarkIdle takes a vehicle off route, available from at.
	MarkIdle(ctx context.Context, plate string, at time.Time) (*models.Vehicle, error)
}
