// Package events announces vehicle availability changes to downstream
// consumers such as dispatch boards and driver apps.
package events

import (
	"context"
	"time"

	"github.com/ukydev/fleet-booking/internal/clock"
	"github.com/ukydev/fleet-booking/internal/models"
)

// Type names a vehicle lifecycle change.
type Type string

const (
	VehicleCreated  Type = "created"
	VehicleUpdated  Type = "updated"
	VehicleDeleted  Type = "deleted"
	VehicleReserved Type = "reserved"
	VehicleReleased Type = "released"
)

// Event is the payload published for every committed change.
type Event struct {
	Type          Type   `json:"type"`
	VehicleID     int64  `json:"vehicle_id"`
	LicensePlate  string `json:"license_plate"`
	OnRoute       bool   `json:"on_route"`
	AvailableFrom string `json:"available_from"`
	OccurredAt    string `json:"occurred_at"`
}

// NewVehicleEvent snapshots v for publication.
func NewVehicleEvent(t Type, v models.Vehicle, at time.Time) Event {
	return Event{
		Type:          t,
		VehicleID:     v.ID,
		LicensePlate:  v.LicensePlateNumber,
		OnRoute:       v.OnRoute,
		AvailableFrom: clock.Format(v.AvailableFrom),
		OccurredAt:    clock.Format(at),
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close()                               {}
