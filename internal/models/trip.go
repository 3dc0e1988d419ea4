package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/ukydev/fleet-booking/internal/clock"
)

// TripRequest is a ranking query.
type TripRequest struct {
	Passengers int `json:"passengers"`
	Distance   int `json:"distance"` // in kilometers
}

// MaxDistanceKm is the longest trip whose travel time still fits in a
// time.Duration.
const MaxDistanceKm = int(math.MaxInt64 / int64(time.Minute))

// Validate requires both values to be positive.
func (r TripRequest) Validate() error {
	if r.Passengers <= 0 || r.Distance <= 0 {
		return NewValidationError("passengers", "Please provide both passengers and distance parameters")
	}
	return ValidateTripDistance(r.Distance)
}

// ValidateTripDistance rejects trips longer than MaxDistanceKm.
func ValidateTripDistance(km int) error {
	if km > MaxDistanceKm {
		return NewValidationError("distance", "distance must not exceed %d km", MaxDistanceKm)
	}
	return nil
}

// TripDetails describes a reservation that put a vehicle on route.
type TripDetails struct {
	LicensePlate      string    `json:"-"`
	StartTime         time.Time `json:"start_time"`
	TravelTimeMinutes int       `json:"travel_time_minutes"`
	ActualDistance    float64   `json:"actual_distance"`
	WillBeAvailable   time.Time `json:"will_be_available"`
}

// MarshalJSON renders the timestamps in the wire layout.
func (t TripDetails) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartTime         string  `json:"start_time"`
		TravelTimeMinutes int     `json:"travel_time_minutes"`
		ActualDistance    float64 `json:"actual_distance"`
		WillBeAvailable   string  `json:"will_be_available"`
	}{
		StartTime:         clock.Format(t.StartTime),
		TravelTimeMinutes: t.TravelTimeMinutes,
		ActualDistance:    t.ActualDistance,
		WillBeAvailable:   clock.Format(t.WillBeAvailable),
	})
}

// Release confirms that a vehicle was returned to the idle pool.
type Release struct {
	LicensePlate  string
	AvailableFrom time.Time
}

// Deletion confirms that a vehicle was removed.
type Deletion struct {
	Selector Selector
	Vehicle  Vehicle
}

// Message is the human readable confirmation.
func (d Deletion) Message() string {
	return "Vehicle with ID " + d.Selector.String() + " has been deleted."
}
