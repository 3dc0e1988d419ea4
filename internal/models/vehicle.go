package models

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/ukydev/fleet-booking/internal/clock"
)

// FuelType is the propulsion category of a vehicle.
type FuelType string

const (
	FuelTypeFuel   FuelType = "fuel"
	FuelTypeHybrid FuelType = "hybrid"
)

// IsValid reports whether f is a known fuel type.
func (f FuelType) IsValid() bool {
	switch f {
	case FuelTypeFuel, FuelTypeHybrid:
		return true
	default:
		return false
	}
}

// Vehicle represents a bookable fleet vehicle.
type Vehicle struct {
	ID                 int64     `bson:"_id" json:"id"`
	FuelType           FuelType  `bson:"fuel_type" json:"fuel_type"`
	Range              int       `bson:"range" json:"range"`       // km on a full tank
	Distance           int       `bson:"distance" json:"distance"` // max trip distance in km
	Seats              int       `bson:"seats" json:"seats"`
	LicensePlateNumber string    `bson:"license_plate_number" json:"license_plate_number"`
	CarBrand           string    `bson:"car_brand" json:"car_brand"`
	DriverName         string    `bson:"driver_name" json:"driver_name"`
	OnRoute            bool      `bson:"on_route" json:"on_route"`
	AvailableFrom      time.Time `bson:"available_from" json:"available_from"`
}

// MarshalJSON renders AvailableFrom in the wire layout.
func (v Vehicle) MarshalJSON() ([]byte, error) {
	type alias Vehicle
	return json.Marshal(struct {
		alias
		AvailableFrom string `json:"available_from"`
	}{
		alias:         alias(v),
		AvailableFrom: clock.Format(v.AvailableFrom),
	})
}

// Idle reports whether the vehicle is free for reservation.
func (v Vehicle) Idle() bool { return !v.OnRoute }

// VehicleAttributes carries the caller-supplied vehicle fields. A nil field
// was not supplied.
type VehicleAttributes struct {
	FuelType           *FuelType `json:"fuel_type,omitempty"`
	Range              *int      `json:"range,omitempty"`
	Distance           *int      `json:"distance,omitempty"`
	Seats              *int      `json:"seats,omitempty"`
	LicensePlateNumber *string   `json:"license_plate_number,omitempty"`
	CarBrand           *string   `json:"car_brand,omitempty"`
	DriverName         *string   `json:"driver_name,omitempty"`
	OnRoute            *bool     `json:"on_route,omitempty"`
}

// ValidateForCreate checks that every required attribute is present and sane.
func (a VehicleAttributes) ValidateForCreate() error {
	switch {
	case a.FuelType == nil:
		return NewValidationError("fuel_type", "fuel_type is required")
	case a.Range == nil:
		return NewValidationError("range", "range is required")
	case a.Distance == nil:
		return NewValidationError("distance", "distance is required")
	case a.Seats == nil:
		return NewValidationError("seats", "seats is required")
	case a.LicensePlateNumber == nil || *a.LicensePlateNumber == "":
		return NewValidationError("license_plate_number", "license_plate_number is required")
	case a.CarBrand == nil || *a.CarBrand == "":
		return NewValidationError("car_brand", "car_brand is required")
	case a.DriverName == nil || *a.DriverName == "":
		return NewValidationError("driver_name", "driver_name is required")
	}
	return a.validateValues()
}

// ValidateForUpdate checks the supplied attributes only.
func (a VehicleAttributes) ValidateForUpdate() error {
	if a.CarBrand != nil && *a.CarBrand == "" {
		return NewValidationError("car_brand", "car_brand must not be empty")
	}
	if a.DriverName != nil && *a.DriverName == "" {
		return NewValidationError("driver_name", "driver_name must not be empty")
	}
	return a.validateValues()
}

func (a VehicleAttributes) validateValues() error {
	if a.FuelType != nil && !a.FuelType.IsValid() {
		return NewValidationError("fuel_type", "fuel_type must be %q or %q", FuelTypeFuel, FuelTypeHybrid)
	}
	if a.Range != nil && *a.Range < 0 {
		return NewValidationError("range", "range must not be negative")
	}
	if a.Distance != nil && *a.Distance < 0 {
		return NewValidationError("distance", "distance must not be negative")
	}
	if a.Seats != nil && *a.Seats < 1 {
		return NewValidationError("seats", "seats must be at least 1")
	}
	return nil
}

// NewVehicle builds an idle vehicle from validated create attributes.
func (a VehicleAttributes) NewVehicle(now time.Time) Vehicle {
	v := Vehicle{
		FuelType:           *a.FuelType,
		Range:              *a.Range,
		Distance:           *a.Distance,
		Seats:              *a.Seats,
		LicensePlateNumber: *a.LicensePlateNumber,
		CarBrand:           *a.CarBrand,
		DriverName:         *a.DriverName,
		AvailableFrom:      now,
	}
	if a.OnRoute != nil {
		v.OnRoute = *a.OnRoute
	}
	return v
}

// Apply copies the supplied attributes onto v. The license plate is never
// changed by an update.
func (a VehicleAttributes) Apply(v *Vehicle) {
	if a.FuelType != nil {
		v.FuelType = *a.FuelType
	}
	if a.Range != nil {
		v.Range = *a.Range
	}
	if a.Distance != nil {
		v.Distance = *a.Distance
	}
	if a.Seats != nil {
		v.Seats = *a.Seats
	}
	if a.CarBrand != nil {
		v.CarBrand = *a.CarBrand
	}
	if a.DriverName != nil {
		v.DriverName = *a.DriverName
	}
	if a.OnRoute != nil {
		v.OnRoute = *a.OnRoute
	}
}

// Selector locates a vehicle by id or, when no id is given, by license plate.
type Selector struct {
	ID           *int64
	LicensePlate string
}

// ByID selects a vehicle by identifier.
func ByID(id int64) Selector { return Selector{ID: &id} }

// ByPlate selects a vehicle by license plate.
func ByPlate(plate string) Selector { return Selector{LicensePlate: plate} }

// Validate requires one of id or plate.
func (s Selector) Validate() error {
	if s.ID == nil && s.LicensePlate == "" {
		return NewValidationError("id", "either id or license_plate_number is required")
	}
	return nil
}

func (s Selector) String() string {
	if s.ID != nil {
		return strconv.FormatInt(*s.ID, 10)
	}
	return s.LicensePlate
}
