package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validAttributes() VehicleAttributes {
	return VehicleAttributes{
		FuelType:           ptr(FuelTypeHybrid),
		Range:              ptr(600),
		Distance:           ptr(200),
		Seats:              ptr(4),
		LicensePlateNumber: ptr("AAA-001"),
		CarBrand:           ptr("Toyota"),
		DriverName:         ptr("Ana"),
	}
}

func TestFuelType_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		fuel     FuelType
		expected bool
	}{
		{"fuel", FuelTypeFuel, true},
		{"hybrid", FuelTypeHybrid, true},
		{"electric", "electric", false},
		{"empty", "", false},
		{"case sensitive", "Hybrid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.fuel.IsValid())
		})
	}
}

func TestVehicleAttributes_ValidateForCreate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(a *VehicleAttributes)
		field string
	}{
		{"valid", func(a *VehicleAttributes) {}, ""},
		{"missing fuel type", func(a *VehicleAttributes) { a.FuelType = nil }, "fuel_type"},
		{"unknown fuel type", func(a *VehicleAttributes) { a.FuelType = ptr(FuelType("diesel")) }, "fuel_type"},
		{"missing range", func(a *VehicleAttributes) { a.Range = nil }, "range"},
		{"negative range", func(a *VehicleAttributes) { a.Range = ptr(-1) }, "range"},
		{"zero range allowed", func(a *VehicleAttributes) { a.Range = ptr(0) }, ""},
		{"missing distance", func(a *VehicleAttributes) { a.Distance = nil }, "distance"},
		{"negative distance", func(a *VehicleAttributes) { a.Distance = ptr(-5) }, "distance"},
		{"missing seats", func(a *VehicleAttributes) { a.Seats = nil }, "seats"},
		{"zero seats", func(a *VehicleAttributes) { a.Seats = ptr(0) }, "seats"},
		{"missing plate", func(a *VehicleAttributes) { a.LicensePlateNumber = nil }, "license_plate_number"},
		{"empty plate", func(a *VehicleAttributes) { a.LicensePlateNumber = ptr("") }, "license_plate_number"},
		{"missing brand", func(a *VehicleAttributes) { a.CarBrand = nil }, "car_brand"},
		{"missing driver", func(a *VehicleAttributes) { a.DriverName = nil }, "driver_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAttributes()
			tt.edit(&a)
			err := a.ValidateForCreate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.NotEmpty(t, verr.Error())
		})
	}
}

func TestVehicleAttributes_ValidateForUpdate(t *testing.T) {
	assert.NoError(t, VehicleAttributes{}.ValidateForUpdate())
	assert.NoError(t, VehicleAttributes{Seats: ptr(7)}.ValidateForUpdate())
	assert.Error(t, VehicleAttributes{Seats: ptr(0)}.ValidateForUpdate())
	assert.Error(t, VehicleAttributes{CarBrand: ptr("")}.ValidateForUpdate())
	assert.Error(t, VehicleAttributes{FuelType: ptr(FuelType("steam"))}.ValidateForUpdate())
}

func TestVehicleAttributes_NewVehicle(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	v := validAttributes().NewVehicle(now)

	assert.Equal(t, FuelTypeHybrid, v.FuelType)
	assert.Equal(t, 600, v.Range)
	assert.Equal(t, 200, v.Distance)
	assert.Equal(t, 4, v.Seats)
	assert.Equal(t, "AAA-001", v.LicensePlateNumber)
	assert.False(t, v.OnRoute)
	assert.True(t, v.Idle())
	assert.Equal(t, now, v.AvailableFrom)

	a := validAttributes()
	a.OnRoute = ptr(true)
	assert.True(t, a.NewVehicle(now).OnRoute)
}

func TestVehicleAttributes_ApplyIsPartial(t *testing.T) {
	v := validAttributes().NewVehicle(time.Now())
	VehicleAttributes{
		Seats:              ptr(7),
		DriverName:         ptr("Ion"),
		LicensePlateNumber: ptr("ZZZ-999"),
	}.Apply(&v)

	assert.Equal(t, 7, v.Seats)
	assert.Equal(t, "Ion", v.DriverName)
	assert.Equal(t, "AAA-001", v.LicensePlateNumber)
	assert.Equal(t, "Toyota", v.CarBrand)
	assert.Equal(t, FuelTypeHybrid, v.FuelType)
}

func TestSelector(t *testing.T) {
	assert.Equal(t, "42", ByID(42).String())
	assert.Equal(t, "AAA-001", ByPlate("AAA-001").String())
	assert.NoError(t, ByID(0).Validate())
	assert.NoError(t, ByPlate("AAA-001").Validate())
	assert.Error(t, Selector{}.Validate())
}

func TestDeletion_Message(t *testing.T) {
	assert.Equal(t, "Vehicle with ID 3 has been deleted.", Deletion{Selector: ByID(3)}.Message())
	assert.Equal(t, "Vehicle with ID AAA-001 has been deleted.", Deletion{Selector: ByPlate("AAA-001")}.Message())
}

func TestVehicle_MarshalJSON(t *testing.T) {
	v := validAttributes().NewVehicle(time.Date(2024, 5, 1, 10, 30, 15, 999, time.UTC))
	v.ID = 9

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "2024-05-01 10:30:15", out["available_from"])
	assert.Equal(t, float64(9), out["id"])
	assert.Equal(t, "hybrid", out["fuel_type"])
	assert.Equal(t, "AAA-001", out["license_plate_number"])
	assert.Equal(t, false, out["on_route"])
}

func TestTripDetails_MarshalJSON(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	data, err := json.Marshal(TripDetails{
		StartTime:         start,
		TravelTimeMinutes: 60,
		ActualDistance:    30,
		WillBeAvailable:   start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"start_time": "2024-05-01 10:00:00",
		"travel_time_minutes": 60,
		"actual_distance": 30,
		"will_be_available": "2024-05-01 11:00:00"
	}`, string(data))
}

func TestTripRequest_Validate(t *testing.T) {
	assert.NoError(t, TripRequest{Passengers: 1, Distance: 1}.Validate())
	assert.Error(t, TripRequest{Passengers: 0, Distance: 10}.Validate())
	assert.Error(t, TripRequest{Passengers: 2, Distance: 0}.Validate())
	assert.Error(t, TripRequest{Passengers: -1, Distance: -1}.Validate())

	assert.NoError(t, TripRequest{Passengers: 1, Distance: MaxDistanceKm}.Validate())
	err := TripRequest{Passengers: 1, Distance: MaxDistanceKm + 1}.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "distance", verr.Field)
}

func TestConflictError(t *testing.T) {
	until := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	err := error(&ConflictError{LicensePlate: "AAA-001", AvailableFrom: until})
	assert.True(t, errors.Is(err, ErrVehicleOnRoute))
	assert.Contains(t, err.Error(), "2024-05-01 11:00:00")

	verr := &ValidationError{Field: "license_plate_number", Message: "dup", Err: ErrDuplicatePlate}
	assert.True(t, errors.Is(verr, ErrDuplicatePlate))
}
