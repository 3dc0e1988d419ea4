// Package costing prices a trip for a single vehicle. All functions are pure.
package costing

import "github.com/ukydev/fleet-booking/internal/models"

const (
	// ShortTripKm is the longest trip billed at city speed. A trip of exactly
	// this length is still a short trip.
	ShortTripKm = 50

	shortTripMinutesPerKm = 2
	hybridShortTripFactor = 0.5

	revenuePerKm       = 2
	revenuePerHalfHour = 2
	fuelCostPerKm      = 2
	hybridCostPerKm    = 1
)

// Result is the costing of one vehicle for one trip.
type Result struct {
	TravelTimeMinutes int
	ActualDistance    float64
	HalfHours         int
	Revenue           float64
	Cost              float64
	Profit            float64
}

// Timing returns the travel time in minutes and the distance actually billed
// for a trip of distanceKm. Hybrids drive the short-trip half electrically.
func Timing(fuel models.FuelType, distanceKm int) (travelMinutes int, actualDistance float64) {
	if distanceKm <= ShortTripKm {
		travelMinutes = distanceKm * shortTripMinutesPerKm
		actualDistance = float64(distanceKm)
		if fuel == models.FuelTypeHybrid {
			actualDistance *= hybridShortTripFactor
		}
		return travelMinutes, actualDistance
	}
	return distanceKm, float64(distanceKm)
}

// Cost prices a trip. ok is false when the vehicle has fewer seats than
// passengers; that is not an error, the vehicle is simply not eligible.
func Cost(fuel models.FuelType, seats, distanceKm, passengers int) (res Result, ok bool) {
	if seats < passengers {
		return Result{}, false
	}
	travel, actual := Timing(fuel, distanceKm)
	halfHours := halfHoursCeil(travel)

	revenue := actual*revenuePerKm + float64(halfHours*revenuePerHalfHour)
	cost := actual * costPerKm(fuel)

	return Result{
		TravelTimeMinutes: travel,
		ActualDistance:    actual,
		HalfHours:         halfHours,
		Revenue:           revenue,
		Cost:              cost,
		Profit:            revenue - cost,
	}, true
}

func costPerKm(fuel models.FuelType) float64 {
	if fuel == models.FuelTypeHybrid {
		return hybridCostPerKm
	}
	return fuelCostPerKm
}

// halfHoursCeil counts started half hours.
func halfHoursCeil(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	return (minutes-1)/30 + 1
}
