package models

// Combination is the costing of one eligible vehicle against a trip request.
type Combination struct {
	VehicleID         int64    `json:"id"`
	LicensePlate      string   `json:"license_plate"`
	CarBrand          string   `json:"car_brand"`
	FuelType          FuelType `json:"fuel_type"`
	Seats             int      `json:"seats"`
	TravelTimeMinutes int      `json:"travel_time_minutes"`
	ActualDistance    float64  `json:"actual_distance"`
	Revenue           float64  `json:"revenue"`
	Costs             float64  `json:"costs"`
	Profit            float64  `json:"profit"`
	CurrentStatus     string   `json:"current_status"`
}

// RequestDetails echoes a ranking query.
type RequestDetails struct {
	Passengers int    `json:"passengers"`
	Distance   int    `json:"distance"`
	QueryTime  string `json:"query_time"`
}

// Ranking is the profit-ordered report for one trip request.
type Ranking struct {
	RequestDetails RequestDetails `json:"request_details"`
	Combinations   []Combination  `json:"possible_combinations"`
}
