package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// VehicleRequest is the body posted to /all/fleet.
type VehicleRequest struct {
	FuelType           string `json:"fuel_type"`
	Range              int    `json:"range"`
	Distance           int    `json:"distance"`
	Seats              int    `json:"seats"`
	LicensePlateNumber string `json:"license_plate_number"`
	CarBrand           string `json:"car_brand"`
	DriverName         string `json:"driver_name"`
}

// Combination is the subset of a ranking entry the simulator acts on.
type Combination struct {
	LicensePlate string  `json:"license_plate"`
	Profit       float64 `json:"profit"`
	Status       string  `json:"current_status"`
}

// Ranking is the response of GET /combinations.
type Ranking struct {
	Combinations []Combination `json:"possible_combinations"`
}

var errConflict = errors.New("vehicle already on route")

var (
	brands = map[string][]string{
		"fuel":   {"Dacia", "Volkswagen", "Skoda", "Ford", "Renault"},
		"hybrid": {"Toyota", "Hyundai", "Kia", "Lexus", "Honda"},
	}
	drivers  = []string{"Ion Popescu", "Maria Ionescu", "Andrei Dumitru", "Elena Stan", "Mihai Georgescu", "Ana Marin"}
	counties = []string{"B", "CJ", "IS", "TM", "CT", "BV"}
)

func randomVehicle(rng *rand.Rand, n int) VehicleRequest {
	fuel := []string{"fuel", "hybrid"}[rng.Intn(2)]
	letters := make([]byte, 3)
	for i := range letters {
		letters[i] = byte('A' + rng.Intn(26))
	}
	return VehicleRequest{
		FuelType:           fuel,
		Range:              400 + rng.Intn(600),
		Distance:           100 + rng.Intn(300),
		Seats:              2 + rng.Intn(6), // 2-7
		LicensePlateNumber: fmt.Sprintf("%s-%02d-%s", counties[rng.Intn(len(counties))], n%100, letters),
		CarBrand:           brands[fuel][rng.Intn(len(brands[fuel]))],
		DriverName:         drivers[rng.Intn(len(drivers))],
	}
}

// apiClient talks to the booking API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *apiClient) createVehicle(ctx context.Context, v VehicleRequest) error {
	status, err := c.do(ctx, http.MethodPost, "/all/fleet", v, nil)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	if status != http.StatusCreated {
		return fmt.Errorf("vehicle creation failed with status: %d", status)
	}
	return nil
}

func (c *apiClient) rank(ctx context.Context, passengers, distance int) (*Ranking, error) {
	q := url.Values{}
	q.Set("passengers", strconv.Itoa(passengers))
	q.Set("distance", strconv.Itoa(distance))
	var r Ranking
	status, err := c.do(ctx, http.MethodGet, "/combinations?"+q.Encode(), nil, &r)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("ranking failed with status: %d", status)
	}
	return &r, nil
}

func (c *apiClient) reserve(ctx context.Context, plate string, distance int) error {
	path := "/select/" + url.PathEscape(plate) + "?distance=" + strconv.Itoa(distance)
	status, err := c.do(ctx, http.MethodPut, path, nil, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return errConflict
	default:
		return fmt.Errorf("reservation failed with status: %d", status)
	}
}

func (c *apiClient) release(ctx context.Context, plate string) error {
	status, err := c.do(ctx, http.MethodPatch, "/select/"+url.PathEscape(plate), nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("release failed with status: %d", status)
	}
	return nil
}

// simulator books random trips against the fleet.
type simulator struct {
	api                *apiClient
	rng                *rand.Rand
	releaseProbability float64
	onRoute            []string
}

// seed creates n vehicles and returns how many were accepted.
func (s *simulator) seed(ctx context.Context, n int) int {
	created := 0
	for i := 0; i < n; i++ {
		v := randomVehicle(s.rng, i+1)
		if err := s.api.createVehicle(ctx, v); err != nil {
			log.WithError(err).WithField("license_plate", v.LicensePlateNumber).Warn("Failed to create vehicle")
			continue
		}
		log.WithFields(log.Fields{
			"license_plate": v.LicensePlateNumber,
			"fuel_type":     v.FuelType,
			"seats":         v.Seats,
		}).Info("Created vehicle")
		created++
	}
	return created
}

// tick ranks one random trip, books the most profitable vehicle and maybe
// brings an earlier booking back early.
func (s *simulator) tick(ctx context.Context) {
	passengers := 1 + s.rng.Intn(6)
	distance := 5 + s.rng.Intn(116)
	entry := log.WithFields(log.Fields{"passengers": passengers, "distance": distance})

	ranking, err := s.api.rank(ctx, passengers, distance)
	if err != nil {
		entry.WithError(err).Error("Failed to rank trip")
		return
	}
	if len(ranking.Combinations) == 0 {
		entry.Info("No vehicle available for trip")
	} else {
		best := ranking.Combinations[0]
		switch err := s.api.reserve(ctx, best.LicensePlate, distance); {
		case err == nil:
			s.onRoute = append(s.onRoute, best.LicensePlate)
			entry.WithFields(log.Fields{"license_plate": best.LicensePlate, "profit": best.Profit}).Info("Booked trip")
		case errors.Is(err, errConflict):
			entry.WithField("license_plate", best.LicensePlate).Info("Vehicle still on route")
		default:
			entry.WithError(err).Error("Failed to book trip")
		}
	}

	if len(s.onRoute) > 0 && s.rng.Float64() < s.releaseProbability {
		i := s.rng.Intn(len(s.onRoute))
		plate := s.onRoute[i]
		s.onRoute = append(s.onRoute[:i], s.onRoute[i+1:]...)
		if err := s.api.release(ctx, plate); err != nil {
			log.WithError(err).WithField("license_plate", plate).Error("Failed to release vehicle")
			return
		}
		log.WithField("license_plate", plate).Info("Driver returned early")
	}
}

func (s *simulator) run(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.tick(ctx)
		}
	}
}

type settings struct {
	apiURL             string
	fleetSize          int
	interval           time.Duration
	releaseProbability float64
}

func settingsFromEnv() settings {
	s := settings{
		apiURL:             "http://localhost:8080",
		fleetSize:          10,
		interval:           2 * time.Second,
		releaseProbability: 0.2,
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		s.apiURL = v
	}
	if v := os.Getenv("FLEET_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.fleetSize = n
		}
	}
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			s.interval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("SIM_RELEASE_PROBABILITY"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil && p >= 0 && p <= 1 {
			s.releaseProbability = p
		}
	}
	return s
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := settingsFromEnv()
	log.WithFields(log.Fields{
		"fleet_size":          cfg.fleetSize,
		"api_url":             cfg.apiURL,
		"interval":            cfg.interval,
		"release_probability": cfg.releaseProbability,
	}).Info("Starting booking simulation")

	sim := &simulator{
		api:                newAPIClient(cfg.apiURL),
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
		releaseProbability: cfg.releaseProbability,
	}
	created := sim.seed(ctx, cfg.fleetSize)
	log.WithField("created_vehicles", created).Info("Vehicle creation completed")
	if created == 0 {
		log.Error("No vehicles created. Ensure the API is reachable. Exiting.")
		return
	}

	sim.run(ctx, cfg.interval)
	log.Info("Simulation stopped")
}
