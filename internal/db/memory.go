package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/fleet-booking/internal/models"
)

var _ VehicleCollection = (*MemoryVehicleCollection)(nil)

// MemoryVehicleCollection is an in-process VehicleCollection. A single mutex
// serializes every operation.
type MemoryVehicleCollection struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]models.Vehicle
	byPlate map[string]int64
}

// NewMemoryVehicleCollection returns an empty store. Ids start at 1.
func NewMemoryVehicleCollection() *MemoryVehicleCollection {
	return &MemoryVehicleCollection{
		byID:    make(map[int64]models.Vehicle),
		byPlate: make(map[string]int64),
	}
}

func (c *MemoryVehicleCollection) InsertVehicle(_ context.Context, v models.Vehicle) (*models.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byPlate[v.LicensePlateNumber]; exists {
		return nil, models.ErrDuplicatePlate
	}
	c.nextID++
	v.ID = c.nextID
	c.byID[v.ID] = v
	c.byPlate[v.LicensePlateNumber] = v.ID
	return &v, nil
}

func (c *MemoryVehicleCollection) FindVehicles(_ context.Context) ([]models.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vehicles := make([]models.Vehicle, 0, len(c.byID))
	for _, v := range c.byID {
		vehicles = append(vehicles, v)
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })
	return vehicles, nil
}

func (c *MemoryVehicleCollection) FindVehicleByID(_ context.Context, id int64) (*models.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.byID[id]
	if !ok {
		return nil, models.ErrVehicleNotFound
	}
	return &v, nil
}

func (c *MemoryVehicleCollection) FindVehicleByPlate(_ context.Context, plate string) (*models.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookupPlate(plate)
	if !ok {
		return nil, models.ErrVehicleNotFound
	}
	return &v, nil
}

func (c *MemoryVehicleCollection) UpdateVehicle(_ context.Context, id int64, attrs models.VehicleAttributes, at time.Time) (*models.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.byID[id]
	if !ok {
		return nil, models.ErrVehicleNotFound
	}
	attrs.Apply(&v)
	v.AvailableFrom = at
	c.byID[id] = v
	return &v, nil
}

func (c *MemoryVehicleCollection) DeleteVehicle(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.byID[id]
	if !ok {
		return models.ErrVehicleNotFound
	}
	delete(c.byID, id)
	delete(c.byPlate, v.LicensePlateNumber)
	return nil
}

func (c *MemoryVehicleCollection) RefreshIdleVehicles(_ context.Context, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, v := range c.byID {
		if !v.OnRoute {
			v.AvailableFrom = at
			c.byID[id] = v
		}
	}
	return nil
}

func (c *MemoryVehicleCollection) MarkOnRoute(_ context.Context, plate string, until time.Time) (*models.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookupPlate(plate)
	if !ok {
		return nil, models.ErrVehicleNotFound
	}
	if v.OnRoute {
		return nil, models.ErrVehicleOnRoute
	}
	v.OnRoute = true
	v.AvailableFrom = until
	c.byID[v.ID] = v
	return &v, nil
}

func (c *MemoryVehicleCollection) MarkIdle(_ context.Context, plate string, at time.Time) (*models.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookupPlate(plate)
	if !ok {
		return nil, models.ErrVehicleNotFound
	}
	v.OnRoute = false
	v.AvailableFrom = at
	c.byID[v.ID] = v
	return &v, nil
}

// lookupPlate must be called with mu held.
func (c *MemoryVehicleCollection) lookupPlate(plate string) (models.Vehicle, bool) {
	id, ok := c.byPlate[plate]
	if !ok {
		return models.Vehicle{}, false
	}
	v, ok := c.byID[id]
	return v, ok
}
