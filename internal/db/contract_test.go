package db

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-booking/internal/models"
)

func ptr[T any](v T) *T { return &v }

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newVehicle(plate string, fuel models.FuelType, seats int) models.Vehicle {
	return models.Vehicle{
		FuelType:           fuel,
		Range:              500,
		Distance:           150,
		Seats:              seats,
		LicensePlateNumber: plate,
		CarBrand:           "Dacia",
		DriverName:         "Mihai",
		AvailableFrom:      baseTime,
	}
}

// runCollectionContract exercises the behavior every VehicleCollection must share.
func runCollectionContract(t *testing.T, newCollection func(t *testing.T) VehicleCollection) {
	ctx := context.Background()

	t.Run("insert assigns increasing ids", func(t *testing.T) {
		c := newCollection(t)
		a, err := c.InsertVehicle(ctx, newVehicle("AAA-001", models.FuelTypeFuel, 4))
		require.NoError(t, err)
		b, err := c.InsertVehicle(ctx, newVehicle("AAA-002", models.FuelTypeHybrid, 4))
		require.NoError(t, err)
		assert.Greater(t, b.ID, a.ID)
		assert.NotZero(t, a.ID)
	})

	t.Run("duplicate plate is rejected", func(t *testing.T) {
		c := newCollection(t)
		_, err := c.InsertVehicle(ctx, newVehicle("AAA-001", models.FuelTypeFuel, 4))
		require.NoError(t, err)
		_, err = c.InsertVehicle(ctx, newVehicle("AAA-001", models.FuelTypeHybrid, 7))
		assert.ErrorIs(t, err, models.ErrDuplicatePlate)

		// Plates are case sensitive.
		_, err = c.InsertVehicle(ctx, newVehicle("aaa-001", models.FuelTypeHybrid, 7))
		assert.NoError(t, err)
	})

	t.Run("find vehicles is ordered by id", func(t *testing.T) {
		c := newCollection(t)
		for _, plate := range []string{"C", "A", "B"} {
			_, err := c.InsertVehicle(ctx, newVehicle(plate, models.FuelTypeFuel, 4))
			require.NoError(t, err)
		}
		vehicles, err := c.FindVehicles(ctx)
		require.NoError(t, err)
		require.Len(t, vehicles, 3)
		assert.True(t, sort.SliceIsSorted(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID }))
		assert.Equal(t, "C", vehicles[0].LicensePlateNumber)
	})

	t.Run("empty fleet", func(t *testing.T) {
		c := newCollection(t)
		vehicles, err := c.FindVehicles(ctx)
		require.NoError(t, err)
		assert.Empty(t, vehicles)
	})

	t.Run("find by id and plate", func(t *testing.T) {
		c := newCollection(t)
		created, err := c.InsertVehicle(ctx, newVehicle("AAA-001", models.FuelTypeFuel, 4))
		require.NoError(t, err)

		byID, err := c.FindVehicleByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "AAA-001", byID.LicensePlateNumber)

		byPlate, err := c.FindVehicleByPlate(ctx, "AAA-001")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byPlate.ID)

		_, err = c.FindVehicleByID(ctx, created.ID+100)
		assert.ErrorIs(t, err, models.ErrVehicleNotFound)
		_, err = c.FindVehicleByPlate(ctx, "NOPE")
		assert.ErrorIs(t, err, models.ErrVehicleNotFound)
	})

	t.Run("update applies only supplied attributes", func(t *testing.T) {
		c := newCollection(t)
		created, err := c.InsertVehicle(ctx, newVehicle("AAA-001", models.FuelTypeFuel, 4))
		require.NoError(t, err)

		at := baseTime.Add(time.Hour)
		updated, err := c.UpdateVehicle(ctx, created.ID, models.VehicleAttributes{Seats: ptr(7)}, at)
		require.NoError(t, err)
		assert.Equal(t, 7, updated.Seats)
		assert.Equal(t, "Dacia", updated.CarBrand)
		assert.Equal(t, models.FuelTypeFuel, updated.FuelType)
		assert.True(t, at.Equal(updated.AvailableFrom))

		_, err = c.UpdateVehicle(ctx, created.ID+100, models.VehicleAttributes{}, at)
		assert.ErrorIs(t, err, models.ErrVehicleNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		c := newCollection(t)
		created, err := c.InsertVehicle(ctx, newVehicle("AAA-001", models.FuelTypeFuel, 4))
		require.NoError(t, err)

		require.NoError(t, c.DeleteVehicle(ctx, created.ID))
		assert.ErrorIs(t, c.DeleteVehicle(ctx, created.ID), models.ErrVehicleNotFound)

		// The plate is free again.
		_, err = c.InsertVehicle(ctx, newVehicle("AAA-001", models.FuelTypeFuel, 4))
		assert.NoError(t, err)
	})

	t.Run("refresh touches idle vehicles only", func(t *testing.T) {
		c := newCollection(t)
		_, err := c.InsertVehicle(ctx, newVehicle("IDLE", models.FuelTypeFuel, 4))
		require.NoError(t, err)
		_, err = c.InsertVehicle(ctx, newVehicle("BUSY", models.FuelTypeFuel, 4))
		require.NoError(t, err)
		until := baseTime.Add(2 * time.Hour)
		_, err = c.MarkOnRoute(ctx, "BUSY", until)
		require.NoError(t, err)

		at := baseTime.Add(30 * time.Minute)
		require.NoError(t, c.RefreshIdleVehicles(ctx, at))

		idle, err := c.FindVehicleByPlate(ctx, "IDLE")
		require.NoError(t, err)
		assert.True(t, at.Equal(idle.AvailableFrom))
		busy, err := c.FindVehicleByPlate(ctx, "BUSY")
		require.NoError(t, err)
		assert.True(t, until.Equal(busy.AvailableFrom))
	})

	t.Run("mark on route and idle", func(t *testing.T) {
		c := newCollection(t)
		_, err := c.InsertVehicle(ctx, newVehicle("AAA-001", models.FuelTypeFuel, 4))
		require.NoError(t, err)

		until := baseTime.Add(time.Hour)
		v, err := c.MarkOnRoute(ctx, "AAA-001", until)
		require.NoError(t, err)
		assert.True(t, v.OnRoute)
		assert.True(t, until.Equal(v.AvailableFrom))

		_, err = c.MarkOnRoute(ctx, "AAA-001", until.Add(time.Hour))
		assert.ErrorIs(t, err, models.ErrVehicleOnRoute)
		_, err = c.MarkOnRoute(ctx, "NOPE", until)
		assert.ErrorIs(t, err, models.ErrVehicleNotFound)

		at := baseTime.Add(10 * time.Minute)
		v, err = c.MarkIdle(ctx, "AAA-001", at)
		require.NoError(t, err)
		assert.False(t, v.OnRoute)
		assert.True(t, at.Equal(v.AvailableFrom))

		_, err = c.MarkIdle(ctx, "NOPE", at)
		assert.ErrorIs(t, err, models.ErrVehicleNotFound)
	})

	t.Run("concurrent reservations have one winner", func(t *testing.T) {
		c := newCollection(t)
		_, err := c.InsertVehicle(ctx, newVehicle("AAA-001", models.FuelTypeFuel, 4))
		require.NoError(t, err)

		const attempts = 8
		var wg sync.WaitGroup
		errs := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c.MarkOnRoute(ctx, "AAA-001", baseTime.Add(time.Hour))
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		wins, conflicts := 0, 0
		for err := range errs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, models.ErrVehicleOnRoute):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, attempts-1, conflicts)
	})
}
