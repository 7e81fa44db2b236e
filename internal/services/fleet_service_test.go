package services

import (
	"context"
	"errors"
	"fleet-route-optimizer/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateVehicleLocation(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, vehicle(100))
	bus := &recordingBus{}
	svc := NewFleetService(store, bus)

	loc := domain.Coordinates{Lon: 77.59, Lat: 12.97}
	v, err := svc.UpdateVehicleLocation(ctx, "v1", loc)
	require.NoError(t, err)
	assert.Equal(t, loc, v.CurrentLocation)

	stored, err := store.GetVehicle(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, loc, stored.CurrentLocation)

	require.Len(t, bus.vehicles, 1)
	assert.Equal(t, "v1", bus.vehicles[0].VehicleID)
	assert.Equal(t, loc, bus.vehicles[0].Location)
}

func TestUpdateVehicleLocationErrors(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, vehicle(100))
	bus := &recordingBus{}
	svc := NewFleetService(store, bus)

	_, err := svc.UpdateVehicleLocation(ctx, "v1", domain.Coordinates{Lat: -91})
	assert.True(t, domain.IsValidation(err))

	_, err = svc.UpdateVehicleLocation(ctx, "ghost", domain.Coordinates{})
	assert.True(t, domain.IsNotFound(err))

	assert.Empty(t, bus.vehicles)
}

func TestUpdateVehicleLocationPublishFailureIsLogged(t *testing.T) {
	store := seedStore(t, vehicle(100))
	svc := NewFleetService(store, &recordingBus{err: errors.New("down")})

	_, err := svc.UpdateVehicleLocation(context.Background(), "v1", domain.Coordinates{Lon: 1, Lat: 1})
	assert.NoError(t, err)
}

func TestListFleet(t *testing.T) {
	store := seedStore(t, vehicle(100), delivery("b", 0.01, 1), delivery("a", 0.02, 1))
	svc := NewFleetService(store, nil)

	vs, err := svc.ListVehicles(context.Background())
	require.NoError(t, err)
	assert.Len(t, vs, 1)

	ds, err := svc.ListDeliveries(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "a", ds[0].ID)
}
