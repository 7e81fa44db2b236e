package services

import (
	"context"
	"errors"
	"fleet-route-optimizer/internal/adapters/repositories"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/ports"
	"sync"
	"time"
)

// Deliveries along the equator: 0.01 degree of longitude is ~1.112 km.
func delivery(id string, lon, weight float64) *domain.Delivery {
	return &domain.Delivery{
		ID:       id,
		Location: domain.Coordinates{Lon: lon, Lat: 0},
		Weight:   weight,
		Priority: domain.PriorityMedium,
		Status:   domain.DeliveryPending,
	}
}

func vehicle(capacity float64) *domain.Vehicle {
	return &domain.Vehicle{
		ID:              "v1",
		Capacity:        domain.Capacity{Weight: capacity},
		CurrentLocation: domain.Coordinates{Lon: 0, Lat: 0},
		Status:          domain.VehicleAvailable,
		AverageSpeed:    40,
		FuelEfficiency:  10,
	}
}

func waypointsFor(start domain.Coordinates, ds []*domain.Delivery) []domain.Coordinates {
	out := []domain.Coordinates{start}
	for _, d := range ds {
		out = append(out, d.Location)
	}
	return out
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

type oracleFunc func(ctx context.Context, prompt string) (string, error)

func (f oracleFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type mapsFunc func(ctx context.Context, wps []domain.Coordinates) (domain.Geometry, error)

func (f mapsFunc) Directions(ctx context.Context, wps []domain.Coordinates) (domain.Geometry, error) {
	return f(ctx, wps)
}

type recordingBus struct {
	mu       sync.Mutex
	routes   []ports.RouteReoptimizedEvent
	vehicles []ports.VehicleLocationEvent
	err      error
}

func (b *recordingBus) PublishRouteReoptimized(_ context.Context, ev ports.RouteReoptimizedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes = append(b.routes, ev)
	return b.err
}

func (b *recordingBus) PublishVehicleLocation(_ context.Context, ev ports.VehicleLocationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vehicles = append(b.vehicles, ev)
	return b.err
}

func (b *recordingBus) routeEvents() []ports.RouteReoptimizedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ports.RouteReoptimizedEvent(nil), b.routes...)
}

var errDiskFull = errors.New("disk full")

// failingWrites delegates reads to the memory store and fails the atomic
// route write.
type failingWrites struct {
	*repositories.MemoryStore
}

func (failingWrites) SaveRouteWithDeliveries(context.Context, *domain.Route, []*domain.Delivery) error {
	return errDiskFull
}
