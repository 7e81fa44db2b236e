package ports

import (
	"context"
	"fleet-route-optimizer/internal/domain"
)

// Port: a boundary for retrieving and saving Delivery entities.
// Implementations return an error wrapping domain.ErrNotFound for unknown ids.
type DeliveryRepository interface {
	GetDelivery(ctx context.Context, id string) (*domain.Delivery, error)
	ListDeliveries(ctx context.Context) ([]*domain.Delivery, error)
	SaveDelivery(ctx context.Context, d *domain.Delivery) error
}

// Port: a boundary for Vehicle entities.
type VehicleRepository interface {
	GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error)
	ListVehicles(ctx context.Context) ([]*domain.Vehicle, error)
	SaveVehicle(ctx context.Context, v *domain.Vehicle) error
}

// Port: a boundary for Route entities.
type RouteRepository interface {
	GetRoute(ctx context.Context, id string) (*domain.Route, error)
	ListRoutes(ctx context.Context) ([]*domain.Route, error)
	SaveRoute(ctx context.Context, r *domain.Route) error
}

// PersistenceStore is the authoritative source of entities and the only
// durability mechanism the planner relies on.
type PersistenceStore interface {
	DeliveryRepository
	VehicleRepository
	RouteRepository

	// SaveRouteWithDeliveries writes the route and the deliveries it changed
	// atomically: either all of them are stored or none.
	SaveRouteWithDeliveries(ctx context.Context, r *domain.Route, ds []*domain.Delivery) error
}
