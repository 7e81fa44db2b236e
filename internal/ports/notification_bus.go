package ports

import (
	"context"
	"fleet-route-optimizer/internal/domain"
)

const (
	EventRouteReoptimized = "route-reoptimized"
	EventVehicleLocation  = "vehicle-location-update"
)

type RouteReoptimizedEvent struct {
	RouteID    string          `json:"route_id"`
	NewPlan    *domain.Route   `json:"new_plan"`
	Incident   domain.Incident `json:"incident"`
	Unassigned []string        `json:"unassigned,omitempty"`
}

type VehicleLocationEvent struct {
	VehicleID string             `json:"vehicle_id"`
	Location  domain.Coordinates `json:"location"`
}

// Publish-only channel keyed by route or vehicle identity.
type NotificationBus interface {
	PublishRouteReoptimized(ctx context.Context, ev RouteReoptimizedEvent) error
	PublishVehicleLocation(ctx context.Context, ev VehicleLocationEvent) error
}
