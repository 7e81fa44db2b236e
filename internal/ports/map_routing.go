package ports

import (
	"context"
	"fleet-route-optimizer/internal/domain"
)

// Contract for retrieving road geometry through ordered waypoints.
// Callers substitute a straight line on any error.
type MapRoutingService interface {
	Directions(ctx context.Context, waypoints []domain.Coordinates) (domain.Geometry, error)
}
