package services

import (
	"context"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/ports"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// RouteService handles stop progress and route lifecycle transitions.
// Mutations share the per-route locks with IncidentReoptimizer.
type RouteService struct {
	store ports.PersistenceStore
	locks *RouteLocks
	now   func() time.Time
}

func NewRouteService(store ports.PersistenceStore, locks *RouteLocks) *RouteService {
	if locks == nil {
		locks = NewRouteLocks()
	}
	return &RouteService{store: store, locks: locks, now: time.Now}
}

func (s *RouteService) WithClock(now func() time.Time) *RouteService {
	s.now = now
	return s
}

func (s *RouteService) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	r, err := s.store.GetRoute(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}
	return r, nil
}

func (s *RouteService) ListRoutes(ctx context.Context) ([]*domain.Route, error) {
	rs, err := s.store.ListRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return rs, nil
}

// UpdateStopStatus moves a pending stop to completed or skipped and mirrors
// the outcome onto its delivery (delivered or failed). actualArrival defaults
// to now.
func (s *RouteService) UpdateStopStatus(
	ctx context.Context,
	routeID, deliveryID string,
	status domain.StopStatus,
	actualArrival *time.Time,
) (*domain.Route, error) {
	if !status.Frozen() {
		return nil, fmt.Errorf("update stop status: %w", &domain.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("stop can only move to %s or %s, got %q", domain.StopCompleted, domain.StopSkipped, status),
		})
	}

	unlock := s.locks.Lock(routeID)
	defer unlock()

	route, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("update stop status: get route: %w", err)
	}
	if route.Status.Terminal() {
		return nil, fmt.Errorf("update stop status: %w", &domain.ValidationError{
			Field:  "route.status",
			Reason: fmt.Sprintf("route %s is %s", route.ID, route.Status),
		})
	}

	i := route.StopFor(deliveryID)
	if i < 0 {
		return nil, fmt.Errorf("update stop status: %w", &domain.NotFoundError{Kind: "stop", ID: deliveryID})
	}
	if route.Stops[i].Status.Frozen() {
		return nil, fmt.Errorf("update stop status: %w", &domain.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("stop %s is already %s", deliveryID, route.Stops[i].Status),
		})
	}

	delivery, err := s.store.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("update stop status: get delivery: %w", err)
	}

	now := s.now()
	at := now
	if actualArrival != nil {
		at = *actualArrival
	}

	route.Stops[i].Status = status
	route.Stops[i].ActualArrival = &at
	route.UpdatedAt = now

	delivery.Status = domain.DeliveryDelivered
	if status == domain.StopSkipped {
		delivery.Status = domain.DeliveryFailed
	}
	delivery.ActualDelivery = &at

	if err := s.store.SaveRouteWithDeliveries(ctx, route, []*domain.Delivery{delivery}); err != nil {
		return nil, fmt.Errorf("update stop status: save route: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"route_id":    route.ID,
		"delivery_id": deliveryID,
		"status":      status,
	}).Info("stop status updated")

	return route, nil
}

// TransitionRoute moves a route through planned -> active -> completed, with
// cancellation allowed from either non-terminal state.
func (s *RouteService) TransitionRoute(ctx context.Context, routeID string, to domain.RouteStatus) (*domain.Route, error) {
	unlock := s.locks.Lock(routeID)
	defer unlock()

	route, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("transition route: get route: %w", err)
	}
	if !route.Status.CanTransition(to) {
		return nil, fmt.Errorf("transition route: %w", &domain.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("cannot move route from %s to %q", route.Status, to),
		})
	}

	from := route.Status
	route.Status = to
	route.UpdatedAt = s.now()
	if err := s.store.SaveRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("transition route: save route: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"route_id": route.ID,
		"from":     from,
		"to":       to,
	}).Info("route status changed")

	return route, nil
}
