package services

import (
	"context"
	"errors"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/platform/obs"
	"fleet-route-optimizer/internal/ports"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const msgNothingToReplan = "No pending deliveries to re-optimize"

// Replan is what ReplanPending did to a route.
type Replan struct {
	Replanned  bool
	Unassigned []string
	Waypoints  []domain.Coordinates
	Cost       RouteCost
}

// ReplanPending re-sequences the pending stops of route from current and
// writes the result back into route.
//
// Completed and skipped stops are kept exactly as they were, in their
// original order, followed by the new pending stops numbered from 1. Pending
// deliveries the vehicle can no longer fit are dropped from the route and
// returned in Unassigned. Totals and metrics describe the new pending plan
// only. deliveries must hold every delivery a pending stop references.
func ReplanPending(
	route *domain.Route,
	vehicle *domain.Vehicle,
	deliveries map[string]*domain.Delivery,
	current domain.Coordinates,
	at time.Time,
	opts PlanOptions,
) (Replan, error) {
	frozen := make([]domain.PlannedStop, 0, len(route.Stops))
	pending := make([]*domain.Delivery, 0, len(route.Stops))
	for _, s := range route.Stops {
		if s.Status.Frozen() {
			frozen = append(frozen, s)
			continue
		}
		d, ok := deliveries[s.DeliveryID]
		if !ok {
			return Replan{}, fmt.Errorf("replan: %w", &domain.NotFoundError{Kind: "delivery", ID: s.DeliveryID})
		}
		pending = append(pending, d)
	}

	if len(pending) == 0 {
		return Replan{}, nil
	}

	plan, err := BuildPlan(vehicle, pending, current, at, opts)
	if err != nil {
		return Replan{}, fmt.Errorf("replan: %w", err)
	}

	stops := make([]domain.PlannedStop, 0, len(frozen)+plan.Sequence.Len())
	stops = append(stops, frozen...)
	stops = append(stops, plan.Stops()...)

	route.Stops = stops
	route.TotalDistanceKm = plan.Cost.TotalDistanceKm
	route.EstimatedDuration = plan.Cost.DurationMin
	route.Metrics = plan.Cost.Metrics()
	route.UpdatedAt = at

	return Replan{
		Replanned:  true,
		Unassigned: plan.Sequence.UnassignedIDs(),
		Waypoints:  plan.Waypoints,
		Cost:       plan.Cost,
	}, nil
}

type ReportIncidentRequest struct {
	RouteID         string
	Incident        domain.Incident
	CurrentLocation domain.Coordinates
}

type ReportIncidentResult struct {
	Route      *domain.Route
	Replanned  bool
	Message    string
	Unassigned []string
	// AvoidArea is the incident location. It is recorded for consumers and
	// not applied to distances.
	AvoidArea domain.Coordinates
}

// IncidentReoptimizer re-plans stored routes after incidents.
type IncidentReoptimizer struct {
	store ports.PersistenceStore
	maps  ports.MapRoutingService
	bus   ports.NotificationBus
	locks *RouteLocks
	opts  PlanOptions
	now   func() time.Time
}

func NewIncidentReoptimizer(
	store ports.PersistenceStore,
	maps ports.MapRoutingService,
	bus ports.NotificationBus,
	locks *RouteLocks,
	opts PlanOptions,
) *IncidentReoptimizer {
	if locks == nil {
		locks = NewRouteLocks()
	}
	return &IncidentReoptimizer{
		store: store,
		maps:  maps,
		bus:   bus,
		locks: locks,
		opts:  opts,
		now:   time.Now,
	}
}

func (r *IncidentReoptimizer) WithClock(now func() time.Time) *IncidentReoptimizer {
	r.now = now
	return r
}

// ReportIncident appends the incident to the route and re-plans its pending
// stops from the vehicle's current location.
//
// Invalid input and terminal routes are rejected before anything is stored.
// Past that point the incident is persisted even when re-planning fails, for
// example because the route's vehicle no longer exists. The re-planned route
// and its deliveries are written atomically.
func (r *IncidentReoptimizer) ReportIncident(ctx context.Context, req ReportIncidentRequest) (result *ReportIncidentResult, err error) {
	defer obs.Time(ctx, "report_incident")(&err)

	ctx, span := obs.Tracer().Start(ctx, "route.reoptimize", trace.WithAttributes(
		attribute.String("route_id", req.RouteID),
		attribute.String("incident_type", req.Incident.Type),
	))
	defer span.End()

	if strings.TrimSpace(req.RouteID) == "" {
		return nil, fmt.Errorf("report incident: %w", &domain.ValidationError{Field: "route_id", Reason: "must be non-empty"})
	}
	if err := req.Incident.Validate(); err != nil {
		obs.RecordError(span, err, obs.ErrorTypeValidation, false)
		return nil, fmt.Errorf("report incident: %w", err)
	}
	if err := req.CurrentLocation.Validate("current_location"); err != nil {
		obs.RecordError(span, err, obs.ErrorTypeValidation, false)
		return nil, fmt.Errorf("report incident: %w", err)
	}

	unlock := r.locks.Lock(req.RouteID)
	defer unlock()

	route, err := r.store.GetRoute(ctx, req.RouteID)
	if err != nil {
		obs.RecordError(span, err, obs.ErrorTypeStore, false)
		return nil, fmt.Errorf("report incident: get route: %w", err)
	}
	if route.Status.Terminal() {
		err := &domain.ValidationError{
			Field:  "route.status",
			Reason: fmt.Sprintf("route %s is %s", route.ID, route.Status),
		}
		obs.RecordError(span, err, obs.ErrorTypeValidation, false)
		return nil, fmt.Errorf("report incident: %w", err)
	}

	now := r.now()
	incident := req.Incident
	incident.Timestamp = now
	route.Incidents = append(route.Incidents, incident)
	route.UpdatedAt = now

	deliveries, err := r.pendingDeliveries(ctx, route)
	if err != nil {
		obs.RecordError(span, err, obs.ErrorTypeStore, false)
		return nil, fmt.Errorf("report incident: %w", err)
	}

	if len(deliveries) == 0 {
		if err := r.store.SaveRoute(ctx, route); err != nil {
			obs.RecordError(span, err, obs.ErrorTypeStore, false)
			return nil, fmt.Errorf("report incident: save route: %w", err)
		}
		span.SetAttributes(attribute.Bool("replanned", false))
		obs.SetSpanOk(span)
		return &ReportIncidentResult{
			Route:      route,
			Message:    msgNothingToReplan,
			Unassigned: []string{},
			AvoidArea:  incident.Location,
		}, nil
	}

	vehicle, err := r.store.GetVehicle(ctx, route.VehicleID)
	if err != nil {
		obs.RecordError(span, err, obs.ErrorTypeStore, false)
		// Keep the incident even though the route cannot be re-planned.
		if saveErr := r.store.SaveRoute(ctx, route); saveErr != nil {
			return nil, fmt.Errorf("report incident: save route: %w", errors.Join(saveErr, err))
		}
		return nil, fmt.Errorf("report incident: get vehicle: %w", err)
	}
	vehicle.Normalize()

	replan, err := ReplanPending(route, vehicle, deliveries, req.CurrentLocation, now, r.opts)
	if err != nil {
		return nil, fmt.Errorf("report incident: %w", err)
	}
	route.Geometry = resolveGeometry(ctx, r.maps, replan.Waypoints)

	changed := syncDeliveries(route, deliveries, replan.Unassigned)
	if err := r.store.SaveRouteWithDeliveries(ctx, route, changed); err != nil {
		obs.RecordError(span, err, obs.ErrorTypeStore, false)
		return nil, fmt.Errorf("report incident: save route: %w", err)
	}

	r.publish(ctx, route, incident, replan.Unassigned)

	span.SetAttributes(
		attribute.Bool("replanned", true),
		attribute.Int("unassigned", len(replan.Unassigned)),
	)
	obs.SetSpanOk(span)

	logrus.WithFields(logrus.Fields{
		"req_id":      obs.RequestID(ctx),
		"route_id":    route.ID,
		"incident":    incident.Type,
		"severity":    incident.Severity,
		"stops":       len(route.Stops),
		"unassigned":  len(replan.Unassigned),
		"distance_km": route.TotalDistanceKm,
	}).Info("route re-optimized")

	return &ReportIncidentResult{
		Route:      route,
		Replanned:  true,
		Unassigned: replan.Unassigned,
		AvoidArea:  incident.Location,
	}, nil
}

// pendingDeliveries loads the deliveries referenced by pending stops.
func (r *IncidentReoptimizer) pendingDeliveries(ctx context.Context, route *domain.Route) (map[string]*domain.Delivery, error) {
	out := make(map[string]*domain.Delivery)
	for _, s := range route.Stops {
		if s.Status.Frozen() {
			continue
		}
		d, err := r.store.GetDelivery(ctx, s.DeliveryID)
		if err != nil {
			return nil, fmt.Errorf("get delivery: %w", err)
		}
		d.Normalize()
		out[d.ID] = d
	}
	return out, nil
}

// syncDeliveries refreshes ETAs of re-planned deliveries and releases the
// ones that were dropped back to pending. It returns every delivery it touched.
func syncDeliveries(
	route *domain.Route,
	deliveries map[string]*domain.Delivery,
	unassigned []string,
) []*domain.Delivery {
	out := make([]*domain.Delivery, 0, len(deliveries))
	for _, s := range route.Stops {
		if s.Status.Frozen() {
			continue
		}
		d := deliveries[s.DeliveryID]
		eta := s.EstimatedArrival
		d.EstimatedDelivery = &eta
		out = append(out, d)
	}
	for _, id := range unassigned {
		d := deliveries[id]
		d.Status = domain.DeliveryPending
		d.EstimatedDelivery = nil
		out = append(out, d)
	}
	return out
}

// publish notifies subscribers. A failed publish does not undo the re-plan.
func (r *IncidentReoptimizer) publish(ctx context.Context, route *domain.Route, incident domain.Incident, unassigned []string) {
	if r.bus == nil {
		return
	}
	ev := ports.RouteReoptimizedEvent{
		RouteID:    route.ID,
		NewPlan:    route.Clone(),
		Incident:   incident,
		Unassigned: unassigned,
	}
	if err := r.bus.PublishRouteReoptimized(ctx, ev); err != nil {
		logrus.WithFields(logrus.Fields{
			"req_id":   obs.RequestID(ctx),
			"route_id": route.ID,
		}).WithError(err).Warn("publish route-reoptimized failed")
	}
}
