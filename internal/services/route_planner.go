package services

import (
	"context"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/platform/obs"
	"fleet-route-optimizer/internal/ports"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type PlanRouteRequest struct {
	VehicleID   string
	DeliveryIDs []string
	// Start overrides the vehicle's current location when non-nil.
	Start *domain.Coordinates
	// DepartAt defaults to the planner's clock.
	DepartAt time.Time
}

type PlanRouteResult struct {
	Route      *domain.Route
	Unassigned []string
}

// RoutePlanner creates routes for one vehicle from stored deliveries.
type RoutePlanner struct {
	store   ports.PersistenceStore
	maps    ports.MapRoutingService
	traffic *TrafficPredictor
	opts    PlanOptions
	now     func() time.Time
	newID   func() string
}

// NewRoutePlanner wires a planner. maps may be nil, in which case every
// route gets straight-line geometry.
func NewRoutePlanner(
	store ports.PersistenceStore,
	maps ports.MapRoutingService,
	traffic *TrafficPredictor,
	opts PlanOptions,
) *RoutePlanner {
	if traffic == nil {
		traffic = NewTrafficPredictor(nil, 0)
	}
	return &RoutePlanner{
		store:   store,
		maps:    maps,
		traffic: traffic,
		opts:    opts,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (p *RoutePlanner) WithClock(now func() time.Time) *RoutePlanner {
	p.now = now
	return p
}

func (p *RoutePlanner) WithIDs(newID func() string) *RoutePlanner {
	p.newID = newID
	return p
}

// PlanRoute sequences the requested deliveries for the vehicle, stores the
// resulting route and marks the selected deliveries assigned. Deliveries that
// do not fit the vehicle are reported in Unassigned and left untouched.
func (p *RoutePlanner) PlanRoute(ctx context.Context, req PlanRouteRequest) (result *PlanRouteResult, err error) {
	defer obs.Time(ctx, "plan_route")(&err)

	ctx, span := obs.Tracer().Start(ctx, "route.plan", trace.WithAttributes(
		attribute.String("vehicle_id", req.VehicleID),
		attribute.Int("deliveries", len(req.DeliveryIDs)),
	))
	defer span.End()

	if err := validatePlanRequest(req); err != nil {
		obs.RecordError(span, err, obs.ErrorTypeValidation, false)
		return nil, fmt.Errorf("plan route: %w", err)
	}

	vehicle, err := p.store.GetVehicle(ctx, req.VehicleID)
	if err != nil {
		obs.RecordError(span, err, obs.ErrorTypeStore, false)
		return nil, fmt.Errorf("plan route: get vehicle: %w", err)
	}
	vehicle.Normalize()
	if err := vehicle.Validate(); err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}
	if vehicle.Status == domain.VehicleMaintenance || vehicle.Status == domain.VehicleOffline {
		return nil, fmt.Errorf("plan route: %w", &domain.ValidationError{
			Field:  "vehicle.status",
			Reason: fmt.Sprintf("vehicle %s is %s", vehicle.ID, vehicle.Status),
		})
	}

	deliveries := make([]*domain.Delivery, 0, len(req.DeliveryIDs))
	for _, id := range req.DeliveryIDs {
		d, err := p.store.GetDelivery(ctx, id)
		if err != nil {
			obs.RecordError(span, err, obs.ErrorTypeStore, false)
			return nil, fmt.Errorf("plan route: get delivery: %w", err)
		}
		d.Normalize()
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("plan route: %w", err)
		}
		// An assigned delivery already sits on another route.
		if d.Status != domain.DeliveryPending {
			return nil, fmt.Errorf("plan route: %w", &domain.ValidationError{
				Field:  "delivery." + d.ID + ".status",
				Reason: fmt.Sprintf("cannot plan a delivery that is %s", d.Status),
			})
		}
		deliveries = append(deliveries, d)
	}

	start := vehicle.CurrentLocation
	if req.Start != nil {
		start = *req.Start
	}
	if err := start.Validate("start"); err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}

	now := p.now()
	departAt := req.DepartAt
	if departAt.IsZero() {
		departAt = now
	}

	plan, err := BuildPlan(vehicle, deliveries, start, departAt, p.opts)
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}

	// Geometry and traffic both degrade locally, so neither goroutine fails
	// the group; errgroup still bounds them to ctx.
	var (
		geometry   domain.Geometry
		prediction domain.TrafficPrediction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		geometry = resolveGeometry(gctx, p.maps, plan.Waypoints)
		return nil
	})
	g.Go(func() error {
		hour, day := departAt.Hour(), int(departAt.Weekday())
		pred, err := p.traffic.Predict(gctx, plan.Waypoints, PredictOptions{TimeOfDay: &hour, DayOfWeek: &day})
		if err != nil {
			return fmt.Errorf("predict traffic: %w", err)
		}
		prediction = pred
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}

	route := &domain.Route{
		ID:                 p.newID(),
		VehicleID:          vehicle.ID,
		Stops:              plan.Stops(),
		Geometry:           geometry,
		TotalDistanceKm:    plan.Cost.TotalDistanceKm,
		EstimatedDuration:  plan.Cost.DurationMin,
		Metrics:            plan.Cost.Metrics(),
		TrafficPredictions: []domain.TrafficPrediction{prediction},
		Incidents:          []domain.Incident{},
		Status:             domain.RoutePlanned,
		DepartAt:           departAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	for i, d := range plan.Sequence.Deliveries {
		d.Status = domain.DeliveryAssigned
		eta := plan.Arrivals[i]
		d.EstimatedDelivery = &eta
	}
	if err := p.store.SaveRouteWithDeliveries(ctx, route, plan.Sequence.Deliveries); err != nil {
		obs.RecordError(span, err, obs.ErrorTypeStore, false)
		return nil, fmt.Errorf("plan route: save route: %w", err)
	}

	unassigned := plan.Sequence.UnassignedIDs()
	span.SetAttributes(
		attribute.String("route_id", route.ID),
		attribute.Int("stops", len(route.Stops)),
		attribute.Int("unassigned", len(unassigned)),
	)
	obs.SetSpanOk(span)

	logrus.WithFields(logrus.Fields{
		"req_id":      obs.RequestID(ctx),
		"route_id":    route.ID,
		"vehicle_id":  vehicle.ID,
		"stops":       len(route.Stops),
		"unassigned":  len(unassigned),
		"distance_km": route.TotalDistanceKm,
		"geometry":    route.Geometry.Source,
		"traffic":     prediction.Source,
	}).Info("route planned")

	return &PlanRouteResult{Route: route, Unassigned: unassigned}, nil
}

func validatePlanRequest(req PlanRouteRequest) error {
	if strings.TrimSpace(req.VehicleID) == "" {
		return &domain.ValidationError{Field: "vehicle_id", Reason: "must be non-empty"}
	}
	if len(req.DeliveryIDs) == 0 {
		return &domain.ValidationError{Field: "delivery_ids", Reason: "must list at least one delivery"}
	}
	seen := make(map[string]struct{}, len(req.DeliveryIDs))
	for _, id := range req.DeliveryIDs {
		if strings.TrimSpace(id) == "" {
			return &domain.ValidationError{Field: "delivery_ids", Reason: "must not contain empty ids"}
		}
		if _, dup := seen[id]; dup {
			return &domain.ValidationError{Field: "delivery_ids", Reason: "duplicate id " + id}
		}
		seen[id] = struct{}{}
	}
	if req.Start != nil {
		return req.Start.Validate("start")
	}
	return nil
}
