package services

import (
	"context"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/platform/obs"
	"fleet-route-optimizer/internal/ports"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Plan is the pure result of sequencing, costing and timing one set of
// deliveries for one vehicle. It has no side effects.
type Plan struct {
	Start     domain.Coordinates
	Matrix    DistanceMatrix
	Sequence  Sequence
	Cost      RouteCost
	Arrivals  []time.Time
	Waypoints []domain.Coordinates
}

// Stops numbers the selected deliveries from 1 with their ETAs.
func (p Plan) Stops() []domain.PlannedStop {
	stops := make([]domain.PlannedStop, 0, p.Sequence.Len())
	for i, d := range p.Sequence.Deliveries {
		stops = append(stops, domain.PlannedStop{
			DeliveryID:       d.ID,
			Sequence:         i + 1,
			EstimatedArrival: p.Arrivals[i],
			Status:           domain.StopPending,
		})
	}
	return stops
}

// PlanOptions are the policy knobs shared by planning and re-planning.
type PlanOptions struct {
	Policy  CostPolicy
	ETAMode ETAMode
}

// BuildPlan runs DistanceMatrix -> PlanSequence -> CalculateMetrics ->
// EstimateArrivals for deliveries starting (and ending) at start.
func BuildPlan(
	vehicle *domain.Vehicle,
	deliveries []*domain.Delivery,
	start domain.Coordinates,
	departAt time.Time,
	opts PlanOptions,
) (Plan, error) {
	if vehicle == nil {
		return Plan{}, fmt.Errorf("build plan: vehicle must be non-nil")
	}

	waypoints := make([]domain.Coordinates, 0, 1+len(deliveries))
	waypoints = append(waypoints, start)
	for _, d := range deliveries {
		waypoints = append(waypoints, d.Location)
	}

	matrix := BuildDistanceMatrix(waypoints)

	seq, err := PlanSequence(deliveries, vehicle.Capacity.Weight, matrix)
	if err != nil {
		return Plan{}, fmt.Errorf("build plan: %w", err)
	}

	cost, err := CalculateMetrics(seq, vehicle, matrix, opts.Policy)
	if err != nil {
		return Plan{}, fmt.Errorf("build plan: %w", err)
	}

	arrivals := EstimateArrivals(opts.ETAMode, seq.Len(), departAt, cost, vehicle, opts.Policy.ServiceMinutes)

	return Plan{
		Start:     start,
		Matrix:    matrix,
		Sequence:  seq,
		Cost:      cost,
		Arrivals:  arrivals,
		Waypoints: seq.Waypoints(start),
	}, nil
}

// resolveGeometry asks the mapping service for road geometry and falls back
// to a straight line through the same waypoints on any failure.
func resolveGeometry(ctx context.Context, maps ports.MapRoutingService, waypoints []domain.Coordinates) domain.Geometry {
	if maps == nil || len(waypoints) < 2 {
		return domain.StraightLine(waypoints)
	}

	ctx, span := obs.Tracer().Start(ctx, "maps.directions", trace.WithAttributes(
		attribute.Int("waypoints", len(waypoints)),
	))
	defer span.End()

	g, err := maps.Directions(ctx, waypoints)
	if err != nil || len(g.Path) == 0 {
		if err == nil {
			err = fmt.Errorf("directions returned empty geometry")
		}
		obs.RecordError(span, err, obs.ErrorTypeNetwork, true)
		logrus.WithFields(logrus.Fields{
			"req_id":    obs.RequestID(ctx),
			"waypoints": len(waypoints),
		}).WithError(err).Warn("map routing failed, using straight-line geometry")
		return domain.StraightLine(waypoints)
	}

	obs.SetSpanOk(span)
	return g
}
