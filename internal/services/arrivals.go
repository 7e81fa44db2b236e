package services

import (
	"fleet-route-optimizer/internal/domain"
	"fmt"
	"time"
)

type ETAMode string

const (
	// ETAEven splits the total duration evenly across stops.
	ETAEven ETAMode = "even"
	// ETAPerLeg uses each leg's own travel time.
	ETAPerLeg ETAMode = "per-leg"
)

func ParseETAMode(s string) (ETAMode, error) {
	switch ETAMode(s) {
	case "", ETAEven:
		return ETAEven, nil
	case ETAPerLeg:
		return ETAPerLeg, nil
	}
	return "", fmt.Errorf("unknown eta mode %q", s)
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

// EstimateArrivalsEven gives every stop an equal share of the route duration
// plus the service allowance, accumulated from departAt.
// The share includes the closing leg, so it is an approximation.
func EstimateArrivalsEven(stops int, departAt time.Time, cost RouteCost, serviceMin float64) []time.Time {
	out := make([]time.Time, 0, stops)
	if stops == 0 {
		return out
	}

	share := cost.DurationMin / float64(stops)
	cumulative := 0.0
	for i := 0; i < stops; i++ {
		cumulative += share + serviceMin
		out = append(out, departAt.Add(minutes(cumulative)))
	}
	return out
}

// EstimateArrivalsPerLeg accumulates each leg's travel time at the vehicle's
// average speed plus the service allowance. The closing leg is not counted.
func EstimateArrivalsPerLeg(stops int, departAt time.Time, cost RouteCost, vehicle *domain.Vehicle, serviceMin float64) []time.Time {
	out := make([]time.Time, 0, stops)
	cumulative := 0.0
	for i := 0; i < stops && i < len(cost.LegsKm); i++ {
		cumulative += cost.LegsKm[i]/vehicle.Speed()*60 + serviceMin
		out = append(out, departAt.Add(minutes(cumulative)))
	}
	return out
}

// EstimateArrivals dispatches on mode.
func EstimateArrivals(mode ETAMode, stops int, departAt time.Time, cost RouteCost, vehicle *domain.Vehicle, serviceMin float64) []time.Time {
	if mode == ETAPerLeg {
		return EstimateArrivalsPerLeg(stops, departAt, cost, vehicle, serviceMin)
	}
	return EstimateArrivalsEven(stops, departAt, cost, serviceMin)
}
