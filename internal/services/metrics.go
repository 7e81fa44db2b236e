package services

import (
	"fleet-route-optimizer/internal/domain"
	"fmt"
)

// CostPolicy holds the linear cost and emission factors.
// They are policy parameters, not physical constants.
type CostPolicy struct {
	FuelPricePerLiter float64
	TimeCostPerMinute float64
	CO2KgPerLiter     float64
	ServiceMinutes    float64
}

// DefaultCostPolicy mirrors the historical production constants.
func DefaultCostPolicy() CostPolicy {
	return CostPolicy{
		FuelPricePerLiter: 1.5,
		TimeCostPerMinute: 0.5,
		CO2KgPerLiter:     2.31,
		ServiceMinutes:    5,
	}
}

// RouteCost is the aggregate cost of a planned sequence.
// LegsKm[i] is the leg arriving at stop i+1; the closing leg back to the
// start is the last element when the sequence is non-empty.
type RouteCost struct {
	TotalDistanceKm float64
	DurationMin     float64
	FuelLiters      float64
	CO2Kg           float64
	TotalCost       float64
	LegsKm          []float64
}

// Metrics converts the cost into the persisted route metrics block.
func (c RouteCost) Metrics() domain.RouteMetrics {
	return domain.RouteMetrics{
		TotalCost:       c.TotalCost,
		FuelConsumption: c.FuelLiters,
		CO2Emissions:    c.CO2Kg,
	}
}

// CalculateMetrics derives distance, time, fuel, cost and CO2 for seq.
//
// The route is treated as a round trip: a closing leg from the last stop back
// to the start is always added when at least one stop was selected.
func CalculateMetrics(seq Sequence, vehicle *domain.Vehicle, matrix DistanceMatrix, policy CostPolicy) (RouteCost, error) {
	if vehicle == nil {
		return RouteCost{}, fmt.Errorf("calculate metrics: vehicle must be non-nil")
	}
	if seq.Len() == 0 {
		return RouteCost{LegsKm: []float64{}}, nil
	}

	legs := make([]float64, 0, seq.Len()+1)
	prev := 0
	total := 0.0
	for _, idx := range seq.MatrixIndex {
		if idx <= 0 || idx >= matrix.Size() {
			return RouteCost{}, fmt.Errorf("calculate metrics: matrix index %d out of range", idx)
		}
		leg := matrix[prev][idx]
		legs = append(legs, leg)
		total += leg
		prev = idx
	}
	back := matrix[prev][0]
	legs = append(legs, back)
	total += back

	duration := total / vehicle.Speed() * 60
	fuel := total / vehicle.Efficiency()

	return RouteCost{
		TotalDistanceKm: total,
		DurationMin:     duration,
		FuelLiters:      fuel,
		CO2Kg:           fuel * policy.CO2KgPerLiter,
		TotalCost:       fuel*policy.FuelPricePerLiter + duration*policy.TimeCostPerMinute,
		LegsKm:          legs,
	}, nil
}
