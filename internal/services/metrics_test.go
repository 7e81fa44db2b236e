package services

import (
	"fleet-route-optimizer/internal/domain"
	"math"
	"testing"
)

func TestCalculateMetricsEmptyIsZero(t *testing.T) {
	cost, err := CalculateMetrics(Sequence{}, vehicle(100), BuildDistanceMatrix(nil), DefaultCostPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cost.TotalDistanceKm != 0 || cost.DurationMin != 0 || cost.FuelLiters != 0 || cost.CO2Kg != 0 || cost.TotalCost != 0 {
		t.Fatalf("expected all-zero metrics, got %+v", cost)
	}
}

func TestCalculateMetricsSingleStopCountsClosingLeg(t *testing.T) {
	ds := []*domain.Delivery{delivery("a", 0.1, 10)}
	seq, m := planFor(t, 100, ds)

	cost, err := CalculateMetrics(seq, vehicle(100), m, DefaultCostPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	leg := m[0][1]
	if math.Abs(cost.TotalDistanceKm-2*leg) > 1e-12 {
		t.Fatalf("distance = %v, want %v", cost.TotalDistanceKm, 2*leg)
	}
	if len(cost.LegsKm) != 2 {
		t.Fatalf("legs = %v, want 2 entries", cost.LegsKm)
	}
}

func TestCalculateMetricsFormulas(t *testing.T) {
	ds := []*domain.Delivery{
		delivery("a", 0.1, 10),
		delivery("b", 0.3, 10),
	}
	seq, m := planFor(t, 100, ds)

	v := vehicle(100)
	v.AverageSpeed = 30
	v.FuelEfficiency = 8

	cost, err := CalculateMetrics(seq, v, m, DefaultCostPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dist := m[0][1] + m[1][2] + m[2][0]
	duration := dist / 30 * 60
	fuel := dist / 8

	checks := []struct {
		name      string
		got, want float64
	}{
		{"distance", cost.TotalDistanceKm, dist},
		{"duration", cost.DurationMin, duration},
		{"fuel", cost.FuelLiters, fuel},
		{"co2", cost.CO2Kg, fuel * 2.31},
		{"cost", cost.TotalCost, fuel*1.5 + duration*0.5},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestCalculateMetricsDefaultsUnsetVehicleFigures(t *testing.T) {
	ds := []*domain.Delivery{delivery("a", 0.1, 10)}
	seq, m := planFor(t, 100, ds)

	v := vehicle(100)
	v.AverageSpeed = 0
	v.FuelEfficiency = 0

	cost, err := CalculateMetrics(seq, v, m, DefaultCostPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(cost.FuelLiters-cost.TotalDistanceKm/10) > 1e-12 {
		t.Fatalf("fuel = %v, want distance/10", cost.FuelLiters)
	}
	if math.Abs(cost.DurationMin-cost.TotalDistanceKm/40*60) > 1e-12 {
		t.Fatalf("duration = %v, want distance/40*60", cost.DurationMin)
	}
}
