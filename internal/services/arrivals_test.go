package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var depart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestEstimateArrivalsEven(t *testing.T) {
	cost := RouteCost{DurationMin: 30, LegsKm: []float64{5, 5, 10}}

	got := EstimateArrivalsEven(2, depart, cost, 5)

	require.Len(t, got, 2)
	assert.Equal(t, depart.Add(20*time.Minute), got[0])
	assert.Equal(t, depart.Add(40*time.Minute), got[1])
}

func TestEstimateArrivalsPerLeg(t *testing.T) {
	// 40 km/h: 10 km takes 15 minutes.
	cost := RouteCost{DurationMin: 45, LegsKm: []float64{10, 10, 10}}

	got := EstimateArrivalsPerLeg(2, depart, cost, vehicle(100), 5)

	require.Len(t, got, 2)
	assert.Equal(t, depart.Add(20*time.Minute), got[0])
	assert.Equal(t, depart.Add(40*time.Minute), got[1])
}

func TestEstimateArrivalsModesDiffer(t *testing.T) {
	cost := RouteCost{DurationMin: 45, LegsKm: []float64{2, 8, 20}}
	v := vehicle(100)

	even := EstimateArrivals(ETAEven, 2, depart, cost, v, 5)
	perLeg := EstimateArrivals(ETAPerLeg, 2, depart, cost, v, 5)

	require.Len(t, even, 2)
	require.Len(t, perLeg, 2)
	assert.Equal(t, depart.Add(time.Duration(27.5*float64(time.Minute))), even[0])
	assert.Equal(t, depart.Add(8*time.Minute), perLeg[0])
	assert.True(t, perLeg[1].Before(even[1]))
}

func TestEstimateArrivalsEmpty(t *testing.T) {
	assert.Empty(t, EstimateArrivalsEven(0, depart, RouteCost{}, 5))
	assert.Empty(t, EstimateArrivalsPerLeg(0, depart, RouteCost{}, vehicle(1), 5))
}

func TestParseETAMode(t *testing.T) {
	m, err := ParseETAMode("")
	require.NoError(t, err)
	assert.Equal(t, ETAEven, m)

	m, err = ParseETAMode("per-leg")
	require.NoError(t, err)
	assert.Equal(t, ETAPerLeg, m)

	_, err = ParseETAMode("fastest")
	assert.Error(t, err)
}
