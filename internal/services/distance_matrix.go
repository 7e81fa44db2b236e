package services

import "fleet-route-optimizer/internal/domain"

// DistanceMatrix holds pairwise great-circle distances (km) between waypoints.
// Index 0 is the vehicle start; 1..N are candidate stops in input order.
type DistanceMatrix [][]float64

// BuildDistanceMatrix computes the symmetric matrix for the given waypoints.
// Each unordered pair is computed once and mirrored, so symmetry is exact.
func BuildDistanceMatrix(waypoints []domain.Coordinates) DistanceMatrix {
	n := len(waypoints)
	if n == 0 {
		return DistanceMatrix{{0}}
	}

	m := make(DistanceMatrix, n)
	for i := range m {
		m[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := HaversineKm(waypoints[i], waypoints[j])
			m[i][j] = d
			m[j][i] = d
		}
	}

	return m
}

// Size returns the number of waypoints covered, start included.
func (m DistanceMatrix) Size() int { return len(m) }
