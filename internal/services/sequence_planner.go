package services

import (
	"errors"
	"fleet-route-optimizer/internal/domain"
	"fmt"
	"math"
)

// Sequence is the output of one planning pass.
//
// Deliveries are in visiting order and MatrixIndex[i] is the row of
// Deliveries[i] in the distance matrix the pass was planned against.
// Unassigned holds the deliveries that never fit the remaining capacity;
// they stay pending outside the route.
type Sequence struct {
	Deliveries  []*domain.Delivery
	MatrixIndex []int
	Unassigned  []*domain.Delivery
	LoadKg      float64
}

// Len returns the number of selected stops.
func (s Sequence) Len() int { return len(s.Deliveries) }

// UnassignedIDs lists the ids left out of the pass, in input order.
func (s Sequence) UnassignedIDs() []string {
	ids := make([]string, 0, len(s.Unassigned))
	for _, d := range s.Unassigned {
		ids = append(ids, d.ID)
	}
	return ids
}

// Waypoints returns start followed by the selected stops in visiting order.
func (s Sequence) Waypoints(start domain.Coordinates) []domain.Coordinates {
	out := make([]domain.Coordinates, 0, 1+len(s.Deliveries))
	out = append(out, start)
	for _, d := range s.Deliveries {
		out = append(out, d.Location)
	}
	return out
}

// Plan a visiting order using a greedy nearest-neighbor heuristic under a
// weight capacity.
//
// At each step the unvisited deliveries are scanned in input order; those
// that still fit the capacity are candidates and the nearest one (from the
// current position) is taken. Ties go to the earliest input index because
// the comparison is strict. The pass ends when nothing is left or nothing
// fits. This does not attempt global optimization.
//
// deliveries[i] must correspond to row i+1 of matrix.
func PlanSequence(
	deliveries []*domain.Delivery,
	capacityKg float64,
	matrix DistanceMatrix,
) (Sequence, error) {
	if matrix.Size() != len(deliveries)+1 {
		return Sequence{}, fmt.Errorf(
			"plan sequence: matrix size %d does not match %d deliveries plus start",
			matrix.Size(), len(deliveries),
		)
	}
	if !(capacityKg > 0) {
		return Sequence{}, errors.New("plan sequence: capacity must be positive")
	}

	if len(deliveries) == 0 {
		return Sequence{
			Deliveries:  []*domain.Delivery{},
			MatrixIndex: []int{},
			Unassigned:  []*domain.Delivery{},
		}, nil
	}

	// unvisited holds input positions, kept in input order.
	unvisited := make([]int, len(deliveries))
	for i := range deliveries {
		unvisited[i] = i
	}

	seq := Sequence{
		Deliveries:  make([]*domain.Delivery, 0, len(deliveries)),
		MatrixIndex: make([]int, 0, len(deliveries)),
	}
	currentIndex := 0
	currentWeight := 0.0

	for len(unvisited) > 0 {
		best := -1
		bestDistance := math.Inf(1)

		// Select next stop by minimum distance (greedy step).
		for pos, idx := range unvisited {
			d := deliveries[idx]
			if currentWeight+d.Weight > capacityKg {
				continue
			}
			dist := matrix[currentIndex][idx+1]
			if dist < bestDistance {
				bestDistance = dist
				best = pos
			}
		}

		if best == -1 {
			break
		}

		idx := unvisited[best]
		selected := deliveries[idx]
		seq.Deliveries = append(seq.Deliveries, selected)
		seq.MatrixIndex = append(seq.MatrixIndex, idx+1)
		currentWeight += selected.Weight
		currentIndex = idx + 1

		unvisited = append(unvisited[:best], unvisited[best+1:]...)
	}

	seq.LoadKg = currentWeight
	seq.Unassigned = make([]*domain.Delivery, 0, len(unvisited))
	for _, idx := range unvisited {
		seq.Unassigned = append(seq.Unassigned, deliveries[idx])
	}

	return seq, nil
}
