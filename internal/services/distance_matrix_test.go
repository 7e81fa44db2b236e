package services

import (
	"fleet-route-optimizer/internal/domain"
	"testing"
)

func TestBuildDistanceMatrixSymmetricZeroDiagonal(t *testing.T) {
	wps := []domain.Coordinates{
		{Lon: 0, Lat: 0},
		{Lon: 0.01, Lat: 0.02},
		{Lon: -0.03, Lat: 0.01},
		{Lon: 0.05, Lat: -0.04},
	}

	m := BuildDistanceMatrix(wps)
	if m.Size() != len(wps) {
		t.Fatalf("size = %d, want %d", m.Size(), len(wps))
	}

	for i := range m {
		if len(m[i]) != len(wps) {
			t.Fatalf("row %d has %d columns", i, len(m[i]))
		}
		if m[i][i] != 0 {
			t.Fatalf("m[%d][%d] = %v, want 0", i, i, m[i][i])
		}
		for j := range m[i] {
			if m[i][j] != m[j][i] {
				t.Fatalf("m[%d][%d]=%v != m[%d][%d]=%v", i, j, m[i][j], j, i, m[j][i])
			}
			if m[i][j] != HaversineKm(wps[i], wps[j]) && m[i][j] != HaversineKm(wps[j], wps[i]) {
				t.Fatalf("m[%d][%d] does not match haversine", i, j)
			}
		}
	}
}

func TestBuildDistanceMatrixEmpty(t *testing.T) {
	m := BuildDistanceMatrix(nil)
	if m.Size() != 1 || len(m[0]) != 1 || m[0][0] != 0 {
		t.Fatalf("expected 1x1 zero matrix, got %v", m)
	}
}

func TestBuildDistanceMatrixStartOnly(t *testing.T) {
	m := BuildDistanceMatrix([]domain.Coordinates{{Lon: 10, Lat: 10}})
	if m.Size() != 1 || m[0][0] != 0 {
		t.Fatalf("expected 1x1 zero matrix, got %v", m)
	}
}
