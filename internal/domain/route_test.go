package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRouteStatusTransitions(t *testing.T) {
	allowed := map[[2]RouteStatus]bool{
		{RoutePlanned, RouteActive}:    true,
		{RoutePlanned, RouteCancelled}: true,
		{RouteActive, RouteCompleted}:  true,
		{RouteActive, RouteCancelled}:  true,
	}
	all := []RouteStatus{RoutePlanned, RouteActive, RouteCompleted, RouteCancelled}

	for _, from := range all {
		for _, to := range all {
			got := from.CanTransition(to)
			if got != allowed[[2]RouteStatus{from, to}] {
				t.Errorf("%s -> %s: got %v", from, to, got)
			}
		}
	}
	if RouteActive.CanTransition("paused") {
		t.Fatalf("unknown status accepted")
	}
}

func TestRouteCloneDoesNotAlias(t *testing.T) {
	at := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	r := &Route{
		ID:        "r1",
		Stops:     []PlannedStop{{DeliveryID: "d1", Sequence: 1, Status: StopCompleted, ActualArrival: &at}},
		Geometry:  StraightLine([]Coordinates{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 1}}),
		Incidents: []Incident{{Type: "accident", Severity: SeverityLow}},
	}

	c := r.Clone()
	c.Stops[0].Status = StopPending
	*c.Stops[0].ActualArrival = at.Add(time.Hour)
	c.Geometry.Path[0].Lon = 9
	c.Incidents[0].Type = "changed"

	if r.Stops[0].Status != StopCompleted {
		t.Errorf("stop status aliased")
	}
	if !r.Stops[0].ActualArrival.Equal(at) {
		t.Errorf("actual arrival aliased")
	}
	if r.Geometry.Path[0].Lon != 0 {
		t.Errorf("geometry aliased")
	}
	if r.Incidents[0].Type != "accident" {
		t.Errorf("incidents aliased")
	}
}

func TestGeometryJSON(t *testing.T) {
	g := StraightLine([]Coordinates{{Lon: -112.07, Lat: 33.44}, {Lon: -112.06, Lat: 33.45}})

	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw struct {
		Source  string `json:"source"`
		GeoJSON struct {
			Type        string      `json:"type"`
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geojson"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw.Source != string(GeometryStraightLine) || raw.GeoJSON.Type != "LineString" {
		t.Fatalf("unexpected encoding: %s", b)
	}
	if len(raw.GeoJSON.Coordinates) != 2 || raw.GeoJSON.Coordinates[0][0] != -112.07 {
		t.Fatalf("coordinates not lon,lat ordered: %s", b)
	}

	var back Geometry
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Source != g.Source || len(back.Path) != 2 || back.Path[1] != g.Path[1] {
		t.Fatalf("got %+v, want %+v", back, g)
	}
}

func TestValidation(t *testing.T) {
	cases := map[string]error{
		"coordinates": Coordinates{Lon: 181, Lat: 0}.Validate("start"),
		"delivery":    (&Delivery{ID: "d1", Weight: -1, Priority: PriorityLow, Status: DeliveryPending}).Validate(),
		"vehicle":     (&Vehicle{ID: "v1", Status: VehicleAvailable}).Validate(),
		"incident":    (&Incident{Type: "flood", Severity: "extreme"}).Validate(),
	}
	for name, err := range cases {
		if !IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}

	d := &Delivery{ID: "d1", Weight: 1}
	d.Normalize()
	if err := d.Validate(); err != nil {
		t.Fatalf("normalized delivery rejected: %v", err)
	}
}

func TestNotFoundUnwraps(t *testing.T) {
	err := fmt.Errorf("get route: %w", &NotFoundError{Kind: "route", ID: "r1"})
	if !IsNotFound(err) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound in chain: %v", err)
	}
	if IsValidation(err) {
		t.Fatalf("not-found classified as validation")
	}
}
