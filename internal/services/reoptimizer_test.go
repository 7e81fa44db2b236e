package services

import (
	"context"
	"fleet-route-optimizer/internal/adapters/repositories"
	"fleet-route-optimizer/internal/domain"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var completedAt = mondayRush.Add(-30 * time.Minute)

// threeStopRoute has stop 1 completed and stops 2-3 pending.
func threeStopRoute() *domain.Route {
	return &domain.Route{
		ID:        "r1",
		VehicleID: "v1",
		Stops: []domain.PlannedStop{
			{DeliveryID: "d1", Sequence: 1, EstimatedArrival: completedAt, ActualArrival: &completedAt, Status: domain.StopCompleted},
			{DeliveryID: "d2", Sequence: 2, EstimatedArrival: mondayRush, Status: domain.StopPending},
			{DeliveryID: "d3", Sequence: 3, EstimatedArrival: mondayRush.Add(time.Minute), Status: domain.StopPending},
		},
		Geometry:           domain.StraightLine([]domain.Coordinates{{}, {Lon: 0.01}, {Lon: 0.02}, {Lon: 0.05}}),
		TotalDistanceKm:    11.1,
		Incidents:          []domain.Incident{},
		TrafficPredictions: []domain.TrafficPrediction{},
		Status:             domain.RouteActive,
	}
}

func seedRoute(t *testing.T, r *domain.Route) *repositories.MemoryStore {
	t.Helper()
	store := seedStore(t, vehicle(100),
		delivery("d1", 0.01, 10),
		delivery("d2", 0.05, 10),
		delivery("d3", 0.03, 10),
	)
	require.NoError(t, store.SaveRoute(context.Background(), r))
	return store
}

func newTestReoptimizer(store *repositories.MemoryStore, bus *recordingBus, locks *RouteLocks) *IncidentReoptimizer {
	opts := PlanOptions{Policy: DefaultCostPolicy(), ETAMode: ETAEven}
	return NewIncidentReoptimizer(store, nil, bus, locks, opts).WithClock(fixedClock(mondayRush))
}

func roadClosure() domain.Incident {
	return domain.Incident{
		Type:     "road_closure",
		Location: domain.Coordinates{Lon: 0.04, Lat: 0},
		Severity: domain.SeverityHigh,
	}
}

func TestReportIncidentKeepsFrozenStops(t *testing.T) {
	store := seedRoute(t, threeStopRoute())
	bus := &recordingBus{}

	res, err := newTestReoptimizer(store, bus, nil).ReportIncident(context.Background(), ReportIncidentRequest{
		RouteID:         "r1",
		Incident:        roadClosure(),
		CurrentLocation: domain.Coordinates{Lon: 0.01, Lat: 0},
	})
	require.NoError(t, err)
	assert.True(t, res.Replanned)
	assert.Empty(t, res.Unassigned)
	assert.Equal(t, roadClosure().Location, res.AvoidArea)

	r := res.Route
	require.Len(t, r.Stops, 3)

	frozen := r.Stops[0]
	assert.Equal(t, "d1", frozen.DeliveryID)
	assert.Equal(t, 1, frozen.Sequence)
	assert.Equal(t, domain.StopCompleted, frozen.Status)
	require.NotNil(t, frozen.ActualArrival)
	assert.True(t, completedAt.Equal(*frozen.ActualArrival))

	// From lon 0.01, d3 (0.03) is nearer than d2 (0.05).
	assert.Equal(t, "d3", r.Stops[1].DeliveryID)
	assert.Equal(t, 1, r.Stops[1].Sequence)
	assert.Equal(t, domain.StopPending, r.Stops[1].Status)
	assert.Equal(t, "d2", r.Stops[2].DeliveryID)
	assert.Equal(t, 2, r.Stops[2].Sequence)

	require.Len(t, r.Incidents, 1)
	assert.Equal(t, "road_closure", r.Incidents[0].Type)
	assert.Equal(t, mondayRush, r.Incidents[0].Timestamp)

	// Totals cover the pending round trip from the current location only.
	want := HaversineKm(domain.Coordinates{Lon: 0.01}, domain.Coordinates{Lon: 0.03}) +
		HaversineKm(domain.Coordinates{Lon: 0.03}, domain.Coordinates{Lon: 0.05}) +
		HaversineKm(domain.Coordinates{Lon: 0.05}, domain.Coordinates{Lon: 0.01})
	assert.InDelta(t, want, r.TotalDistanceKm, 1e-9)
	assert.InDelta(t, want/40*60, r.EstimatedDuration, 1e-9)
	assert.Equal(t, domain.GeometryStraightLine, r.Geometry.Source)
	assert.Equal(t, domain.Coordinates{Lon: 0.01}, r.Geometry.Path[0])

	stored, err := store.GetRoute(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, r.Stops, stored.Stops)

	events := bus.routeEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "r1", events[0].RouteID)
	assert.Equal(t, "road_closure", events[0].Incident.Type)
	require.NotNil(t, events[0].NewPlan)
	assert.Len(t, events[0].NewPlan.Stops, 3)
}

func TestReportIncidentNothingToReplan(t *testing.T) {
	r := threeStopRoute()
	r.Stops[1].Status = domain.StopSkipped
	r.Stops[2].Status = domain.StopCompleted
	store := seedRoute(t, r)
	bus := &recordingBus{}

	res, err := newTestReoptimizer(store, bus, nil).ReportIncident(context.Background(), ReportIncidentRequest{
		RouteID:         "r1",
		Incident:        roadClosure(),
		CurrentLocation: domain.Coordinates{Lon: 0.01, Lat: 0},
	})
	require.NoError(t, err)

	assert.False(t, res.Replanned)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, r.Stops, res.Route.Stops)
	assert.Equal(t, r.TotalDistanceKm, res.Route.TotalDistanceKm)
	assert.Empty(t, bus.routeEvents())

	stored, err := store.GetRoute(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, stored.Incidents, 1)
}

func TestReportIncidentDropsStopsThatNoLongerFit(t *testing.T) {
	store := seedRoute(t, threeStopRoute())
	ctx := context.Background()

	// The vehicle was downsized after planning; only one pending stop fits.
	small := vehicle(15)
	require.NoError(t, store.SaveVehicle(ctx, small))

	res, err := newTestReoptimizer(store, &recordingBus{}, nil).ReportIncident(ctx, ReportIncidentRequest{
		RouteID:         "r1",
		Incident:        roadClosure(),
		CurrentLocation: domain.Coordinates{Lon: 0.01, Lat: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"d2"}, res.Unassigned)
	require.Len(t, res.Route.Stops, 2)
	assert.Equal(t, "d3", res.Route.Stops[1].DeliveryID)
	assert.Equal(t, 1, res.Route.Stops[1].Sequence)

	d2, err := store.GetDelivery(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryPending, d2.Status)
	assert.Nil(t, d2.EstimatedDelivery)
}

func TestReportIncidentRejections(t *testing.T) {
	tests := []struct {
		name         string
		status       domain.RouteStatus
		req          ReportIncidentRequest
		wantNotFound bool
	}{
		{
			name:   "completed route",
			status: domain.RouteCompleted,
			req:    ReportIncidentRequest{RouteID: "r1", Incident: roadClosure()},
		},
		{
			name:   "cancelled route",
			status: domain.RouteCancelled,
			req:    ReportIncidentRequest{RouteID: "r1", Incident: roadClosure()},
		},
		{
			name:   "bad severity",
			status: domain.RouteActive,
			req:    ReportIncidentRequest{RouteID: "r1", Incident: domain.Incident{Type: "x", Severity: "extreme"}},
		},
		{
			name:   "bad location",
			status: domain.RouteActive,
			req:    ReportIncidentRequest{RouteID: "r1", Incident: roadClosure(), CurrentLocation: domain.Coordinates{Lon: 200}},
		},
		{
			name:         "unknown route",
			status:       domain.RouteActive,
			req:          ReportIncidentRequest{RouteID: "nope", Incident: roadClosure()},
			wantNotFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := threeStopRoute()
			r.Status = tt.status
			store := seedRoute(t, r)

			_, err := newTestReoptimizer(store, &recordingBus{}, nil).ReportIncident(context.Background(), tt.req)
			require.Error(t, err)
			if tt.wantNotFound {
				assert.True(t, domain.IsNotFound(err), "got %v", err)
			} else {
				assert.True(t, domain.IsValidation(err), "got %v", err)
			}

			stored, err := store.GetRoute(context.Background(), "r1")
			require.NoError(t, err)
			assert.Empty(t, stored.Incidents)
			assert.Equal(t, r.Stops, stored.Stops)
		})
	}
}

func TestReportIncidentPublishFailureKeepsReplan(t *testing.T) {
	store := seedRoute(t, threeStopRoute())
	bus := &recordingBus{err: fmt.Errorf("broker down")}

	res, err := newTestReoptimizer(store, bus, nil).ReportIncident(context.Background(), ReportIncidentRequest{
		RouteID:         "r1",
		Incident:        roadClosure(),
		CurrentLocation: domain.Coordinates{Lon: 0.01, Lat: 0},
	})
	require.NoError(t, err)
	assert.True(t, res.Replanned)
}

func TestConcurrentIncidentsAndStopUpdates(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, vehicle(1000))

	r := &domain.Route{ID: "r1", VehicleID: "v1", Status: domain.RouteActive}
	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("d%02d", i)
		require.NoError(t, store.SaveDelivery(ctx, delivery(id, float64(i)*0.01, 10)))
		r.Stops = append(r.Stops, domain.PlannedStop{DeliveryID: id, Sequence: i, Status: domain.StopPending})
	}
	r.Stops[0].Status = domain.StopCompleted
	r.Stops[0].ActualArrival = &completedAt
	require.NoError(t, store.SaveRoute(ctx, r))

	locks := NewRouteLocks()
	reopt := newTestReoptimizer(store, &recordingBus{}, locks)
	routes := NewRouteService(store, locks).WithClock(fixedClock(mondayRush))

	const incidents = 16
	var wg sync.WaitGroup
	for i := 0; i < incidents; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reopt.ReportIncident(ctx, ReportIncidentRequest{
				RouteID: "r1",
				Incident: domain.Incident{
					Type:     fmt.Sprintf("incident-%d", i),
					Location: domain.Coordinates{Lon: 0.05},
					Severity: domain.SeverityMedium,
				},
				CurrentLocation: domain.Coordinates{Lon: float64(i%5) * 0.02},
			})
			assert.NoError(t, err)
		}(i)
	}
	for _, id := range []string{"d03", "d07"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := routes.UpdateStopStatus(ctx, "r1", id, domain.StopCompleted, nil)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	got, err := store.GetRoute(ctx, "r1")
	require.NoError(t, err)

	// No incident report was lost to an interleaved write.
	assert.Len(t, got.Incidents, incidents)
	require.Len(t, got.Stops, 12)

	assert.Equal(t, "d01", got.Stops[0].DeliveryID)
	assert.Equal(t, 1, got.Stops[0].Sequence)
	assert.Equal(t, domain.StopCompleted, got.Stops[0].Status)

	pendingSeq := 0
	completed := map[string]bool{}
	for _, s := range got.Stops {
		if s.Status.Frozen() {
			completed[s.DeliveryID] = true
			continue
		}
		pendingSeq++
		assert.Equal(t, pendingSeq, s.Sequence, "pending stops must be numbered contiguously")
	}
	assert.True(t, completed["d03"])
	assert.True(t, completed["d07"])
	assert.Equal(t, 9, pendingSeq)
	assert.Equal(t, 0, locks.held())
}

func TestReplanPendingWithoutPendingIsNoop(t *testing.T) {
	r := threeStopRoute()
	r.Stops = r.Stops[:1]
	before := r.Clone()

	out, err := ReplanPending(r, vehicle(100), nil, domain.Coordinates{}, mondayRush, PlanOptions{Policy: DefaultCostPolicy()})
	require.NoError(t, err)
	assert.False(t, out.Replanned)
	assert.Equal(t, before.Stops, r.Stops)
	assert.Equal(t, before.TotalDistanceKm, r.TotalDistanceKm)
	assert.Equal(t, before.UpdatedAt, r.UpdatedAt)
}

func TestReplanPendingMissingDelivery(t *testing.T) {
	r := threeStopRoute()
	_, err := ReplanPending(r, vehicle(100), map[string]*domain.Delivery{}, domain.Coordinates{}, mondayRush, PlanOptions{Policy: DefaultCostPolicy()})
	assert.True(t, domain.IsNotFound(err))
}

func TestReportIncidentFailedSaveDoesNotPublish(t *testing.T) {
	mem := seedRoute(t, threeStopRoute())
	bus := &recordingBus{}
	opts := PlanOptions{Policy: DefaultCostPolicy(), ETAMode: ETAEven}
	reopt := NewIncidentReoptimizer(failingWrites{mem}, nil, bus, nil, opts).WithClock(fixedClock(mondayRush))

	_, err := reopt.ReportIncident(context.Background(), ReportIncidentRequest{
		RouteID:         "r1",
		Incident:        roadClosure(),
		CurrentLocation: domain.Coordinates{Lon: 0.01, Lat: 0},
	})
	require.ErrorIs(t, err, errDiskFull)
	assert.Empty(t, bus.routeEvents())

	stored, err := mem.GetRoute(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, stored.Incidents)
	assert.Equal(t, 2, stored.Stops[1].Sequence)
}

func TestReportIncidentKeepsIncidentWhenVehicleIsGone(t *testing.T) {
	r := threeStopRoute()
	r.VehicleID = "retired"
	store := seedRoute(t, r)
	bus := &recordingBus{}

	_, err := newTestReoptimizer(store, bus, nil).ReportIncident(context.Background(), ReportIncidentRequest{
		RouteID:         "r1",
		Incident:        roadClosure(),
		CurrentLocation: domain.Coordinates{Lon: 0.01, Lat: 0},
	})
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err), "got %v", err)
	assert.Empty(t, bus.routeEvents())

	stored, err := store.GetRoute(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, stored.Incidents, 1)
	assert.Equal(t, "road_closure", stored.Incidents[0].Type)
	assert.Equal(t, mondayRush, stored.Incidents[0].Timestamp)
	// Stops are untouched because nothing was re-planned.
	assert.Equal(t, 2, stored.Stops[1].Sequence)
	assert.Equal(t, domain.StopPending, stored.Stops[1].Status)
}
