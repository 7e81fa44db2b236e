package domain

import (
	"strings"
	"time"
)

type RouteStatus string

const (
	RoutePlanned   RouteStatus = "planned"
	RouteActive    RouteStatus = "active"
	RouteCompleted RouteStatus = "completed"
	RouteCancelled RouteStatus = "cancelled"
)

// Terminal routes are owned by the store and no longer re-planned.
func (s RouteStatus) Terminal() bool {
	return s == RouteCompleted || s == RouteCancelled
}

var routeTransitions = map[RouteStatus][]RouteStatus{
	RoutePlanned: {RouteActive, RouteCancelled},
	RouteActive:  {RouteCompleted, RouteCancelled},
}

// CanTransition reports whether a route may move from s to next.
func (s RouteStatus) CanTransition(next RouteStatus) bool {
	for _, allowed := range routeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type StopStatus string

const (
	StopPending   StopStatus = "pending"
	StopCompleted StopStatus = "completed"
	StopSkipped   StopStatus = "skipped"
)

// Frozen stops are never touched again by re-planning.
func (s StopStatus) Frozen() bool {
	return s == StopCompleted || s == StopSkipped
}

// Represents a single stop in a delivery route.
// Sequence is 1-based and contiguous within the planning pass that produced it.
type PlannedStop struct {
	DeliveryID       string     `json:"delivery_id"`
	Sequence         int        `json:"sequence"`
	EstimatedArrival time.Time  `json:"estimated_arrival"`
	ActualArrival    *time.Time `json:"actual_arrival,omitempty"`
	Status           StopStatus `json:"status"`
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Incident reported against an active route (road closure, accident, ...).
type Incident struct {
	Type        string      `json:"type"`
	Location    Coordinates `json:"location"`
	Description string      `json:"description,omitempty"`
	Severity    Severity    `json:"severity"`
	Timestamp   time.Time   `json:"timestamp"`
}

func (i *Incident) Validate() error {
	if strings.TrimSpace(i.Type) == "" {
		return &ValidationError{Field: "incident.type", Reason: "must be non-empty"}
	}
	switch i.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return &ValidationError{Field: "incident.severity", Reason: "unknown severity " + string(i.Severity)}
	}
	return i.Location.Validate("incident.location")
}

type RouteMetrics struct {
	TotalCost       float64 `json:"total_cost"`
	FuelConsumption float64 `json:"fuel_consumption"`
	CO2Emissions    float64 `json:"co2_emissions"`
}

// Represents the planned delivery route for a single vehicle.
// A Route is created by one planning run and afterwards only mutated through
// re-planning, stop status updates and status transitions.
type Route struct {
	ID                 string              `json:"id"`
	VehicleID          string              `json:"vehicle_id"`
	Stops              []PlannedStop       `json:"stops"`
	Geometry           Geometry            `json:"geometry"`
	TotalDistanceKm    float64             `json:"total_distance_km"`
	EstimatedDuration  float64             `json:"estimated_duration_min"`
	Metrics            RouteMetrics        `json:"metrics"`
	TrafficPredictions []TrafficPrediction `json:"traffic_predictions"`
	Incidents          []Incident          `json:"incidents"`
	Status             RouteStatus         `json:"status"`
	DepartAt           time.Time           `json:"depart_at"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// StopFor returns the index of the stop referencing deliveryID, or -1.
func (r *Route) StopFor(deliveryID string) int {
	for i := range r.Stops {
		if r.Stops[i].DeliveryID == deliveryID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (r *Route) Clone() *Route {
	if r == nil {
		return nil
	}
	out := *r
	out.Stops = make([]PlannedStop, len(r.Stops))
	for i, s := range r.Stops {
		if s.ActualArrival != nil {
			t := *s.ActualArrival
			s.ActualArrival = &t
		}
		out.Stops[i] = s
	}
	out.Geometry = r.Geometry.Clone()
	out.TrafficPredictions = make([]TrafficPrediction, len(r.TrafficPredictions))
	for i, p := range r.TrafficPredictions {
		out.TrafficPredictions[i] = p.Clone()
	}
	out.Incidents = append([]Incident(nil), r.Incidents...)
	return &out
}
