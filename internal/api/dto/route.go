package dto

import (
	"fleet-route-optimizer/internal/domain"
	"time"
)

type PlanRouteRequest struct {
	VehicleID   string              `json:"vehicle_id"`
	DeliveryIDs []string            `json:"delivery_ids"`
	Start       *domain.Coordinates `json:"start"`
	DepartAt    *time.Time          `json:"depart_at"`
}

type StopResponse struct {
	DeliveryID       string     `json:"delivery_id"`
	Sequence         int        `json:"sequence"`
	EstimatedArrival time.Time  `json:"estimated_arrival"`
	ActualArrival    *time.Time `json:"actual_arrival,omitempty"`
	Status           string     `json:"status"`
}

type RouteResponse struct {
	ID                 string                     `json:"id"`
	VehicleID          string                     `json:"vehicle_id"`
	Status             string                     `json:"status"`
	Stops              []StopResponse             `json:"stops"`
	Geometry           domain.Geometry            `json:"geometry"`
	TotalDistanceKm    float64                    `json:"total_distance_km"`
	EstimatedDuration  float64                    `json:"estimated_duration_min"`
	Metrics            domain.RouteMetrics        `json:"metrics"`
	TrafficPredictions []domain.TrafficPrediction `json:"traffic_predictions"`
	Incidents          []domain.Incident          `json:"incidents"`
	DepartAt           time.Time                  `json:"depart_at"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

type PlanRouteResponse struct {
	Route      RouteResponse `json:"route"`
	Unassigned []string      `json:"unassigned"`
}

type ListRoutesResponse struct {
	Routes []RouteResponse `json:"routes"`
}

type IncidentRequest struct {
	Type        string             `json:"type"`
	Location    domain.Coordinates `json:"location"`
	Description string             `json:"description"`
	Severity    string             `json:"severity"`
}

type ReoptimizeRequest struct {
	Incident        IncidentRequest    `json:"incident"`
	CurrentLocation domain.Coordinates `json:"current_location"`
}

type ReoptimizeResponse struct {
	Route      RouteResponse      `json:"route"`
	Replanned  bool               `json:"replanned"`
	Message    string             `json:"message,omitempty"`
	Unassigned []string           `json:"unassigned"`
	AvoidArea  domain.Coordinates `json:"avoid_area"`
}

type RouteStatusRequest struct {
	Status string `json:"status"`
}

type StopStatusRequest struct {
	Status        string     `json:"status"`
	ActualArrival *time.Time `json:"actual_arrival"`
}
