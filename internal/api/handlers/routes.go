package handlers

import (
	"fleet-route-optimizer/internal/api/dto"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/services"
	"net/http"
	"strings"
)

// RouteHandler exposes route planning, progress and re-optimization.
type RouteHandler struct {
	Planner     *services.RoutePlanner
	Reoptimizer *services.IncidentReoptimizer
	Routes      *services.RouteService
}

func (h *RouteHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	svcReq := services.PlanRouteRequest{
		VehicleID:   strings.TrimSpace(req.VehicleID),
		DeliveryIDs: req.DeliveryIDs,
		Start:       req.Start,
	}
	if req.DepartAt != nil {
		svcReq.DepartAt = *req.DepartAt
	}

	res, err := h.Planner.PlanRoute(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, r, "plan route", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.PlanRouteResponse{
		Route:      toRouteResponse(res.Route),
		Unassigned: nonNil(res.Unassigned),
	})
}

func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	routes, err := h.Routes.ListRoutes(r.Context())
	if err != nil {
		writeServiceError(w, r, "list routes", err)
		return
	}

	res := dto.ListRoutesResponse{Routes: make([]dto.RouteResponse, 0, len(routes))}
	for _, rt := range routes {
		res.Routes = append(res.Routes, toRouteResponse(rt))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	route, err := h.Routes.GetRoute(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, "get route", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toRouteResponse(route))
}

func (h *RouteHandler) Reoptimize(w http.ResponseWriter, r *http.Request) {
	var req dto.ReoptimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.Reoptimizer.ReportIncident(r.Context(), services.ReportIncidentRequest{
		RouteID: r.PathValue("id"),
		Incident: domain.Incident{
			Type:        strings.TrimSpace(req.Incident.Type),
			Location:    req.Incident.Location,
			Description: req.Incident.Description,
			Severity:    domain.Severity(req.Incident.Severity),
		},
		CurrentLocation: req.CurrentLocation,
	})
	if err != nil {
		writeServiceError(w, r, "reoptimize route", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ReoptimizeResponse{
		Route:      toRouteResponse(res.Route),
		Replanned:  res.Replanned,
		Message:    res.Message,
		Unassigned: nonNil(res.Unassigned),
		AvoidArea:  res.AvoidArea,
	})
}

func (h *RouteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.RouteStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	route, err := h.Routes.TransitionRoute(r.Context(), r.PathValue("id"), domain.RouteStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, "update route status", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toRouteResponse(route))
}

func (h *RouteHandler) UpdateStopStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.StopStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	route, err := h.Routes.UpdateStopStatus(
		r.Context(),
		r.PathValue("id"),
		r.PathValue("deliveryId"),
		domain.StopStatus(req.Status),
		req.ActualArrival,
	)
	if err != nil {
		writeServiceError(w, r, "update stop status", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toRouteResponse(route))
}

func toRouteResponse(r *domain.Route) dto.RouteResponse {
	stops := make([]dto.StopResponse, 0, len(r.Stops))
	for _, s := range r.Stops {
		stops = append(stops, dto.StopResponse{
			DeliveryID:       s.DeliveryID,
			Sequence:         s.Sequence,
			EstimatedArrival: s.EstimatedArrival,
			ActualArrival:    s.ActualArrival,
			Status:           string(s.Status),
		})
	}

	return dto.RouteResponse{
		ID:                 r.ID,
		VehicleID:          r.VehicleID,
		Status:             string(r.Status),
		Stops:              stops,
		Geometry:           r.Geometry,
		TotalDistanceKm:    r.TotalDistanceKm,
		EstimatedDuration:  r.EstimatedDuration,
		Metrics:            r.Metrics,
		TrafficPredictions: nonNil(r.TrafficPredictions),
		Incidents:          nonNil(r.Incidents),
		DepartAt:           r.DepartAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// nonNil keeps empty lists as [] rather than null in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
