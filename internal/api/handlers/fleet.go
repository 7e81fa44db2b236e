package handlers

import (
	"fleet-route-optimizer/internal/api/dto"
	"fleet-route-optimizer/internal/services"
	"net/http"
)

// FleetHandler exposes vehicles and deliveries.
type FleetHandler struct {
	Fleet *services.FleetService
}

func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vs, err := h.Fleet.ListVehicles(r.Context())
	if err != nil {
		writeServiceError(w, r, "list vehicles", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ListVehiclesResponse{Vehicles: nonNil(vs)})
}

func (h *FleetHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Fleet.ListDeliveries(r.Context())
	if err != nil {
		writeServiceError(w, r, "list deliveries", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ListDeliveriesResponse{Deliveries: nonNil(ds)})
}

func (h *FleetHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req dto.VehicleLocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := h.Fleet.UpdateVehicleLocation(r.Context(), r.PathValue("id"), req.Location)
	if err != nil {
		writeServiceError(w, r, "update vehicle location", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.VehicleResponse{Vehicle: v})
}
