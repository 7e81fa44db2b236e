package handlers

import (
	"fleet-route-optimizer/internal/api/dto"
	"fleet-route-optimizer/internal/services"
	"net/http"
)

type TrafficHandler struct {
	Predictor *services.TrafficPredictor
}

// Predict never surfaces oracle failures: those collapse into the fallback
// prediction. Only malformed input yields 400.
func (h *TrafficHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req dto.PredictTrafficRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pred, err := h.Predictor.Predict(r.Context(), req.Waypoints, services.PredictOptions{
		TimeOfDay: req.TimeOfDay,
		DayOfWeek: req.DayOfWeek,
	})
	if err != nil {
		writeServiceError(w, r, "predict traffic", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.PredictTrafficResponse{Prediction: pred})
}
