package dto

import "fleet-route-optimizer/internal/domain"

type PredictTrafficRequest struct {
	Waypoints []domain.Coordinates `json:"waypoints"`
	TimeOfDay *int                 `json:"time_of_day"`
	DayOfWeek *int                 `json:"day_of_week"`
}

type PredictTrafficResponse struct {
	Prediction domain.TrafficPrediction `json:"prediction"`
}
