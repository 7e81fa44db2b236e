package dto

import "fleet-route-optimizer/internal/domain"

type ListVehiclesResponse struct {
	Vehicles []*domain.Vehicle `json:"vehicles"`
}

type ListDeliveriesResponse struct {
	Deliveries []*domain.Delivery `json:"deliveries"`
}

type VehicleLocationRequest struct {
	Location domain.Coordinates `json:"location"`
}

type VehicleResponse struct {
	Vehicle *domain.Vehicle `json:"vehicle"`
}
