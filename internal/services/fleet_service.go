package services

import (
	"context"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/platform/obs"
	"fleet-route-optimizer/internal/ports"
	"fmt"

	"github.com/sirupsen/logrus"
)

// FleetService exposes vehicles and deliveries and tracks vehicle positions.
type FleetService struct {
	store ports.PersistenceStore
	bus   ports.NotificationBus
}

func NewFleetService(store ports.PersistenceStore, bus ports.NotificationBus) *FleetService {
	return &FleetService{store: store, bus: bus}
}

func (s *FleetService) ListVehicles(ctx context.Context) ([]*domain.Vehicle, error) {
	vs, err := s.store.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vs, nil
}

func (s *FleetService) ListDeliveries(ctx context.Context) ([]*domain.Delivery, error) {
	ds, err := s.store.ListDeliveries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return ds, nil
}

// UpdateVehicleLocation stores the new position and broadcasts it.
func (s *FleetService) UpdateVehicleLocation(ctx context.Context, vehicleID string, loc domain.Coordinates) (*domain.Vehicle, error) {
	if err := loc.Validate("location"); err != nil {
		return nil, fmt.Errorf("update vehicle location: %w", err)
	}

	v, err := s.store.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("update vehicle location: get vehicle: %w", err)
	}
	v.CurrentLocation = loc
	if err := s.store.SaveVehicle(ctx, v); err != nil {
		return nil, fmt.Errorf("update vehicle location: save vehicle: %w", err)
	}

	if s.bus != nil {
		ev := ports.VehicleLocationEvent{VehicleID: v.ID, Location: loc}
		if err := s.bus.PublishVehicleLocation(ctx, ev); err != nil {
			logrus.WithFields(logrus.Fields{
				"req_id":     obs.RequestID(ctx),
				"vehicle_id": v.ID,
			}).WithError(err).Warn("publish vehicle location failed")
		}
	}

	return v, nil
}
