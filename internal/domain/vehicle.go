package domain

import "strings"

const (
	DefaultAverageSpeedKmh   = 40.0
	DefaultFuelEfficiencyKmL = 10.0
)

type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "available"
	VehicleBusy        VehicleStatus = "busy"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleOffline     VehicleStatus = "offline"
)

type Capacity struct {
	Weight float64  `json:"weight"`
	Volume *float64 `json:"volume,omitempty"`
}

// Delivery vehicle. One vehicle is planned per call; capacity.weight bounds
// the cumulative load at every prefix of its route.
type Vehicle struct {
	ID              string        `json:"id"`
	DriverName      string        `json:"driver_name,omitempty"`
	VehicleType     string        `json:"vehicle_type,omitempty"`
	Capacity        Capacity      `json:"capacity"`
	CurrentLocation Coordinates   `json:"current_location"`
	Status          VehicleStatus `json:"status"`
	AverageSpeed    float64       `json:"average_speed"`
	FuelEfficiency  float64       `json:"fuel_efficiency"`
}

func (v *Vehicle) Normalize() {
	if v.Status == "" {
		v.Status = VehicleAvailable
	}
	if v.AverageSpeed == 0 {
		v.AverageSpeed = DefaultAverageSpeedKmh
	}
	if v.FuelEfficiency == 0 {
		v.FuelEfficiency = DefaultFuelEfficiencyKmL
	}
}

// Speed returns the average speed, falling back to the default when unset.
func (v *Vehicle) Speed() float64 {
	if v.AverageSpeed > 0 {
		return v.AverageSpeed
	}
	return DefaultAverageSpeedKmh
}

// Efficiency returns km per liter, falling back to the default when unset.
func (v *Vehicle) Efficiency() float64 {
	if v.FuelEfficiency > 0 {
		return v.FuelEfficiency
	}
	return DefaultFuelEfficiencyKmL
}

func (v *Vehicle) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return &ValidationError{Field: "vehicle.id", Reason: "must be non-empty"}
	}
	if !(v.Capacity.Weight > 0) {
		return &ValidationError{Field: "vehicle.capacity.weight", Reason: "must be positive"}
	}
	if v.AverageSpeed < 0 {
		return &ValidationError{Field: "vehicle.average_speed", Reason: "must not be negative"}
	}
	if v.FuelEfficiency < 0 {
		return &ValidationError{Field: "vehicle.fuel_efficiency", Reason: "must not be negative"}
	}
	switch v.Status {
	case VehicleAvailable, VehicleBusy, VehicleMaintenance, VehicleOffline:
	default:
		return &ValidationError{Field: "vehicle.status", Reason: "unknown status " + string(v.Status)}
	}
	return v.CurrentLocation.Validate("vehicle.current_location")
}
