package domain

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryAssigned  DeliveryStatus = "assigned"
	DeliveryInTransit DeliveryStatus = "in-transit"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Represents a single drop-off handled by the system.
// Weight is what the planner constrains on; the remaining fields are carried
// through for dispatchers and are never used by the sequencing heuristic.
type Delivery struct {
	ID                  string         `json:"id"`
	Address             string         `json:"address,omitempty"`
	CustomerName        string         `json:"customer_name,omitempty"`
	PhoneNumber         string         `json:"phone_number,omitempty"`
	Location            Coordinates    `json:"location"`
	Weight              float64        `json:"weight"`
	Volume              *float64       `json:"volume,omitempty"`
	Priority            Priority       `json:"priority"`
	Status              DeliveryStatus `json:"status"`
	SpecialInstructions string         `json:"special_instructions,omitempty"`
	EstimatedDelivery   *time.Time     `json:"estimated_delivery,omitempty"`
	ActualDelivery      *time.Time     `json:"actual_delivery,omitempty"`
}

// Fill defaults for optional enum fields.
func (d *Delivery) Normalize() {
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if d.Status == "" {
		d.Status = DeliveryPending
	}
}

// Validate checks the fields the planner depends on.
func (d *Delivery) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return &ValidationError{Field: "delivery.id", Reason: "must be non-empty"}
	}
	if err := d.Location.Validate("delivery." + d.ID + ".location"); err != nil {
		return err
	}
	if !(d.Weight > 0) {
		return &ValidationError{Field: "delivery." + d.ID + ".weight", Reason: "must be positive"}
	}
	if d.Volume != nil && *d.Volume < 0 {
		return &ValidationError{Field: "delivery." + d.ID + ".volume", Reason: "must not be negative"}
	}
	switch d.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
	default:
		return &ValidationError{Field: "delivery." + d.ID + ".priority", Reason: "unknown priority " + string(d.Priority)}
	}
	switch d.Status {
	case DeliveryPending, DeliveryAssigned, DeliveryInTransit, DeliveryDelivered, DeliveryFailed:
	default:
		return &ValidationError{Field: "delivery." + d.ID + ".status", Reason: "unknown status " + string(d.Status)}
	}
	return nil
}
