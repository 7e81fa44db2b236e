package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinates (longitude, latitude) in WGS84 degrees.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Validate rejects non-finite values and out-of-range degrees.
func (c Coordinates) Validate(field string) error {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsInf(c.Lon, 0) || math.IsInf(c.Lat, 0) {
		return &ValidationError{Field: field, Reason: "coordinates must be finite"}
	}
	if c.Lon < -180 || c.Lon > 180 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("longitude %v out of range [-180, 180]", c.Lon)}
	}
	if c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("latitude %v out of range [-90, 90]", c.Lat)}
	}
	return nil
}
