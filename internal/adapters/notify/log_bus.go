package notify

import (
	"context"
	"fleet-route-optimizer/internal/ports"

	"github.com/sirupsen/logrus"
)

// LogBus only logs events. It is used when no broker is configured.
type LogBus struct{}

func (LogBus) PublishRouteReoptimized(_ context.Context, ev ports.RouteReoptimizedEvent) error {
	stops := 0
	if ev.NewPlan != nil {
		stops = len(ev.NewPlan.Stops)
	}
	logrus.WithFields(logrus.Fields{
		"event":      ports.EventRouteReoptimized,
		"channel":    RouteChannel(ev.RouteID),
		"incident":   ev.Incident.Type,
		"stops":      stops,
		"unassigned": len(ev.Unassigned),
	}).Info("notification")
	return nil
}

func (LogBus) PublishVehicleLocation(_ context.Context, ev ports.VehicleLocationEvent) error {
	logrus.WithFields(logrus.Fields{
		"event":   ports.EventVehicleLocation,
		"channel": VehicleChannel(ev.VehicleID),
		"lon":     ev.Location.Lon,
		"lat":     ev.Location.Lat,
	}).Debug("notification")
	return nil
}
