package notify

import (
	"context"
	"encoding/json"
	"fleet-route-optimizer/internal/ports"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Envelope is the message published on every channel.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

func RouteChannel(routeID string) string     { return "route:" + routeID }
func VehicleChannel(vehicleID string) string { return "vehicle:" + vehicleID }

// RedisBus publishes notifications with Redis PUBLISH, one channel per
// route or vehicle.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// NewRedisBusFromURL parses a redis:// URL and checks connectivity.
func NewRedisBusFromURL(ctx context.Context, rawURL string) (*RedisBus, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis bus: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis bus: ping: %w", err)
	}
	return &RedisBus{client: client}, nil
}

func (b *RedisBus) publish(ctx context.Context, channel, event string, payload any) error {
	msg, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("redis bus: encode %s: %w", event, err)
	}
	if err := b.client.Publish(ctx, channel, msg).Err(); err != nil {
		return fmt.Errorf("redis bus: publish %s on %s: %w", event, channel, err)
	}
	return nil
}

func (b *RedisBus) PublishRouteReoptimized(ctx context.Context, ev ports.RouteReoptimizedEvent) error {
	return b.publish(ctx, RouteChannel(ev.RouteID), ports.EventRouteReoptimized, ev)
}

func (b *RedisBus) PublishVehicleLocation(ctx context.Context, ev ports.VehicleLocationEvent) error {
	return b.publish(ctx, VehicleChannel(ev.VehicleID), ports.EventVehicleLocation, ev)
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
