package mapping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/platform/httpx"
	"fleet-route-optimizer/internal/platform/obs"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const (
	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultProfile = "driving-car"
)

// GeometryCache stores road geometry per waypoint list.
type GeometryCache interface {
	Get(ctx context.Context, waypoints []domain.Coordinates) (domain.Geometry, bool, error)
	Put(ctx context.Context, waypoints []domain.Coordinates, g domain.Geometry) error
}

// ORSDirections implements MapRoutingService using the OpenRouteService
// directions endpoint.
//
// It coordinates:
//   - Persistent geometry caching
//   - External API calls with retry/backoff
//
// The client is safe for concurrent use.
type ORSDirections struct {
	client  *httpx.Client
	apiKey  string
	baseURL string
	profile string
	cache   GeometryCache
}

type ORSOption func(*ORSDirections)

func WithBaseURL(u string) ORSOption { return func(o *ORSDirections) { o.baseURL = u } }

func WithProfile(p string) ORSOption {
	return func(o *ORSDirections) {
		if p != "" {
			o.profile = p
		}
	}
}

func WithCache(c GeometryCache) ORSOption { return func(o *ORSDirections) { o.cache = c } }

func WithClient(c *httpx.Client) ORSOption { return func(o *ORSDirections) { o.client = c } }

func NewORSDirections(apiKey string, timeout time.Duration, opts ...ORSOption) (*ORSDirections, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	o := &ORSDirections{
		client:  httpx.NewClient(timeout),
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		profile: DefaultProfile,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// Directions returns the road geometry through waypoints in order.
func (o *ORSDirections) Directions(
	ctx context.Context,
	waypoints []domain.Coordinates,
) (_ domain.Geometry, err error) {
	defer obs.Time(ctx, "ors.Directions")(&err)

	if len(waypoints) < 2 {
		return domain.Geometry{}, errors.New("ORS directions: need at least two waypoints")
	}

	// Check persistent geometry cache before issuing external API calls.
	if o.cache != nil {
		g, ok, err := o.cache.Get(ctx, waypoints)
		if err != nil {
			logrus.WithError(err).Warn("geometry cache read failed")
		} else if ok {
			return g, nil
		}
	}

	g, err := o.fetch(ctx, waypoints)
	if err != nil {
		return domain.Geometry{}, fmt.Errorf("ORS directions: %w", err)
	}

	if o.cache != nil {
		if err := o.cache.Put(ctx, waypoints, g); err != nil {
			logrus.WithError(err).Warn("geometry cache write failed")
		}
	}

	return g, nil
}

func (o *ORSDirections) fetch(ctx context.Context, waypoints []domain.Coordinates) (domain.Geometry, error) {
	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", o.baseURL, o.profile)

	coords := make([][]float64, 0, len(waypoints))
	for _, w := range waypoints {
		coords = append(coords, w.CoordsToList())
	}
	payload, err := json.Marshal(directionsRequest{Coordinates: coords})
	if err != nil {
		return domain.Geometry{}, fmt.Errorf("marshal directions request: %w", err)
	}

	resp, err := o.client.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", o.apiKey)
		req.Header.Set("Accept", "application/geo+json, application/json")
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return domain.Geometry{}, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var fc geojson.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.Geometry{}, fmt.Errorf("decode directions response: %w", err)
	}
	if len(fc.Features) == 0 || fc.Features[0] == nil {
		return domain.Geometry{}, errors.New("directions response has no features")
	}

	ls, ok := fc.Features[0].Geometry.(*geom.LineString)
	if !ok {
		return domain.Geometry{}, fmt.Errorf("directions geometry is %T, want LineString", fc.Features[0].Geometry)
	}
	if ls.NumCoords() < 2 {
		return domain.Geometry{}, errors.New("directions geometry has fewer than two points")
	}

	return domain.GeometryFromLineString(ls, domain.GeometryMap), nil
}
