package domain

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

type GeometrySource string

const (
	GeometryMap          GeometrySource = "map"
	GeometryStraightLine GeometrySource = "straight-line"
)

// Geometry is the drawable path of a route. It is serialized as a GeoJSON
// LineString plus the source it came from.
type Geometry struct {
	Path   []Coordinates
	Source GeometrySource
}

// StraightLine joins the waypoints in order without road geometry.
func StraightLine(waypoints []Coordinates) Geometry {
	return Geometry{
		Path:   append([]Coordinates(nil), waypoints...),
		Source: GeometryStraightLine,
	}
}

func (g Geometry) Clone() Geometry {
	g.Path = append([]Coordinates(nil), g.Path...)
	return g
}

// LineString converts the path into a go-geom LineString (XY = lon, lat).
func (g Geometry) LineString() (*geom.LineString, error) {
	coords := make([]geom.Coord, 0, len(g.Path))
	for _, c := range g.Path {
		coords = append(coords, geom.Coord{c.Lon, c.Lat})
	}
	ls, err := geom.NewLineString(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, fmt.Errorf("geometry: build linestring: %w", err)
	}
	return ls, nil
}

// GeometryFromLineString reads lon/lat pairs back out of a go-geom LineString.
func GeometryFromLineString(ls *geom.LineString, source GeometrySource) Geometry {
	path := make([]Coordinates, 0, ls.NumCoords())
	for _, c := range ls.Coords() {
		path = append(path, Coordinates{Lon: c.X(), Lat: c.Y()})
	}
	return Geometry{Path: path, Source: source}
}

type geometryJSON struct {
	Source  GeometrySource  `json:"source"`
	GeoJSON json.RawMessage `json:"geojson"`
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	ls, err := g.LineString()
	if err != nil {
		return nil, err
	}
	raw, err := geojson.Marshal(ls)
	if err != nil {
		return nil, fmt.Errorf("geometry: encode geojson: %w", err)
	}
	return json.Marshal(geometryJSON{Source: g.Source, GeoJSON: raw})
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	var aux geometryJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("geometry: decode: %w", err)
	}
	g.Source = aux.Source
	g.Path = nil
	if len(aux.GeoJSON) == 0 || string(aux.GeoJSON) == "null" {
		return nil
	}

	var t geom.T
	if err := geojson.Unmarshal(aux.GeoJSON, &t); err != nil {
		return fmt.Errorf("geometry: decode geojson: %w", err)
	}
	ls, ok := t.(*geom.LineString)
	if !ok {
		return fmt.Errorf("geometry: expected LineString, got %T", t)
	}
	*g = GeometryFromLineString(ls, aux.Source)
	return nil
}
