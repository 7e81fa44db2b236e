package cache

import (
	"context"
	"database/sql"
	"errors"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/platform/obs"
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// SQLGeometryCache is a SQL-backed cache of road geometry keyed by the
// ordered waypoint list it was requested for.
type SQLGeometryCache struct {
	DB *sql.DB
}

func NewSQLGeometryCache(db *sql.DB) *SQLGeometryCache {
	return &SQLGeometryCache{DB: db}
}

// Key renders waypoints as "lon,lat;lon,lat;..." at 6 decimals (~0.1 m), so
// requests for the same path map to the same row.
func Key(waypoints []domain.Coordinates) string {
	parts := make([]string, 0, len(waypoints))
	for _, w := range waypoints {
		parts = append(parts,
			strconv.FormatFloat(w.Lon, 'f', 6, 64)+","+strconv.FormatFloat(w.Lat, 'f', 6, 64))
	}
	return strings.Join(parts, ";")
}

// Get returns the cached geometry for waypoints, if any.
func (s *SQLGeometryCache) Get(
	ctx context.Context,
	waypoints []domain.Coordinates,
) (_ domain.Geometry, _ bool, err error) {
	defer obs.Time(ctx, "geometry.cache.Get")(&err)

	if s.DB == nil {
		return domain.Geometry{}, false, errors.New("geometry cache: db is nil")
	}
	if len(waypoints) == 0 {
		return domain.Geometry{}, false, nil
	}

	var raw string
	err = s.DB.QueryRowContext(ctx, `
	SELECT geojson
	FROM geometry_cache
	WHERE waypoints = $1;
	`, Key(waypoints)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Geometry{}, false, nil
	}
	if err != nil {
		return domain.Geometry{}, false, fmt.Errorf("get geometry cache: query geometry_cache table: %w", err)
	}

	var t geom.T
	if err := geojson.Unmarshal([]byte(raw), &t); err != nil {
		return domain.Geometry{}, false, fmt.Errorf("get geometry cache: decode geojson: %w", err)
	}
	ls, ok := t.(*geom.LineString)
	if !ok {
		return domain.Geometry{}, false, fmt.Errorf("get geometry cache: expected LineString, got %T", t)
	}

	return domain.GeometryFromLineString(ls, domain.GeometryMap), true, nil
}

// Put stores geometry for waypoints, replacing any previous entry.
func (s *SQLGeometryCache) Put(
	ctx context.Context,
	waypoints []domain.Coordinates,
	g domain.Geometry,
) error {
	if s.DB == nil {
		return errors.New("geometry cache: db is nil")
	}
	if len(waypoints) == 0 {
		return errors.New("insert geometry cache: waypoints must not be empty")
	}

	ls, err := g.LineString()
	if err != nil {
		return fmt.Errorf("insert geometry cache: %w", err)
	}
	raw, err := geojson.Marshal(ls)
	if err != nil {
		return fmt.Errorf("insert geometry cache: encode geojson: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO geometry_cache (waypoints, geojson)
	VALUES ($1, $2)
	ON CONFLICT (waypoints) DO UPDATE
	SET geojson = EXCLUDED.geojson;
	`, Key(waypoints), string(raw))
	if err != nil {
		return fmt.Errorf("insert geometry cache: %w", err)
	}

	return nil
}
