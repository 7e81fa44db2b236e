package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fleet-route-optimizer/internal/domain"
	"fmt"
	"os"
)

// Initialize the database schema. The DDL is portable between SQLite and
// Postgres.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDeliveriesQuery := `
	CREATE TABLE IF NOT EXISTS deliveries (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		data TEXT NOT NULL
	);
	`

	createVehiclesQuery := `
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		data TEXT NOT NULL
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		vehicle_id TEXT NOT NULL,
		status TEXT NOT NULL,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	createGeometryCacheQuery := `
	CREATE TABLE IF NOT EXISTS geometry_cache (
		waypoints TEXT PRIMARY KEY,
		geojson TEXT NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_routes_vehicle_status
	ON routes(vehicle_id, status);
	`

	statements := []string{
		createDeliveriesQuery,
		createVehiclesQuery,
		createRoutesQuery,
		createGeometryCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Seed is the layout of the seed file.
type Seed struct {
	Deliveries []domain.Delivery `json:"deliveries"`
	Vehicles   []domain.Vehicle  `json:"vehicles"`
}

// Populate the database with deliveries and vehicles from a JSON file.
// Existing rows with the same id are replaced.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	return SeedEntities(db, data)
}

// SeedEntities validates every entity before writing any of them.
func SeedEntities(db *sql.DB, data Seed) error {
	if db == nil {
		return errors.New("seed: DB is nil")
	}

	for i := range data.Deliveries {
		d := &data.Deliveries[i]
		d.Normalize()
		if err := d.Validate(); err != nil {
			return fmt.Errorf("seed: delivery at index %d: %w", i+1, err)
		}
	}
	for i := range data.Vehicles {
		v := &data.Vehicles[i]
		v.Normalize()
		if err := v.Validate(); err != nil {
			return fmt.Errorf("seed: vehicle at index %d: %w", i+1, err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := func(table, id, status string, doc any) error {
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("seed: encode %s %q: %w", table, id, err)
		}
		q := fmt.Sprintf(`
		INSERT INTO %s (id, status, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
			data = EXCLUDED.data;
		`, table)
		if _, err := tx.Exec(q, id, status, string(raw)); err != nil {
			return fmt.Errorf("seed: insert %s id=%q: %w", table, id, err)
		}
		return nil
	}

	for i := range data.Deliveries {
		d := &data.Deliveries[i]
		if err := insert("deliveries", d.ID, string(d.Status), d); err != nil {
			return err
		}
	}
	for i := range data.Vehicles {
		v := &data.Vehicles[i]
		if err := insert("vehicles", v.ID, string(v.Status), v); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
