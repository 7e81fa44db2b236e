package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/platform/obs"
	"fmt"
	"time"
)

// SQLStore persists deliveries, vehicles and routes as JSON documents keyed
// by id. Queries use $n placeholders in order of appearance so the same SQL
// runs on both SQLite and Postgres.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

var errNilDB = errors.New("sql store: db is nil")

func (s *SQLStore) getDoc(ctx context.Context, table, id string, dst any) error {
	if s.DB == nil {
		return errNilDB
	}

	var data string
	q := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1;`, table)
	err := s.DB.QueryRowContext(ctx, q, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}

	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("decode %s %q: %w", table, id, err)
	}
	return nil
}

// listDocs calls decode once per stored document, ordered by id.
func (s *SQLStore) listDocs(ctx context.Context, table string, decode func([]byte) error) error {
	if s.DB == nil {
		return errNilDB
	}

	q := fmt.Sprintf(`SELECT data FROM %s ORDER BY id;`, table)
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("scan %s row: %w", table, err)
		}
		if err := decode([]byte(data)); err != nil {
			return fmt.Errorf("decode %s row: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%s row iteration: %w", table, err)
	}
	return nil
}

func (s *SQLStore) GetDelivery(ctx context.Context, id string) (_ *domain.Delivery, err error) {
	defer obs.Time(ctx, "store.GetDelivery")(&err)

	var d domain.Delivery
	if err := s.getDoc(ctx, "deliveries", id, &d); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Kind: "delivery", ID: id}
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return &d, nil
}

func (s *SQLStore) ListDeliveries(ctx context.Context) ([]*domain.Delivery, error) {
	out := make([]*domain.Delivery, 0, 64)
	err := s.listDocs(ctx, "deliveries", func(b []byte) error {
		var d domain.Delivery
		if err := json.Unmarshal(b, &d); err != nil {
			return err
		}
		out = append(out, &d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return out, nil
}

func (s *SQLStore) SaveDelivery(ctx context.Context, d *domain.Delivery) error {
	if s.DB == nil {
		return errNilDB
	}
	return upsertDelivery(ctx, s.DB, d)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertDelivery(ctx context.Context, db execer, d *domain.Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("save delivery: encode %q: %w", d.ID, err)
	}

	_, err = db.ExecContext(ctx, `
	INSERT INTO deliveries (id, status, data)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE
	SET status = EXCLUDED.status,
		data = EXCLUDED.data;
	`, d.ID, string(d.Status), string(data))
	if err != nil {
		return fmt.Errorf("save delivery %q: %w", d.ID, err)
	}
	return nil
}

func (s *SQLStore) GetVehicle(ctx context.Context, id string) (_ *domain.Vehicle, err error) {
	defer obs.Time(ctx, "store.GetVehicle")(&err)

	var v domain.Vehicle
	if err := s.getDoc(ctx, "vehicles", id, &v); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Kind: "vehicle", ID: id}
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return &v, nil
}

func (s *SQLStore) ListVehicles(ctx context.Context) ([]*domain.Vehicle, error) {
	out := make([]*domain.Vehicle, 0, 16)
	err := s.listDocs(ctx, "vehicles", func(b []byte) error {
		var v domain.Vehicle
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		out = append(out, &v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return out, nil
}

func (s *SQLStore) SaveVehicle(ctx context.Context, v *domain.Vehicle) error {
	if s.DB == nil {
		return errNilDB
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("save vehicle: encode %q: %w", v.ID, err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO vehicles (id, status, data)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE
	SET status = EXCLUDED.status,
		data = EXCLUDED.data;
	`, v.ID, string(v.Status), string(data))
	if err != nil {
		return fmt.Errorf("save vehicle %q: %w", v.ID, err)
	}
	return nil
}

func (s *SQLStore) GetRoute(ctx context.Context, id string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "store.GetRoute")(&err)

	var r domain.Route
	if err := s.getDoc(ctx, "routes", id, &r); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Kind: "route", ID: id}
		}
		return nil, fmt.Errorf("get route: %w", err)
	}
	return &r, nil
}

func (s *SQLStore) ListRoutes(ctx context.Context) ([]*domain.Route, error) {
	out := make([]*domain.Route, 0, 16)
	err := s.listDocs(ctx, "routes", func(b []byte) error {
		var r domain.Route
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		out = append(out, &r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return out, nil
}

func (s *SQLStore) SaveRoute(ctx context.Context, r *domain.Route) (err error) {
	defer obs.Time(ctx, "store.SaveRoute")(&err)

	if s.DB == nil {
		return errNilDB
	}
	return upsertRoute(ctx, s.DB, r)
}

func upsertRoute(ctx context.Context, db execer, r *domain.Route) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("save route: encode %q: %w", r.ID, err)
	}

	_, err = db.ExecContext(ctx, `
	INSERT INTO routes (id, vehicle_id, status, data, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET vehicle_id = EXCLUDED.vehicle_id,
		status = EXCLUDED.status,
		data = EXCLUDED.data,
		updated_at = EXCLUDED.updated_at;
	`, r.ID, r.VehicleID, string(r.Status), string(data), r.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save route %q: %w", r.ID, err)
	}
	return nil
}

// SaveRouteWithDeliveries upserts the route and deliveries in one transaction.
func (s *SQLStore) SaveRouteWithDeliveries(ctx context.Context, r *domain.Route, ds []*domain.Delivery) (err error) {
	defer obs.Time(ctx, "store.SaveRouteWithDeliveries")(&err)

	if s.DB == nil {
		return errNilDB
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save route %q: begin tx: %w", r.ID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err := upsertRoute(ctx, tx, r); err != nil {
		return err
	}
	for _, d := range ds {
		if err := upsertDelivery(ctx, tx, d); err != nil {
			return fmt.Errorf("save route %q: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save route %q: commit: %w", r.ID, err)
	}
	return nil
}
