package repositories

import (
	"context"
	"fleet-route-optimizer/internal/domain"
	"sort"
	"sync"
)

// MemoryStore keeps entities in process memory. Values are copied on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	deliveries map[string]domain.Delivery
	vehicles   map[string]domain.Vehicle
	routes     map[string]*domain.Route
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deliveries: make(map[string]domain.Delivery),
		vehicles:   make(map[string]domain.Vehicle),
		routes:     make(map[string]*domain.Route),
	}
}

func (m *MemoryStore) GetDelivery(_ context.Context, id string) (*domain.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deliveries[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "delivery", ID: id}
	}
	return &d, nil
}

func (m *MemoryStore) ListDeliveries(_ context.Context) ([]*domain.Delivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Delivery, 0, len(m.deliveries))
	for _, d := range m.deliveries {
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveDelivery(_ context.Context, d *domain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deliveries[d.ID] = *d
	return nil
}

func (m *MemoryStore) GetVehicle(_ context.Context, id string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.vehicles[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "vehicle", ID: id}
	}
	return &v, nil
}

func (m *MemoryStore) ListVehicles(_ context.Context) ([]*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveVehicle(_ context.Context, v *domain.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.vehicles[v.ID] = *v
	return nil
}

func (m *MemoryStore) GetRoute(_ context.Context, id string) (*domain.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.routes[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "route", ID: id}
	}
	return r.Clone(), nil
}

func (m *MemoryStore) ListRoutes(_ context.Context) ([]*domain.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Route, 0, len(m.routes))
	for _, r := range m.routes {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveRoute(_ context.Context, r *domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.routes[r.ID] = r.Clone()
	return nil
}

// SaveRouteWithDeliveries stores the route and deliveries under one lock, so
// readers never observe one without the other.
func (m *MemoryStore) SaveRouteWithDeliveries(_ context.Context, r *domain.Route, ds []*domain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.routes[r.ID] = r.Clone()
	for _, d := range ds {
		m.deliveries[d.ID] = *d
	}
	return nil
}
