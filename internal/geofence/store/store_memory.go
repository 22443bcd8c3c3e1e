// Package store provides restricted-zone catalog access: an in-memory
// implementation for tests and development, a PostgreSQL implementation,
// and a Redis read-through cache that bounds catalog staleness with an
// explicit TTL.
package store

import (
	"context"
	"sync"

	"trailguard/internal/geofence/models"
)

// InMemoryZoneStore keeps the catalog in process. Zones flagged inactive are
// filtered here, mirroring the SQL implementation.
type InMemoryZoneStore struct {
	mu    sync.RWMutex
	zones []models.RestrictedZone
}

func NewInMemoryZoneStore() *InMemoryZoneStore {
	return &InMemoryZoneStore{}
}

// SetZones replaces the catalog. Used by tests and seed tooling.
func (s *InMemoryZoneStore) SetZones(zones []models.RestrictedZone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = append([]models.RestrictedZone{}, zones...)
}

func (s *InMemoryZoneStore) ListActive(_ context.Context) ([]models.RestrictedZone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]models.RestrictedZone, 0, len(s.zones))
	for _, z := range s.zones {
		if z.Active {
			active = append(active, z)
		}
	}
	return active, nil
}
