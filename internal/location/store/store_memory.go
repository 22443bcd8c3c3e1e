// Package store persists location pings and itinerary waypoints. The ping
// path is write-heavy telemetry, so the SQL implementation runs on a pgx
// pool rather than database/sql.
package store

import (
	"context"
	"sort"
	"sync"

	"trailguard/internal/location/models"
	id "trailguard/pkg/domain"
)

// InMemoryLocationStore keeps pings and itineraries in process. Used in
// tests and development.
type InMemoryLocationStore struct {
	mu          sync.RWMutex
	pings       map[id.SubjectID][]models.LocationPing
	itineraries map[id.SubjectID][]models.ItineraryWaypoint
}

func NewInMemoryLocationStore() *InMemoryLocationStore {
	return &InMemoryLocationStore{
		pings:       make(map[id.SubjectID][]models.LocationPing),
		itineraries: make(map[id.SubjectID][]models.ItineraryWaypoint),
	}
}

func (s *InMemoryLocationStore) Insert(_ context.Context, ping models.LocationPing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings[ping.SubjectID] = append(s.pings[ping.SubjectID], ping)
	return nil
}

// RecentWindow returns up to limit pings for the subject, most recent first.
func (s *InMemoryLocationStore) RecentWindow(_ context.Context, subjectID id.SubjectID, limit int) ([]models.LocationPing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	window := append([]models.LocationPing{}, s.pings[subjectID]...)
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Timestamp.After(window[j].Timestamp)
	})
	if limit > 0 && len(window) > limit {
		window = window[:limit]
	}
	return window, nil
}

func (s *InMemoryLocationStore) Waypoints(_ context.Context, subjectID id.SubjectID) ([]models.ItineraryWaypoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ItineraryWaypoint{}, s.itineraries[subjectID]...), nil
}

// SetWaypoints replaces a subject's itinerary. Used by tests and seed
// tooling.
func (s *InMemoryLocationStore) SetWaypoints(subjectID id.SubjectID, waypoints []models.ItineraryWaypoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itineraries[subjectID] = append([]models.ItineraryWaypoint{}, waypoints...)
}
