// Package store persists anomaly records. Both implementations enforce the
// single-active-anomaly rule per (subject, type) at insert time, so callers
// race-free under the service's per-subject lock and the database's partial
// unique index.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"trailguard/internal/anomaly/models"
	id "trailguard/pkg/domain"
	dErrors "trailguard/pkg/domain-errors"
)

// InMemoryAnomalyStore keeps anomalies in process. Used in tests and
// development.
type InMemoryAnomalyStore struct {
	mu        sync.RWMutex
	anomalies map[id.AnomalyID]models.Anomaly
}

func NewInMemoryAnomalyStore() *InMemoryAnomalyStore {
	return &InMemoryAnomalyStore{anomalies: make(map[id.AnomalyID]models.Anomaly)}
}

// InsertIfNoActive stores the anomaly unless the subject already has an
// active one of the same type. Returns true when the row was inserted.
func (s *InMemoryAnomalyStore) InsertIfNoActive(_ context.Context, anomaly models.Anomaly) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.anomalies {
		if existing.SubjectID == anomaly.SubjectID &&
			existing.Type == anomaly.Type &&
			existing.Status == models.StatusActive {
			return false, nil
		}
	}
	s.anomalies[anomaly.ID] = cloneAnomaly(anomaly)
	return true, nil
}

func (s *InMemoryAnomalyStore) GetByID(_ context.Context, anomalyID id.AnomalyID) (models.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anomaly, ok := s.anomalies[anomalyID]
	if !ok {
		return models.Anomaly{}, dErrors.New(dErrors.CodeNotFound, "anomaly not found")
	}
	return cloneAnomaly(anomaly), nil
}

// UpdateResolution moves an anomaly into a terminal state, recording when and
// replacing its metadata with the merged map the service built.
func (s *InMemoryAnomalyStore) UpdateResolution(_ context.Context, anomalyID id.AnomalyID, status models.Status, resolvedAt time.Time, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	anomaly, ok := s.anomalies[anomalyID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "anomaly not found")
	}
	anomaly.Status = status
	anomaly.ResolvedAt = &resolvedAt
	anomaly.Metadata = metadata
	s.anomalies[anomalyID] = cloneAnomaly(anomaly)
	return nil
}

func cloneAnomaly(a models.Anomaly) models.Anomaly {
	if a.Metadata != nil {
		meta := make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			meta[k] = v
		}
		a.Metadata = meta
	}
	return a
}

// ListBySubject returns all of a subject's anomalies, most recent first.
func (s *InMemoryAnomalyStore) ListBySubject(_ context.Context, subjectID id.SubjectID) ([]models.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Anomaly
	for _, a := range s.anomalies {
		if a.SubjectID == subjectID {
			out = append(out, cloneAnomaly(a))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// List returns anomalies across subjects, optionally filtered by status,
// most recent first, capped at limit.
func (s *InMemoryAnomalyStore) List(_ context.Context, status models.Status, limit int) ([]models.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Anomaly
	for _, a := range s.anomalies {
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, cloneAnomaly(a))
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(anomalies []models.Anomaly) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].DetectedAt.After(anomalies[j].DetectedAt)
	})
}
