// Package store persists subject safety profiles and the append-only score
// event trail.
package store

import (
	"context"
	"sync"
	"time"

	"trailguard/internal/safetyscore/models"
	id "trailguard/pkg/domain"
)

// InMemoryScoreStore keeps profiles and events in process. Used in tests
// and development.
type InMemoryScoreStore struct {
	mu       sync.RWMutex
	profiles map[id.SubjectID]models.SubjectSafetyProfile
	events   map[id.SubjectID][]models.ScoreEvent

	// failSaves makes the next n SaveScore calls fail; tests use it to
	// exercise the ledger's retry path.
	failSaves int
	failErr   error
}

func NewInMemoryScoreStore() *InMemoryScoreStore {
	return &InMemoryScoreStore{
		profiles: make(map[id.SubjectID]models.SubjectSafetyProfile),
		events:   make(map[id.SubjectID][]models.ScoreEvent),
	}
}

func (s *InMemoryScoreStore) GetScore(_ context.Context, subjectID id.SubjectID) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[subjectID]
	if !ok {
		return 0, false, nil
	}
	return profile.Score, true, nil
}

func (s *InMemoryScoreStore) SaveScore(_ context.Context, subjectID id.SubjectID, score int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves > 0 {
		s.failSaves--
		return s.failErr
	}
	s.profiles[subjectID] = models.SubjectSafetyProfile{
		SubjectID: subjectID,
		Score:     score,
		UpdatedAt: at,
	}
	return nil
}

func (s *InMemoryScoreStore) AppendEvent(_ context.Context, event models.ScoreEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SubjectID] = append(s.events[event.SubjectID], event)
	return nil
}

func (s *InMemoryScoreStore) ListEvents(_ context.Context, subjectID id.SubjectID) ([]models.ScoreEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ScoreEvent{}, s.events[subjectID]...), nil
}

// FailNextSaves arms the store to fail the next n SaveScore calls with err.
func (s *InMemoryScoreStore) FailNextSaves(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSaves = n
	s.failErr = err
}
