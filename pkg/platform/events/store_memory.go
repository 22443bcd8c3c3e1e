package events

import (
	"context"
	"sync"

	id "trailguard/pkg/domain"
)

// InMemoryStore keeps events per subject. Used in tests and as the fallback
// sink when Kafka is not configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.SubjectID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.SubjectID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SubjectID] = append(s.events[event.SubjectID], event)
	return nil
}

// ListBySubject returns a copy of the events recorded for one subject.
func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID id.SubjectID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[subjectID]...), nil
}

// Clear resets the store between test cases.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.SubjectID][]Event)
}
