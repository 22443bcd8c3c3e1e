// Package service implements the safety score ledger. ApplyDelta is the
// single write path for scores: everything else in the engine asks this
// service, never the store directly.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trailguard/internal/platform/metrics"
	"trailguard/internal/platform/subjectlock"
	"trailguard/internal/safetyscore/models"
	id "trailguard/pkg/domain"
	dErrors "trailguard/pkg/domain-errors"
	"trailguard/pkg/platform/events"
	"trailguard/pkg/requestcontext"
)

// Store persists profiles and the event trail.
type Store interface {
	// GetScore returns the subject's current score and whether a profile
	// exists.
	GetScore(ctx context.Context, subjectID id.SubjectID) (int, bool, error)
	// SaveScore upserts the subject's profile.
	SaveScore(ctx context.Context, subjectID id.SubjectID, score int, at time.Time) error
	// AppendEvent appends one ledger entry. Entries are never updated.
	AppendEvent(ctx context.Context, event models.ScoreEvent) error
	// ListEvents returns the subject's trail, oldest first.
	ListEvents(ctx context.Context, subjectID id.SubjectID) ([]models.ScoreEvent, error)
}

const (
	writeAttempts     = 3
	writeBackoffStart = 50 * time.Millisecond
)

type Service struct {
	store     Store
	locks     *subjectlock.KeyedMutex
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher *events.Publisher
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEventPublisher(p *events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "score store is required")
	}
	s := &Service{
		store:  store,
		locks:  subjectlock.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ApplyDelta reads the subject's score (100 when no profile exists), clamps
// the adjusted value to [0, 100], persists it and appends a ledger event.
// The read-modify-write is serialized per subject so concurrent deltas are
// never lost. Returns the resulting score.
func (s *Service) ApplyDelta(ctx context.Context, subjectID id.SubjectID, delta int, reason string) (int, error) {
	if subjectID.IsEmpty() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}

	defer s.locks.Lock(subjectID)()

	current, exists, err := s.store.GetScore(ctx, subjectID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read safety score")
	}
	if !exists {
		current = models.MaxScore
	}

	newScore := models.Clamp(current + delta)
	now := requestcontext.Now(ctx)

	// Losing a score write is worse than a retried read: the write path
	// alone gets bounded retry with backoff.
	if err := s.writeWithRetry(ctx, subjectID, newScore, now); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist safety score")
	}

	event := models.ScoreEvent{
		ID:             uuid.NewString(),
		SubjectID:      subjectID,
		Delta:          delta,
		Reason:         reason,
		ResultingScore: newScore,
		Timestamp:      now,
	}
	if err := s.store.AppendEvent(ctx, event); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append score event")
	}

	s.metrics.IncScoreEvent()
	if s.publisher != nil {
		_ = s.publisher.Emit(ctx, events.Event{
			Action:    events.ActionScoreAdjusted,
			Timestamp: now,
			SubjectID: subjectID,
			Delta:     delta,
			Score:     newScore,
			Reason:    reason,
			RequestID: requestcontext.RequestID(ctx),
		})
	}

	s.logger.InfoContext(ctx, "safety score adjusted",
		"subject_id", subjectID,
		"delta", delta,
		"reason", reason,
		"score", newScore,
	)
	return newScore, nil
}

// CurrentScore returns the subject's score, defaulting to 100 for subjects
// with no profile yet.
func (s *Service) CurrentScore(ctx context.Context, subjectID id.SubjectID) (int, error) {
	score, exists, err := s.store.GetScore(ctx, subjectID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read safety score")
	}
	if !exists {
		return models.MaxScore, nil
	}
	return score, nil
}

// History returns the subject's ledger trail, oldest first.
func (s *Service) History(ctx context.Context, subjectID id.SubjectID) ([]models.ScoreEvent, error) {
	history, err := s.store.ListEvents(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list score events")
	}
	return history, nil
}

func (s *Service) writeWithRetry(ctx context.Context, subjectID id.SubjectID, score int, at time.Time) error {
	backoff := writeBackoffStart
	var err error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		err = s.store.SaveScore(ctx, subjectID, score, at)
		if err == nil {
			return nil
		}
		if attempt < writeAttempts {
			s.logger.WarnContext(ctx, "score write failed, retrying",
				"subject_id", subjectID,
				"attempt", attempt,
				"error", err.Error(),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}
	return err
}
