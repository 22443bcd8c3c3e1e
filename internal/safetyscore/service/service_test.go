package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"trailguard/internal/safetyscore/models"
	"trailguard/internal/safetyscore/store"
	id "trailguard/pkg/domain"
	dErrors "trailguard/pkg/domain-errors"
)

type LedgerSuite struct {
	suite.Suite
	store *store.InMemoryScoreStore
	svc   *Service
	ctx   context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = store.NewInMemoryScoreStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc, err := New(s.store, WithLogger(logger))
	s.Require().NoError(err)
	s.svc = svc
	s.ctx = context.Background()
}

func (s *LedgerSuite) TestFreshSubjectStartsAtHundred() {
	score, err := s.svc.CurrentScore(s.ctx, "subject-fresh")
	s.Require().NoError(err)
	s.Equal(100, score)
}

func (s *LedgerSuite) TestApplyDeltaClampsAndAppends() {
	subjectID := id.SubjectID("subject-1")

	score, err := s.svc.ApplyDelta(s.ctx, subjectID, -30, "geofence_breach")
	s.Require().NoError(err)
	s.Equal(70, score)

	score, err = s.svc.ApplyDelta(s.ctx, subjectID, -80, "inactivity")
	s.Require().NoError(err)
	s.Equal(0, score, "score clamps at the floor")

	score, err = s.svc.ApplyDelta(s.ctx, subjectID, 300, "manual_adjustment")
	s.Require().NoError(err)
	s.Equal(100, score, "score clamps at the ceiling")

	history, err := s.svc.History(s.ctx, subjectID)
	s.Require().NoError(err)
	s.Require().Len(history, 3)
	s.Equal(70, history[0].ResultingScore)
	s.Equal(0, history[1].ResultingScore)
	s.Equal(100, history[2].ResultingScore)
}

// The event trail is the sole audit source: the profile score must be
// re-derivable as 100 plus every delta, clamped at each step.
func (s *LedgerSuite) TestRunningClampRederivability() {
	subjectID := id.SubjectID("subject-2")
	deltas := []int{-20, -30, -30, -40, 15, 50, 120, -5}

	for _, d := range deltas {
		_, err := s.svc.ApplyDelta(s.ctx, subjectID, d, "test")
		s.Require().NoError(err)
	}

	history, err := s.svc.History(s.ctx, subjectID)
	s.Require().NoError(err)
	s.Require().Len(history, len(deltas))

	derived := models.MaxScore
	for i, ev := range history {
		derived = models.Clamp(derived + ev.Delta)
		s.Equal(derived, ev.ResultingScore, "event %d", i)
		s.GreaterOrEqual(ev.ResultingScore, models.MinScore)
		s.LessOrEqual(ev.ResultingScore, models.MaxScore)
	}

	current, err := s.svc.CurrentScore(s.ctx, subjectID)
	s.Require().NoError(err)
	s.Equal(derived, current)
}

func (s *LedgerSuite) TestConcurrentDeltasAreNotLost() {
	subjectID := id.SubjectID("subject-3")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.ApplyDelta(s.ctx, subjectID, -5, "concurrent")
			s.NoError(err)
		}()
	}
	wg.Wait()

	score, err := s.svc.CurrentScore(s.ctx, subjectID)
	s.Require().NoError(err)
	s.Equal(50, score, "all ten deductions must land")

	history, err := s.svc.History(s.ctx, subjectID)
	s.Require().NoError(err)
	s.Len(history, 10)
}

func (s *LedgerSuite) TestWriteRetriesTransientFailures() {
	subjectID := id.SubjectID("subject-4")
	s.store.FailNextSaves(2, errors.New("connection reset"))

	score, err := s.svc.ApplyDelta(s.ctx, subjectID, -10, "speed_anomaly")
	s.Require().NoError(err, "two transient failures are within the retry budget")
	s.Equal(90, score)
}

func (s *LedgerSuite) TestWriteFailurePropagatesAfterRetries() {
	subjectID := id.SubjectID("subject-5")
	s.store.FailNextSaves(3, errors.New("connection reset"))

	_, err := s.svc.ApplyDelta(s.ctx, subjectID, -10, "speed_anomaly")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	// The failed write must not leave a ledger entry behind.
	history, err := s.svc.History(s.ctx, subjectID)
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *LedgerSuite) TestRejectsEmptySubject() {
	_, err := s.svc.ApplyDelta(s.ctx, "", -10, "whatever")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
