package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trailguard/internal/safetyscore/models"
	id "trailguard/pkg/domain"
)

// PostgresScoreStore persists profiles and score events in PostgreSQL.
type PostgresScoreStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed score store.
func NewPostgres(db *sql.DB) *PostgresScoreStore {
	return &PostgresScoreStore{db: db}
}

func (s *PostgresScoreStore) GetScore(ctx context.Context, subjectID id.SubjectID) (int, bool, error) {
	var score int
	err := s.db.QueryRowContext(ctx,
		`SELECT score FROM subject_safety_profiles WHERE subject_id = $1`,
		subjectID.String(),
	).Scan(&score)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get score: %w", err)
	}
	return score, true, nil
}

func (s *PostgresScoreStore) SaveScore(ctx context.Context, subjectID id.SubjectID, score int, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subject_safety_profiles (subject_id, score, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject_id) DO UPDATE SET
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at
	`, subjectID.String(), score, at)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

func (s *PostgresScoreStore) AppendEvent(ctx context.Context, event models.ScoreEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO safety_score_events (id, subject_id, delta, reason, resulting_score, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, event.SubjectID.String(), event.Delta, event.Reason, event.ResultingScore, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append score event: %w", err)
	}
	return nil
}

func (s *PostgresScoreStore) ListEvents(ctx context.Context, subjectID id.SubjectID) ([]models.ScoreEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_id, delta, reason, resulting_score, occurred_at
		FROM safety_score_events
		WHERE subject_id = $1
		ORDER BY occurred_at ASC
	`, subjectID.String())
	if err != nil {
		return nil, fmt.Errorf("list score events: %w", err)
	}
	defer rows.Close()

	var out []models.ScoreEvent
	for rows.Next() {
		var ev models.ScoreEvent
		var subject string
		if err := rows.Scan(&ev.ID, &subject, &ev.Delta, &ev.Reason, &ev.ResultingScore, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan score event: %w", err)
		}
		ev.SubjectID = id.SubjectID(subject)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score events: %w", err)
	}
	return out, nil
}
