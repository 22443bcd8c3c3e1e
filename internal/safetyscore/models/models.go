// Package models defines the safety score ledger records.
package models

import (
	"time"

	id "trailguard/pkg/domain"
)

// Score bounds. A subject with no prior events starts at MaxScore.
const (
	MinScore = 0
	MaxScore = 100
)

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// SubjectSafetyProfile is a subject's current bounded score. Mutated only
// through the ledger's single entry point.
type SubjectSafetyProfile struct {
	SubjectID id.SubjectID `json:"subject_id"`
	Score     int          `json:"score"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ScoreEvent is one append-only ledger entry. Events are never mutated or
// deleted: the profile's current score must always be re-derivable as
// MaxScore plus all deltas, clamped at each step.
type ScoreEvent struct {
	ID             string       `json:"id"`
	SubjectID      id.SubjectID `json:"subject_id"`
	Delta          int          `json:"delta"`
	Reason         string       `json:"reason"`
	ResultingScore int          `json:"resulting_score"`
	Timestamp      time.Time    `json:"timestamp"`
}
