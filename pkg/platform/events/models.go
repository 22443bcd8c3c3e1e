// Package events carries the engine's event feed. Domain services emit an
// Event whenever an anomaly is created or resolved or a score changes;
// sinks fan the feed out to storage or Kafka for downstream alerting.
package events

import (
	"context"
	"time"

	id "trailguard/pkg/domain"
)

// Action names the engine occurrence an event records.
type Action string

const (
	ActionAnomalyCreated       Action = "anomaly_created"
	ActionAnomalyResolved      Action = "anomaly_resolved"
	ActionAnomalyFalsePositive Action = "anomaly_false_positive"
	ActionScoreAdjusted        Action = "score_adjusted"
	ActionGeofenceBreach       Action = "geofence_breach_detected"
)

// Event is emitted from domain logic to capture key engine actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Action      Action
	Timestamp   time.Time
	SubjectID   id.SubjectID
	AnomalyID   string
	AnomalyType string
	Severity    string
	Delta       int
	Score       int
	Reason      string
	RequestID   string
}

// Store receives events from the publisher. Implementations must tolerate
// concurrent Append calls.
type Store interface {
	Append(ctx context.Context, event Event) error
}
