// Package models defines anomaly records and their lifecycle states.
package models

import (
	"time"

	"trailguard/internal/detect"
	id "trailguard/pkg/domain"
	dErrors "trailguard/pkg/domain-errors"
)

// Status is the lifecycle state of an anomaly.
type Status string

const (
	StatusActive        Status = "active"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusResolved, StatusFalsePositive:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusFalsePositive
}

// ParseResolutionStatus accepts only the two terminal states an operator may
// move an anomaly into.
func ParseResolutionStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusResolved:
		return StatusResolved, nil
	case StatusFalsePositive:
		return StatusFalsePositive, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "status must be resolved or false_positive")
}

// Anomaly is one detected incident for a subject. At most one active anomaly
// exists per (subject, type) pair; the store enforces this on insert.
type Anomaly struct {
	ID          id.AnomalyID       `json:"id"`
	SubjectID   id.SubjectID       `json:"subject_id"`
	Type        detect.AnomalyType `json:"type"`
	Severity    detect.Severity    `json:"severity"`
	Description string             `json:"description"`
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
	Status      Status             `json:"status"`
	DetectedAt  time.Time          `json:"detected_at"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
}

// Pass statuses summarize one detection run for the caller.
const (
	PassStatusNoData    = "no_data"
	PassStatusNormal    = "normal"
	PassStatusAnomalous = "anomalies_detected"
)

// PassResult is what one detection pass produced: the signals that are true
// right now, and the subject's full active anomaly set after the pass.
type PassResult struct {
	Status      string          `json:"status"`
	DetectedNow []detect.Signal `json:"detected_now"`
	Anomalies   []Anomaly       `json:"anomalies"`
}
