// Package models holds the location-domain records the engine consumes.
package models

import (
	"time"

	id "trailguard/pkg/domain"
)

// LocationPing is one periodic location report. Immutable once recorded;
// the engine consumes a bounded recent window ordered most recent first.
type LocationPing struct {
	SubjectID id.SubjectID `json:"subject_id"`
	Latitude  float64      `json:"lat"`
	Longitude float64      `json:"lon"`
	// Altitude is optional: many devices report position without elevation.
	Altitude  *float64  `json:"altitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ItineraryWaypoint is a planned stop on a subject's route. Read-only to the
// engine.
type ItineraryWaypoint struct {
	SubjectID id.SubjectID `json:"subject_id"`
	Name      string       `json:"name,omitempty"`
	Latitude  float64      `json:"lat"`
	Longitude float64      `json:"lon"`
	// RadiusMeters is the allowed corridor around the waypoint; nil means
	// the configured default applies.
	RadiusMeters *float64 `json:"radius_m,omitempty"`
}
