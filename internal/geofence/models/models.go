// Package models defines the restricted-zone catalog records and the result
// shape of a geofence evaluation.
package models

import (
	"trailguard/internal/detect"
	id "trailguard/pkg/domain"
)

// RiskLevel classifies how dangerous a restricted zone is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// IsValid checks if the risk level is one of the supported enum values.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Rank totally orders risk levels: low < medium < high < critical.
// Unknown levels rank 0 so they never dominate a known one.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// Severity maps a zone risk onto the anomaly severity a breach produces.
func (r RiskLevel) Severity() detect.Severity {
	switch r {
	case RiskLow:
		return detect.SeverityLow
	case RiskMedium:
		return detect.SeverityMedium
	case RiskHigh:
		return detect.SeverityHigh
	case RiskCritical:
		return detect.SeverityCritical
	default:
		return detect.SeverityMedium
	}
}

func (r RiskLevel) String() string { return string(r) }

// RestrictedZone is one circular zone from the external catalog. The
// historical dual naming of the active flag (is_active vs active) is
// normalized at the storage boundary; the domain model carries one
// canonical boolean.
type RestrictedZone struct {
	ID           id.ZoneID `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"lat"`
	Longitude    float64   `json:"lon"`
	RadiusMeters float64   `json:"radius_m"`
	Risk         RiskLevel `json:"risk_level"`
	Active       bool      `json:"active"`
}

// ZoneDistance pairs a zone with its distance from the evaluated position.
type ZoneDistance struct {
	Zone           RestrictedZone `json:"zone"`
	DistanceMeters float64        `json:"distance_m"`
}

// Evaluation is the outcome of one geofence check. RiskLevel is the numeric
// rank of the dominant breached zone, 0 when nothing is breached.
type Evaluation struct {
	Breached      bool            `json:"inside"`
	BreachedZones []ZoneDistance  `json:"breached_zones"`
	NearbyZones   []ZoneDistance  `json:"nearby_zones"`
	RiskLevel     int             `json:"risk_level"`
	Dominant      *RestrictedZone `json:"dominant_zone,omitempty"`
}
