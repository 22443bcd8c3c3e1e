// Package detect evaluates a subject's recent location window against
// independent safety signals. Detectors are pure: they own no state and
// touch no storage, so they can run concurrently within a pass.
package detect

import (
	dErrors "trailguard/pkg/domain-errors"
)

// AnomalyType classifies the safety condition a signal reports.
type AnomalyType string

const (
	TypeInactivity     AnomalyType = "inactivity"
	TypeRouteDeviation AnomalyType = "route_deviation"
	TypeAltitudeDrop   AnomalyType = "altitude_drop"
	TypeSpeedAnomaly   AnomalyType = "speed_anomaly"
	TypeGeofenceBreach AnomalyType = "geofence_breach"
)

// IsValid checks if the anomaly type is one of the supported enum values.
func (t AnomalyType) IsValid() bool {
	switch t {
	case TypeInactivity, TypeRouteDeviation, TypeAltitudeDrop, TypeSpeedAnomaly, TypeGeofenceBreach:
		return true
	}
	return false
}

func (t AnomalyType) String() string { return string(t) }

// Severity is the ordinal classification driving score impact.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates an externally supplied severity value.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid severity: must be low, medium, high or critical")
	}
	return sev, nil
}

// IsValid checks if the severity is one of the supported enum values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func (s Severity) String() string { return string(s) }

// Rank totally orders severities: low < medium < high < critical. Unknown
// severities rank 0 so they never dominate a known one.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Deduction maps a severity to its safety-score delta. The switch is
// exhaustive over the enum; adding a severity forces a decision here.
// Unrecognized values deduct like medium so a bad record still costs score.
func (s Severity) Deduction() int {
	switch s {
	case SeverityLow:
		return -5
	case SeverityMedium:
		return -10
	case SeverityHigh:
		return -20
	case SeverityCritical:
		return -30
	default:
		return -10
	}
}

// Signal is a currently-true safety condition produced by one detector.
type Signal struct {
	Type        AnomalyType    `json:"type"`
	Severity    Severity       `json:"severity"`
	Description string         `json:"description"`
	Latitude    float64        `json:"lat"`
	Longitude   float64        `json:"lon"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
