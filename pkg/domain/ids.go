// Package domain defines the typed identifiers shared across feature packages.
// Typed IDs prevent cross-type assignment at compile time; parse functions
// enforce validity at trust boundaries (HTTP handlers, event consumers).
package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	dErrors "trailguard/pkg/domain-errors"
)

// SubjectID identifies a tracked subject. It is an opaque stable identifier
// issued by the external identity system, not a UUID we mint ourselves.
type SubjectID string

const maxSubjectIDLen = 128

// ParseSubjectID validates an externally supplied subject identifier.
func ParseSubjectID(s string) (SubjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject id cannot be empty")
	}
	if len(s) > maxSubjectIDLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject id too long")
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "subject id contains illegal characters")
		}
	}
	return SubjectID(s), nil
}

// IsEmpty reports whether the subject ID carries no value.
func (s SubjectID) IsEmpty() bool { return s == "" }

func (s SubjectID) String() string { return string(s) }

// AnomalyID identifies a persisted anomaly record.
type AnomalyID uuid.UUID

// NewAnomalyID mints a fresh anomaly identifier.
func NewAnomalyID() AnomalyID { return AnomalyID(uuid.New()) }

// ParseAnomalyID validates an externally supplied anomaly identifier.
func ParseAnomalyID(s string) (AnomalyID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AnomalyID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "anomaly id must be a valid UUID")
	}
	if u == uuid.Nil {
		return AnomalyID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "anomaly id cannot be the nil UUID")
	}
	return AnomalyID(u), nil
}

// IsNil reports whether the ID is the zero UUID.
func (a AnomalyID) IsNil() bool { return uuid.UUID(a) == uuid.Nil }

func (a AnomalyID) String() string { return uuid.UUID(a).String() }

// MarshalText renders the ID in canonical UUID form so JSON carries a string
// rather than the raw byte array.
func (a AnomalyID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the canonical UUID form.
func (a *AnomalyID) UnmarshalText(b []byte) error {
	parsed, err := ParseAnomalyID(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ZoneID identifies a restricted zone in the external catalog.
type ZoneID string

// ParseZoneID validates an externally supplied zone identifier.
func ParseZoneID(s string) (ZoneID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "zone id cannot be empty")
	}
	return ZoneID(s), nil
}

func (z ZoneID) String() string { return string(z) }
