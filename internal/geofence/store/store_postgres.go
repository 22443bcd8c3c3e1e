package store

import (
	"context"
	"database/sql"
	"fmt"

	"trailguard/internal/geofence/models"
	id "trailguard/pkg/domain"
)

// PostgresZoneStore reads the restricted-zone catalog from PostgreSQL.
// The schema carries one canonical `active` boolean (NOT NULL DEFAULT TRUE);
// the legacy is_active column is folded in by migration 0002, not at runtime.
type PostgresZoneStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed zone store.
func NewPostgres(db *sql.DB) *PostgresZoneStore {
	return &PostgresZoneStore{db: db}
}

func (s *PostgresZoneStore) ListActive(ctx context.Context) ([]models.RestrictedZone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, center_lat, center_lon, radius_m, risk_level
		FROM restricted_zones
		WHERE active
	`)
	if err != nil {
		return nil, fmt.Errorf("list active zones: %w", err)
	}
	defer rows.Close()

	var zones []models.RestrictedZone
	for rows.Next() {
		var z models.RestrictedZone
		var zoneID, risk string
		if err := rows.Scan(&zoneID, &z.Name, &z.Latitude, &z.Longitude, &z.RadiusMeters, &risk); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		z.ID = id.ZoneID(zoneID)
		z.Risk = models.RiskLevel(risk)
		z.Active = true
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return zones, nil
}
