package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"trailguard/internal/location/models"
	id "trailguard/pkg/domain"
)

// PostgresLocationStore persists pings and reads itineraries through a pgx
// pool sized for the ingestion write rate.
type PostgresLocationStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a pgx-backed location store.
func NewPostgres(pool *pgxpool.Pool) *PostgresLocationStore {
	return &PostgresLocationStore{pool: pool}
}

func (s *PostgresLocationStore) Insert(ctx context.Context, ping models.LocationPing) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO locations (subject_id, lat, lon, altitude, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ping.SubjectID.String(), ping.Latitude, ping.Longitude, ping.Altitude, ping.Timestamp)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (s *PostgresLocationStore) RecentWindow(ctx context.Context, subjectID id.SubjectID, limit int) ([]models.LocationPing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT subject_id, lat, lon, altitude, recorded_at
		FROM locations
		WHERE subject_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, subjectID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("read location window: %w", err)
	}
	defer rows.Close()

	var window []models.LocationPing
	for rows.Next() {
		var p models.LocationPing
		var subject string
		if err := rows.Scan(&subject, &p.Latitude, &p.Longitude, &p.Altitude, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		p.SubjectID = id.SubjectID(subject)
		window = append(window, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return window, nil
}

func (s *PostgresLocationStore) Waypoints(ctx context.Context, subjectID id.SubjectID) ([]models.ItineraryWaypoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT subject_id, name, lat, lon, radius_m
		FROM itineraries
		WHERE subject_id = $1
		ORDER BY position ASC
	`, subjectID.String())
	if err != nil {
		return nil, fmt.Errorf("read itinerary: %w", err)
	}
	defer rows.Close()

	var waypoints []models.ItineraryWaypoint
	for rows.Next() {
		var wp models.ItineraryWaypoint
		var subject string
		if err := rows.Scan(&subject, &wp.Name, &wp.Latitude, &wp.Longitude, &wp.RadiusMeters); err != nil {
			return nil, fmt.Errorf("scan waypoint: %w", err)
		}
		wp.SubjectID = id.SubjectID(subject)
		waypoints = append(waypoints, wp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate itinerary: %w", err)
	}
	return waypoints, nil
}
