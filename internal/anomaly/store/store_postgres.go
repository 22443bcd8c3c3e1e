package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"trailguard/internal/anomaly/models"
	"trailguard/internal/detect"
	id "trailguard/pkg/domain"
	dErrors "trailguard/pkg/domain-errors"
)

// PostgresAnomalyStore persists anomalies in PostgreSQL. A partial unique
// index on (subject_id, type) WHERE status = 'active' backs the conditional
// insert.
type PostgresAnomalyStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed anomaly store.
func NewPostgres(db *sql.DB) *PostgresAnomalyStore {
	return &PostgresAnomalyStore{db: db}
}

// InsertIfNoActive inserts the anomaly unless the subject already has an
// active one of the same type. Returns true when the row was inserted.
func (s *PostgresAnomalyStore) InsertIfNoActive(ctx context.Context, anomaly models.Anomaly) (bool, error) {
	metadata, err := marshalMetadata(anomaly.Metadata)
	if err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO anomalies (id, subject_id, type, severity, description, lat, lon, metadata, status, detected_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE NOT EXISTS (
			SELECT 1 FROM anomalies
			WHERE subject_id = $2 AND type = $3 AND status = 'active'
		)
		ON CONFLICT DO NOTHING
	`,
		anomaly.ID.String(), anomaly.SubjectID.String(), string(anomaly.Type),
		string(anomaly.Severity), anomaly.Description,
		anomaly.Latitude, anomaly.Longitude, metadata,
		string(anomaly.Status), anomaly.DetectedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert anomaly: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert anomaly rows affected: %w", err)
	}
	return rows == 1, nil
}

func (s *PostgresAnomalyStore) GetByID(ctx context.Context, anomalyID id.AnomalyID) (models.Anomaly, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, type, severity, description, lat, lon, metadata, status, detected_at, resolved_at
		FROM anomalies
		WHERE id = $1
	`, anomalyID.String())

	anomaly, err := scanAnomaly(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Anomaly{}, dErrors.New(dErrors.CodeNotFound, "anomaly not found")
		}
		return models.Anomaly{}, fmt.Errorf("get anomaly: %w", err)
	}
	return anomaly, nil
}

func (s *PostgresAnomalyStore) UpdateResolution(ctx context.Context, anomalyID id.AnomalyID, status models.Status, resolvedAt time.Time, metadata map[string]any) error {
	encoded, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE anomalies
		SET status = $2, resolved_at = $3, metadata = $4
		WHERE id = $1
	`, anomalyID.String(), string(status), resolvedAt, encoded)
	if err != nil {
		return fmt.Errorf("update anomaly resolution: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update anomaly rows affected: %w", err)
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "anomaly not found")
	}
	return nil
}

func (s *PostgresAnomalyStore) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]models.Anomaly, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_id, type, severity, description, lat, lon, metadata, status, detected_at, resolved_at
		FROM anomalies
		WHERE subject_id = $1
		ORDER BY detected_at DESC
	`, subjectID.String())
	if err != nil {
		return nil, fmt.Errorf("list anomalies by subject: %w", err)
	}
	defer rows.Close()
	return collectAnomalies(rows)
}

func (s *PostgresAnomalyStore) List(ctx context.Context, status models.Status, limit int) ([]models.Anomaly, error) {
	query := `
		SELECT id, subject_id, type, severity, description, lat, lon, metadata, status, detected_at, resolved_at
		FROM anomalies`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += fmt.Sprintf(` ORDER BY detected_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list anomalies: %w", err)
	}
	defer rows.Close()
	return collectAnomalies(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnomaly(row rowScanner) (models.Anomaly, error) {
	var (
		a                                      models.Anomaly
		anomalyID, subject, typ, sev, statusIn string
		metadata                               []byte
		resolvedAt                             sql.NullTime
	)
	err := row.Scan(&anomalyID, &subject, &typ, &sev, &a.Description,
		&a.Latitude, &a.Longitude, &metadata, &statusIn, &a.DetectedAt, &resolvedAt)
	if err != nil {
		return models.Anomaly{}, err
	}

	parsed, err := id.ParseAnomalyID(anomalyID)
	if err != nil {
		return models.Anomaly{}, fmt.Errorf("parse stored anomaly id: %w", err)
	}
	a.ID = parsed
	a.SubjectID = id.SubjectID(subject)
	a.Type = detect.AnomalyType(typ)
	a.Severity = detect.Severity(sev)
	a.Status = models.Status(statusIn)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return models.Anomaly{}, fmt.Errorf("decode anomaly metadata: %w", err)
		}
	}
	return a, nil
}

func collectAnomalies(rows *sql.Rows) ([]models.Anomaly, error) {
	var out []models.Anomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anomalies: %w", err)
	}
	return out, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode anomaly metadata: %w", err)
	}
	return encoded, nil
}
