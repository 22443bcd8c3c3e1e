// Package service records incoming location pings. Validation happens here,
// before persistence is touched; detection runs separately, triggered by the
// transport layer after a successful ingest.
package service

import (
	"context"
	"log/slog"

	"trailguard/internal/geo"
	"trailguard/internal/location/models"
	dErrors "trailguard/pkg/domain-errors"
	"trailguard/pkg/requestcontext"
)

// PingWriter is the narrow write surface this service needs.
type PingWriter interface {
	Insert(ctx context.Context, ping models.LocationPing) error
}

type Service struct {
	store  PingWriter
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store PingWriter, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "location store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RecordPing validates and persists one location report. A zero timestamp
// defaults to the request-scoped now.
func (s *Service) RecordPing(ctx context.Context, ping models.LocationPing) error {
	if ping.SubjectID.IsEmpty() {
		return dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	if err := geo.ValidateCoordinates(ping.Latitude, ping.Longitude); err != nil {
		return err
	}
	if ping.Timestamp.IsZero() {
		ping.Timestamp = requestcontext.Now(ctx)
	}

	if err := s.store.Insert(ctx, ping); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record location")
	}
	s.logger.DebugContext(ctx, "location recorded",
		"subject_id", ping.SubjectID,
		"lat", ping.Latitude,
		"lon", ping.Longitude,
	)
	return nil
}
