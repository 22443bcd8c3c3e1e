// Package service implements the geofence evaluator: breach testing and
// nearest-zone ranking of a position against the active zone catalog.
package service

import (
	"context"
	"log/slog"
	"sort"

	"trailguard/internal/geo"
	"trailguard/internal/geofence/models"
	"trailguard/internal/platform/config"
	dErrors "trailguard/pkg/domain-errors"
)

// ZoneStore supplies the active zone catalog.
type ZoneStore interface {
	ListActive(ctx context.Context) ([]models.RestrictedZone, error)
}

type Service struct {
	store  ZoneStore
	cfg    config.Detection
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store ZoneStore, cfg config.Detection, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "zone store is required")
	}
	s := &Service{store: store, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate tests a position against the active catalog. Breached zones are
// all zones containing the point; nearby zones are non-breached zones within
// the configured proximity window, ascending by distance, truncated to the
// configured count. The dominant zone is the breached zone with the highest
// risk, first encountered winning ties.
func (s *Service) Evaluate(ctx context.Context, lat, lon float64) (*models.Evaluation, error) {
	if err := geo.ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	zones, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone catalog")
	}

	eval := &models.Evaluation{
		BreachedZones: []models.ZoneDistance{},
		NearbyZones:   []models.ZoneDistance{},
	}

	for _, zone := range zones {
		d := geo.DistanceMeters(lat, lon, zone.Latitude, zone.Longitude)
		switch {
		case d <= zone.RadiusMeters:
			eval.BreachedZones = append(eval.BreachedZones, models.ZoneDistance{Zone: zone, DistanceMeters: d})
		case d <= s.cfg.NearbyZoneRadiusMeters:
			eval.NearbyZones = append(eval.NearbyZones, models.ZoneDistance{Zone: zone, DistanceMeters: d})
		}
	}

	sort.SliceStable(eval.NearbyZones, func(i, j int) bool {
		return eval.NearbyZones[i].DistanceMeters < eval.NearbyZones[j].DistanceMeters
	})
	if limit := s.cfg.NearbyZoneLimit; limit > 0 && len(eval.NearbyZones) > limit {
		eval.NearbyZones = eval.NearbyZones[:limit]
	}

	if len(eval.BreachedZones) > 0 {
		eval.Breached = true
		dominant := eval.BreachedZones[0].Zone
		for _, zd := range eval.BreachedZones[1:] {
			if zd.Zone.Risk.Rank() > dominant.Risk.Rank() {
				dominant = zd.Zone
			}
		}
		eval.Dominant = &dominant
		eval.RiskLevel = dominant.Risk.Rank()
	}

	return eval, nil
}

// ActiveZones returns the catalog ordered by descending risk for the
// operator listing.
func (s *Service) ActiveZones(ctx context.Context) ([]models.RestrictedZone, error) {
	zones, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load zone catalog")
	}
	sort.SliceStable(zones, func(i, j int) bool {
		return zones[i].Risk.Rank() > zones[j].Risk.Rank()
	})
	return zones, nil
}
