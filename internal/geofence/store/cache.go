package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"trailguard/internal/geofence/models"
	platformredis "trailguard/internal/platform/redis"
)

const zoneCacheKey = "trailguard:zones:active"

// CachedZoneStore is a Redis read-through cache over a zone store. The TTL
// is the staleness contract: a zone deactivated in the catalog keeps
// matching for at most TTL. Cache failures degrade to store reads.
type CachedZoneStore struct {
	inner  ListActiver
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// ListActiver is the read surface this cache decorates.
type ListActiver interface {
	ListActive(ctx context.Context) ([]models.RestrictedZone, error)
}

// NewCached wraps inner with a Redis cache. A nil client disables caching
// entirely, every read hits the inner store.
func NewCached(inner ListActiver, client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *CachedZoneStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedZoneStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (s *CachedZoneStore) ListActive(ctx context.Context) ([]models.RestrictedZone, error) {
	if s.client == nil {
		return s.inner.ListActive(ctx)
	}

	if raw, err := s.client.Get(ctx, zoneCacheKey).Bytes(); err == nil {
		var zones []models.RestrictedZone
		if err := json.Unmarshal(raw, &zones); err == nil {
			return zones, nil
		}
		// Corrupt entry: fall through and overwrite.
	}

	zones, err := s.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(zones); err == nil {
		if err := s.client.Set(ctx, zoneCacheKey, raw, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "zone cache write failed", "error", err.Error())
		}
	}
	return zones, nil
}

// Invalidate drops the cached catalog, forcing the next read through.
func (s *CachedZoneStore) Invalidate(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, zoneCacheKey).Err()
}
