// Package config builds runtime configuration from environment variables so
// main stays lean. Detector thresholds live here: they are tuning knobs, not
// business logic, and ops must be able to change them without a rebuild.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	PostgresURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string

	Detection Detection
	ZoneCache ZoneCache
}

// Detection holds the tuning knobs for the signal detectors.
type Detection struct {
	// WindowSize bounds the recent-ping window a pass evaluates.
	WindowSize int
	// InactivityThreshold is the silence duration that first raises a signal.
	InactivityThreshold time.Duration
	// DefaultWaypointRadiusMeters applies to itinerary waypoints that carry
	// no radius of their own.
	DefaultWaypointRadiusMeters float64
	// AltitudeDropMeters within AltitudeDropSpan flags a fall.
	AltitudeDropMeters float64
	AltitudeDropSpan   time.Duration
	// MaxPlausibleSpeedMPS flags GPS jumps and transport-mode violations.
	MaxPlausibleSpeedMPS float64
	// NearbyZoneRadiusMeters bounds the geofence proximity listing.
	NearbyZoneRadiusMeters float64
	NearbyZoneLimit        int
}

// ZoneCache controls the Redis read-through cache over the zone catalog.
type ZoneCache struct {
	TTL time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:          envString("TRAILGUARD_ADDR", ":8080"),
		JWTSigningKey: jwtSigningKey,
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  brokers,
		KafkaTopic:    envString("KAFKA_TOPIC", "trailguard.events"),
		Detection: Detection{
			WindowSize:                  envInt("DETECT_WINDOW_SIZE", 10),
			InactivityThreshold:         envDuration("DETECT_INACTIVITY_THRESHOLD", 30*time.Minute),
			DefaultWaypointRadiusMeters: envFloat("DETECT_WAYPOINT_RADIUS_M", 2000),
			AltitudeDropMeters:          envFloat("DETECT_ALTITUDE_DROP_M", 50),
			AltitudeDropSpan:            envDuration("DETECT_ALTITUDE_DROP_SPAN", 5*time.Minute),
			MaxPlausibleSpeedMPS:        envFloat("DETECT_MAX_SPEED_MPS", 55),
			NearbyZoneRadiusMeters:      envFloat("GEOFENCE_NEARBY_RADIUS_M", 10000),
			NearbyZoneLimit:             envInt("GEOFENCE_NEARBY_LIMIT", 5),
		},
		ZoneCache: ZoneCache{
			TTL: envDuration("ZONE_CACHE_TTL", 5*time.Minute),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
