package detect

import (
	"fmt"
	"time"

	"trailguard/internal/geo"
	locmodels "trailguard/internal/location/models"
	"trailguard/internal/platform/config"
)

// Every detector takes the recent-window of pings ordered most recent first
// and returns nil when the condition does not hold. An empty window is
// "insufficient data" for all detectors, never a signal: a subject with no
// pings ever recorded raises nothing (the pass reports no_data instead).

// Inactivity flags prolonged silence since the most recent ping. Severity
// escalates with elapsed-time buckets measured in multiples of the
// configured threshold t: [t,2t) low, [2t,4t) medium, [4t,8t) high,
// >=8t critical.
func Inactivity(cfg config.Detection, now time.Time, window []locmodels.LocationPing) *Signal {
	if len(window) == 0 {
		return nil
	}
	last := window[0]
	elapsed := now.Sub(last.Timestamp)
	if elapsed < cfg.InactivityThreshold {
		return nil
	}

	var severity Severity
	switch {
	case elapsed >= 8*cfg.InactivityThreshold:
		severity = SeverityCritical
	case elapsed >= 4*cfg.InactivityThreshold:
		severity = SeverityHigh
	case elapsed >= 2*cfg.InactivityThreshold:
		severity = SeverityMedium
	default:
		severity = SeverityLow
	}

	return &Signal{
		Type:        TypeInactivity,
		Severity:    severity,
		Description: fmt.Sprintf("no location update for %s", elapsed.Round(time.Minute)),
		Latitude:    last.Latitude,
		Longitude:   last.Longitude,
		Metadata: map[string]any{
			"elapsed_minutes": int(elapsed.Minutes()),
			"last_seen":       last.Timestamp.Format(time.RFC3339),
		},
	}
}

// RouteDeviation flags a subject whose latest position is outside every
// itinerary waypoint's allowed radius. No itinerary on file means no
// deviation. Severity grows with how far past the nearest allowed radius
// the subject is: up to 2x low, up to 5x medium, beyond that high.
func RouteDeviation(cfg config.Detection, window []locmodels.LocationPing, waypoints []locmodels.ItineraryWaypoint) *Signal {
	if len(window) == 0 || len(waypoints) == 0 {
		return nil
	}
	latest := window[0]

	minDistance := -1.0
	minAllowed := cfg.DefaultWaypointRadiusMeters
	var nearest locmodels.ItineraryWaypoint
	withinAny := false

	for _, wp := range waypoints {
		allowed := cfg.DefaultWaypointRadiusMeters
		if wp.RadiusMeters != nil && *wp.RadiusMeters > 0 {
			allowed = *wp.RadiusMeters
		}
		d := geo.DistanceMeters(latest.Latitude, latest.Longitude, wp.Latitude, wp.Longitude)
		if d <= allowed {
			withinAny = true
			break
		}
		if minDistance < 0 || d < minDistance {
			minDistance = d
			minAllowed = allowed
			nearest = wp
		}
	}
	if withinAny {
		return nil
	}

	ratio := minDistance / minAllowed
	var severity Severity
	switch {
	case ratio > 5:
		severity = SeverityHigh
	case ratio > 2:
		severity = SeverityMedium
	default:
		severity = SeverityLow
	}

	return &Signal{
		Type:        TypeRouteDeviation,
		Severity:    severity,
		Description: fmt.Sprintf("%.0f m from nearest itinerary waypoint (allowed %.0f m)", minDistance, minAllowed),
		Latitude:    latest.Latitude,
		Longitude:   latest.Longitude,
		Metadata: map[string]any{
			"min_distance_m":   minDistance,
			"allowed_radius_m": minAllowed,
			"nearest_waypoint": nearest.Name,
			"nearest_lat":      nearest.Latitude,
			"nearest_lon":      nearest.Longitude,
			"bearing_to_route": geo.BearingDegrees(latest.Latitude, latest.Longitude, nearest.Latitude, nearest.Longitude),
		},
	}
}

// AltitudeDrop scans consecutive-in-time samples for an elevation loss
// exceeding the configured threshold within the configured span (fall
// heuristic). Requires at least two samples with altitude present. A drop
// of twice the threshold is critical, otherwise high.
func AltitudeDrop(cfg config.Detection, window []locmodels.LocationPing) *Signal {
	if len(window) < 2 {
		return nil
	}

	// Walk from most recent backwards; window[i] is newer than window[i+1].
	for i := 0; i < len(window)-1; i++ {
		newer, older := window[i], window[i+1]
		if newer.Altitude == nil || older.Altitude == nil {
			continue
		}
		span := newer.Timestamp.Sub(older.Timestamp)
		if span <= 0 || span > cfg.AltitudeDropSpan {
			continue
		}
		drop := *older.Altitude - *newer.Altitude
		if drop < cfg.AltitudeDropMeters {
			continue
		}

		severity := SeverityHigh
		if drop >= 2*cfg.AltitudeDropMeters {
			severity = SeverityCritical
		}
		return &Signal{
			Type:        TypeAltitudeDrop,
			Severity:    severity,
			Description: fmt.Sprintf("altitude dropped %.0f m in %s", drop, span.Round(time.Second)),
			Latitude:    newer.Latitude,
			Longitude:   newer.Longitude,
			Metadata: map[string]any{
				"drop_m":       drop,
				"span_seconds": int(span.Seconds()),
				"from_alt":     *older.Altitude,
				"to_alt":       *newer.Altitude,
			},
		}
	}
	return nil
}

// SpeedAnomaly flags an implausible implied speed between the two most
// recent samples (GPS jump or transport-mode violation). Zero or negative
// elapsed time between samples is a data-quality condition, not an anomaly:
// it is skipped rather than divided by. Severity in multiples of the
// configured maximum v: [v,2v) medium, [2v,4v) high, >=4v critical.
func SpeedAnomaly(cfg config.Detection, window []locmodels.LocationPing) *Signal {
	if len(window) < 2 {
		return nil
	}
	newer, older := window[0], window[1]

	elapsed := newer.Timestamp.Sub(older.Timestamp).Seconds()
	if elapsed <= 0 {
		return nil
	}
	distance := geo.DistanceMeters(older.Latitude, older.Longitude, newer.Latitude, newer.Longitude)
	speed := distance / elapsed
	if speed <= cfg.MaxPlausibleSpeedMPS {
		return nil
	}

	var severity Severity
	switch {
	case speed >= 4*cfg.MaxPlausibleSpeedMPS:
		severity = SeverityCritical
	case speed >= 2*cfg.MaxPlausibleSpeedMPS:
		severity = SeverityHigh
	default:
		severity = SeverityMedium
	}

	return &Signal{
		Type:        TypeSpeedAnomaly,
		Severity:    severity,
		Description: fmt.Sprintf("implied speed %.0f m/s exceeds plausible maximum %.0f m/s", speed, cfg.MaxPlausibleSpeedMPS),
		Latitude:    newer.Latitude,
		Longitude:   newer.Longitude,
		Metadata: map[string]any{
			"speed_mps":  speed,
			"distance_m": distance,
			"elapsed_s":  elapsed,
		},
	}
}
