package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	locmodels "trailguard/internal/location/models"
	"trailguard/internal/platform/config"
	id "trailguard/pkg/domain"
)

func testDetection() config.Detection {
	return config.Detection{
		WindowSize:                  10,
		InactivityThreshold:         30 * time.Minute,
		DefaultWaypointRadiusMeters: 2000,
		AltitudeDropMeters:          50,
		AltitudeDropSpan:            5 * time.Minute,
		MaxPlausibleSpeedMPS:        55,
	}
}

func ping(lat, lon float64, at time.Time) locmodels.LocationPing {
	return locmodels.LocationPing{
		SubjectID: id.SubjectID("subject-1"),
		Latitude:  lat,
		Longitude: lon,
		Timestamp: at,
	}
}

func pingAlt(lat, lon, alt float64, at time.Time) locmodels.LocationPing {
	p := ping(lat, lon, at)
	p.Altitude = &alt
	return p
}

func TestInactivity(t *testing.T) {
	cfg := testDetection()
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	t.Run("empty window is insufficient data, not a signal", func(t *testing.T) {
		assert.Nil(t, Inactivity(cfg, now, nil))
	})

	t.Run("recent ping raises nothing", func(t *testing.T) {
		window := []locmodels.LocationPing{ping(28.6, 77.2, now.Add(-10*time.Minute))}
		assert.Nil(t, Inactivity(cfg, now, window))
	})

	t.Run("severity escalates with elapsed buckets", func(t *testing.T) {
		tests := []struct {
			elapsed time.Duration
			want    Severity
		}{
			{35 * time.Minute, SeverityLow},
			{90 * time.Minute, SeverityMedium},
			{3 * time.Hour, SeverityHigh},
			{5 * time.Hour, SeverityCritical},
		}
		for _, tt := range tests {
			window := []locmodels.LocationPing{ping(28.6, 77.2, now.Add(-tt.elapsed))}
			sig := Inactivity(cfg, now, window)
			require.NotNil(t, sig, "elapsed %s", tt.elapsed)
			assert.Equal(t, tt.want, sig.Severity, "elapsed %s", tt.elapsed)
			assert.Equal(t, TypeInactivity, sig.Type)
		}
	})
}

func TestRouteDeviation(t *testing.T) {
	cfg := testDetection()
	now := time.Now()

	t.Run("no itinerary on file raises nothing", func(t *testing.T) {
		window := []locmodels.LocationPing{ping(28.6, 77.2, now)}
		assert.Nil(t, RouteDeviation(cfg, window, nil))
	})

	t.Run("within a waypoint radius raises nothing", func(t *testing.T) {
		window := []locmodels.LocationPing{ping(28.6, 77.2, now)}
		waypoints := []locmodels.ItineraryWaypoint{
			{SubjectID: "subject-1", Latitude: 28.605, Longitude: 77.2}, // ~556 m away, default 2 km allowed
		}
		assert.Nil(t, RouteDeviation(cfg, window, waypoints))
	})

	t.Run("outside every waypoint raises deviation", func(t *testing.T) {
		window := []locmodels.LocationPing{ping(28.6, 77.2, now)}
		waypoints := []locmodels.ItineraryWaypoint{
			{SubjectID: "subject-1", Latitude: 28.65, Longitude: 77.2}, // ~5.6 km away
		}
		sig := RouteDeviation(cfg, window, waypoints)
		require.NotNil(t, sig)
		assert.Equal(t, TypeRouteDeviation, sig.Type)
		assert.Equal(t, SeverityMedium, sig.Severity) // ~2.8x allowed radius
		assert.InDelta(t, 5560, sig.Metadata["min_distance_m"].(float64), 50)
	})

	t.Run("waypoint-specific radius overrides default", func(t *testing.T) {
		window := []locmodels.LocationPing{ping(28.6, 77.2, now)}
		wide := 10000.0
		waypoints := []locmodels.ItineraryWaypoint{
			{SubjectID: "subject-1", Latitude: 28.65, Longitude: 77.2, RadiusMeters: &wide},
		}
		assert.Nil(t, RouteDeviation(cfg, window, waypoints))
	})
}

func TestAltitudeDrop(t *testing.T) {
	cfg := testDetection()
	now := time.Now()

	t.Run("needs two samples with altitude", func(t *testing.T) {
		assert.Nil(t, AltitudeDrop(cfg, nil))
		assert.Nil(t, AltitudeDrop(cfg, []locmodels.LocationPing{pingAlt(28.6, 77.2, 2000, now)}))

		// Altitude missing on one sample: skipped, no signal.
		window := []locmodels.LocationPing{
			ping(28.6, 77.2, now),
			pingAlt(28.6, 77.2, 2000, now.Add(-time.Minute)),
		}
		assert.Nil(t, AltitudeDrop(cfg, window))
	})

	t.Run("drop over threshold within span flags high", func(t *testing.T) {
		window := []locmodels.LocationPing{
			pingAlt(28.6, 77.2, 1930, now),
			pingAlt(28.6, 77.2, 2000, now.Add(-2*time.Minute)),
		}
		sig := AltitudeDrop(cfg, window)
		require.NotNil(t, sig)
		assert.Equal(t, TypeAltitudeDrop, sig.Type)
		assert.Equal(t, SeverityHigh, sig.Severity)
		assert.InDelta(t, 70, sig.Metadata["drop_m"].(float64), 0.01)
	})

	t.Run("double threshold escalates to critical", func(t *testing.T) {
		window := []locmodels.LocationPing{
			pingAlt(28.6, 77.2, 1880, now),
			pingAlt(28.6, 77.2, 2000, now.Add(-time.Minute)),
		}
		sig := AltitudeDrop(cfg, window)
		require.NotNil(t, sig)
		assert.Equal(t, SeverityCritical, sig.Severity)
	})

	t.Run("slow descent outside span raises nothing", func(t *testing.T) {
		window := []locmodels.LocationPing{
			pingAlt(28.6, 77.2, 1900, now),
			pingAlt(28.6, 77.2, 2000, now.Add(-time.Hour)),
		}
		assert.Nil(t, AltitudeDrop(cfg, window))
	})

	t.Run("ascent raises nothing", func(t *testing.T) {
		window := []locmodels.LocationPing{
			pingAlt(28.6, 77.2, 2100, now),
			pingAlt(28.6, 77.2, 2000, now.Add(-2*time.Minute)),
		}
		assert.Nil(t, AltitudeDrop(cfg, window))
	})
}

func TestSpeedAnomaly(t *testing.T) {
	cfg := testDetection()
	now := time.Now()

	t.Run("needs two samples", func(t *testing.T) {
		assert.Nil(t, SpeedAnomaly(cfg, nil))
		assert.Nil(t, SpeedAnomaly(cfg, []locmodels.LocationPing{ping(28.6, 77.2, now)}))
	})

	t.Run("plausible speed raises nothing", func(t *testing.T) {
		// ~556 m in 60 s is ~9 m/s.
		window := []locmodels.LocationPing{
			ping(28.605, 77.2, now),
			ping(28.6, 77.2, now.Add(-time.Minute)),
		}
		assert.Nil(t, SpeedAnomaly(cfg, window))
	})

	t.Run("gps jump flags critical", func(t *testing.T) {
		// ~500 km in 60 s implies ~8333 m/s.
		window := []locmodels.LocationPing{
			ping(33.1, 77.2, now),
			ping(28.6, 77.2, now.Add(-time.Minute)),
		}
		sig := SpeedAnomaly(cfg, window)
		require.NotNil(t, sig)
		assert.Equal(t, TypeSpeedAnomaly, sig.Type)
		assert.Equal(t, SeverityCritical, sig.Severity)
		assert.Greater(t, sig.Metadata["speed_mps"].(float64), 8000.0)
	})

	t.Run("zero elapsed time is skipped, not divided by", func(t *testing.T) {
		window := []locmodels.LocationPing{
			ping(33.1, 77.2, now),
			ping(28.6, 77.2, now),
		}
		assert.Nil(t, SpeedAnomaly(cfg, window))
	})

	t.Run("out-of-order timestamps are skipped", func(t *testing.T) {
		window := []locmodels.LocationPing{
			ping(33.1, 77.2, now),
			ping(28.6, 77.2, now.Add(time.Minute)),
		}
		assert.Nil(t, SpeedAnomaly(cfg, window))
	})
}

func TestRunner(t *testing.T) {
	cfg := testDetection()
	now := time.Now()

	t.Run("empty window yields no signals", func(t *testing.T) {
		signals, failures := NewRunner(cfg).Run(context.Background(), now, nil, nil)
		assert.Empty(t, signals)
		assert.Empty(t, failures)
	})

	t.Run("independent signals surface together in stable order", func(t *testing.T) {
		// Quiet for 40 minutes AND last hop was a GPS jump.
		window := []locmodels.LocationPing{
			ping(33.1, 77.2, now.Add(-40*time.Minute)),
			ping(28.6, 77.2, now.Add(-41*time.Minute)),
		}
		signals, failures := NewRunner(cfg).Run(context.Background(), now, window, nil)
		require.Empty(t, failures)
		require.Len(t, signals, 2)
		assert.Equal(t, TypeInactivity, signals[0].Type)
		assert.Equal(t, TypeSpeedAnomaly, signals[1].Type)
	})
}
