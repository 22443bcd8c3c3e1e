package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trailguard/pkg/domain-errors"
)

func TestDistanceMeters(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		assert.Zero(t, DistanceMeters(28.6, 77.2, 28.6, 77.2))
	})

	t.Run("symmetric", func(t *testing.T) {
		d1 := DistanceMeters(28.6, 77.2, 27.1, 78.0)
		d2 := DistanceMeters(27.1, 78.0, 28.6, 77.2)
		assert.InDelta(t, d1, d2, 1e-9)
	})

	t.Run("one degree of latitude along a meridian", func(t *testing.T) {
		// 1 degree of latitude is about 111,195 m on a sphere of R=6371km.
		d := DistanceMeters(28.0, 77.0, 29.0, 77.0)
		assert.InDelta(t, 111195, d, 10)
	})

	t.Run("half a kilometer across Delhi", func(t *testing.T) {
		// Reference pair used by the geofence breach scenario.
		d := DistanceMeters(28.6000, 77.2000, 28.6000, 77.2050)
		assert.InDelta(t, 488, d, 5)
	})

	t.Run("antipodal points near half circumference", func(t *testing.T) {
		d := DistanceMeters(0, 0, 0, 180)
		assert.InDelta(t, math.Pi*6371000, d, 1)
	})
}

func TestBearingDegrees(t *testing.T) {
	t.Run("due north", func(t *testing.T) {
		assert.InDelta(t, 0, BearingDegrees(28.0, 77.0, 29.0, 77.0), 0.01)
	})

	t.Run("due east at equator", func(t *testing.T) {
		assert.InDelta(t, 90, BearingDegrees(0, 0, 0, 1), 0.01)
	})

	t.Run("normalized to [0,360)", func(t *testing.T) {
		b := BearingDegrees(29.0, 77.0, 28.0, 77.0)
		assert.GreaterOrEqual(t, b, 0.0)
		assert.Less(t, b, 360.0)
		assert.InDelta(t, 180, b, 0.01)
	})
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantErr  bool
	}{
		{"valid", 28.6, 77.2, false},
		{"boundary lat", 90, 0, false},
		{"boundary lon", 0, -180, false},
		{"lat too big", 90.1, 0, true},
		{"lon too big", 0, 180.5, true},
		{"NaN lat", math.NaN(), 0, true},
		{"Inf lon", 0, math.Inf(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lon)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}
