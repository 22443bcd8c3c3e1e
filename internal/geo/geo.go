// Package geo provides great-circle math over WGS84 coordinates expressed in
// degrees. Pure and deterministic; callers validate input once at the trust
// boundary with ValidateCoordinates.
package geo

import (
	"math"

	dErrors "trailguard/pkg/domain-errors"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two points using
// the haversine formula.
func DistanceMeters(latA, lonA, latB, lonB float64) float64 {
	phiA := radians(latA)
	phiB := radians(latB)
	dPhi := radians(latB - latA)
	dLambda := radians(lonB - lonA)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phiA)*math.Cos(phiB)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// BearingDegrees returns the initial bearing from point A to point B in
// degrees clockwise from north, normalized to [0, 360).
func BearingDegrees(latA, lonA, latB, lonB float64) float64 {
	phiA := radians(latA)
	phiB := radians(latB)
	dLambda := radians(lonB - lonA)

	y := math.Sin(dLambda) * math.Cos(phiB)
	x := math.Cos(phiA)*math.Sin(phiB) - math.Sin(phiA)*math.Cos(phiB)*math.Cos(dLambda)
	theta := math.Atan2(y, x)

	return math.Mod(theta*180/math.Pi+360, 360)
}

// ValidateCoordinates rejects non-finite or out-of-range degree values. Run
// before any persistence is touched so malformed input fails fast.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return dErrors.New(dErrors.CodeInvalidInput, "coordinates must be finite")
	}
	if lat < -90 || lat > 90 {
		return dErrors.New(dErrors.CodeInvalidInput, "latitude must be in [-90, 90]")
	}
	if lon < -180 || lon > 180 {
		return dErrors.New(dErrors.CodeInvalidInput, "longitude must be in [-180, 180]")
	}
	return nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
