package maps

import (
	"context"
	"math"

	"tripease/internal/types"
)

const (
	earthRadiusKm = 6371.0
	// roadFactor approximates road distance from the great-circle
	// distance; minutesPerKm approximates urban travel time.
	roadFactor   = 1.3
	minutesPerKm = 3.0
)

// HaversineEstimator approximates trip metrics from straight-line
// distance. Used when no Directions API key is configured.
type HaversineEstimator struct{}

func (HaversineEstimator) Estimate(_ context.Context, origin, destination types.Point) (RouteEstimate, error) {
	km := haversineKm(origin, destination) * roadFactor
	return RouteEstimate{
		DistanceKm:  math.Round(km*10) / 10,
		DurationMin: math.Round(km * minutesPerKm),
	}, nil
}

// haversineKm returns the great-circle distance in kilometres between
// two points in decimal degrees.
func haversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
