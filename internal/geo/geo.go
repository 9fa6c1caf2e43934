// Package geo provides great-circle distance math and proximity filtering
// over route paths.
package geo

import (
	"math"

	"github.com/starford/byahe/internal/models"
)

// earthRadius is the mean Earth radius in meters.
const earthRadius = 6371e3

// Distance returns the haversine great-circle distance in meters between a
// waypoint and a [lat, lng] path coordinate.
func Distance(p models.Waypoint, coord [2]float64) float64 {
	phi1 := p.Lat * math.Pi / 180
	phi2 := coord[0] * math.Pi / 180
	dPhi := (coord[0] - p.Lat) * math.Pi / 180
	dLambda := (coord[1] - p.Lng) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

// PathNear reports whether any coordinate of path lies within threshold
// meters of p.
func PathNear(p models.Waypoint, path [][2]float64, threshold float64) bool {
	for _, coord := range path {
		if Distance(p, coord) < threshold {
			return true
		}
	}
	return false
}

// FilterNear returns the routes whose rendered path passes within threshold
// meters of p. Linear scan; the route catalog is small enough that no
// spatial index is warranted.
func FilterNear(routes []models.Route, p models.Waypoint, threshold float64) []models.Route {
	var out []models.Route
	for _, r := range routes {
		if PathNear(p, r.Path, threshold) {
			out = append(out, r)
		}
	}
	return out
}
