package geo

import (
	"testing"

	"github.com/starford/byahe/internal/models"
)

func TestDistanceKnownPair(t *testing.T) {
	// PITX to Monumento is roughly 18.5 km as the crow flies.
	pitx := models.Waypoint{Lat: 14.5097, Lng: 120.9908}
	monumento := [2]float64{14.6547, 120.9838}

	d := Distance(pitx, monumento)
	if d < 15000 || d > 20000 {
		t.Errorf("distance = %.0f m, want roughly 16-18 km", d)
	}
}

func TestDistanceZero(t *testing.T) {
	p := models.Waypoint{Lat: 14.575, Lng: 120.990}
	if d := Distance(p, [2]float64{14.575, 120.990}); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
}

func TestFilterNear(t *testing.T) {
	near := models.Route{
		ID:   "near",
		Path: [][2]float64{{14.600, 120.980}, {14.601, 120.981}},
	}
	far := models.Route{
		ID:   "far",
		Path: [][2]float64{{14.700, 121.100}},
	}

	got := FilterNear([]models.Route{near, far}, models.Waypoint{Lat: 14.6005, Lng: 120.9805}, 120)
	if len(got) != 1 || got[0].ID != "near" {
		t.Fatalf("FilterNear = %+v, want only %q", got, "near")
	}
}

func TestPathNearEmptyPath(t *testing.T) {
	if PathNear(models.Waypoint{Lat: 1, Lng: 1}, nil, 1000) {
		t.Error("empty path should never be near")
	}
}
