// Package testutil provides shared test helpers for setting up route stores.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/byahe/internal/models"
	"github.com/starford/byahe/internal/routestore"
)

// TestStore creates a temporary SQLite route store that is automatically
// cleaned up.
func TestStore(t *testing.T) *routestore.Store {
	t.Helper()
	store, err := routestore.Open(filepath.Join(t.TempDir(), "byahe-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// SampleRoute returns a minimal valid route for tests. The refinement
// history is left empty so normalization synthesizes the initial entry.
func SampleRoute(id, name string) models.Route {
	return models.Route{
		ID:     id,
		Name:   name,
		Author: "Ana",
		Waypoints: []models.Waypoint{
			{Lat: 14.55, Lng: 121.05},
			{Lat: 14.65, Lng: 120.98},
		},
		Score:     1,
		Votes:     1,
		CreatedAt: models.Millis(time.UnixMilli(1700000000000).UTC()),
	}
}
