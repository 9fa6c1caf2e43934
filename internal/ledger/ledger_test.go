package ledger

import (
	"reflect"
	"testing"
	"time"

	"github.com/starford/byahe/internal/models"
)

func sampleRoute() models.Route {
	created := models.Millis(time.UnixMilli(1700000000000).UTC())
	return Normalize(models.Route{
		ID:        "route-1",
		Name:      "PITX - Monumento",
		Author:    "Ana",
		Waypoints: []models.Waypoint{{Lat: 14.60, Lng: 120.98}, {Lat: 14.61, Lng: 120.99}},
		Score:     1,
		Votes:     1,
		CreatedAt: created,
	})
}

func TestNormalizeSynthesizesInitialRefinement(t *testing.T) {
	r := sampleRoute()
	if len(r.RefinementHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(r.RefinementHistory))
	}
	ref := r.RefinementHistory[0]
	if ref.Contributor != "Ana" {
		t.Errorf("contributor = %q, want Ana", ref.Contributor)
	}
	if ref.Score != 1 || ref.Votes != 1 {
		t.Errorf("initial tally = %d/%d, want 1/1", ref.Score, ref.Votes)
	}
	if r.ActiveRefinementID != ref.ID {
		t.Errorf("active id = %q, want %q", r.ActiveRefinementID, ref.ID)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := sampleRoute()
	twice := Normalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("normalize not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestNormalizeSortsHistory(t *testing.T) {
	r := models.Route{
		ID: "route-2",
		RefinementHistory: []models.Refinement{
			{ID: "b", CreatedAt: models.Millis(time.UnixMilli(2000).UTC())},
			{ID: "a", CreatedAt: models.Millis(time.UnixMilli(1000).UTC())},
			{ID: "c", CreatedAt: models.Millis(time.UnixMilli(3000).UTC())},
		},
	}
	got := Normalize(r)
	want := []string{"a", "b", "c"}
	for i, ref := range got.RefinementHistory {
		if ref.ID != want[i] {
			t.Fatalf("history[%d] = %q, want %q", i, ref.ID, want[i])
		}
	}
	// No active id was set, so the latest entry becomes active.
	if got.ActiveRefinementID != "c" {
		t.Errorf("active = %q, want c", got.ActiveRefinementID)
	}
}

func TestResolveActiveStaleID(t *testing.T) {
	r := sampleRoute()
	r.ActiveRefinementID = "does-not-exist"
	active, ok := ResolveActive(r)
	if !ok {
		t.Fatal("expected a refinement")
	}
	if active.ID != r.RefinementHistory[len(r.RefinementHistory)-1].ID {
		t.Errorf("stale id should fall back to latest, got %q", active.ID)
	}
}

func TestAppendMakesNewRefinementActive(t *testing.T) {
	r := sampleRoute()
	ref := NewRefinement("Ben", models.Now())
	got := Append(r, ref)

	if len(got.RefinementHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(got.RefinementHistory))
	}
	if got.ActiveRefinementID != ref.ID {
		t.Errorf("active = %q, want %q", got.ActiveRefinementID, ref.ID)
	}
	if !got.LastRefinedAt.Equal(ref.CreatedAt) {
		t.Errorf("lastRefinedAt = %v, want %v", got.LastRefinedAt, ref.CreatedAt)
	}
	if got.Score != ref.Score || got.Votes != ref.Votes {
		t.Errorf("mirror = %d/%d, want %d/%d", got.Score, got.Votes, ref.Score, ref.Votes)
	}
	// The original value is untouched.
	if len(r.RefinementHistory) != 1 {
		t.Errorf("append mutated its input")
	}
}

func TestAppendOutOfOrderTimestampResorts(t *testing.T) {
	r := sampleRoute()
	early := models.Refinement{
		ID:        "early",
		CreatedAt: models.Millis(time.UnixMilli(1).UTC()),
		Score:     5,
		Votes:     5,
	}
	got := Append(r, early)

	if got.RefinementHistory[0].ID != "early" {
		t.Errorf("out-of-order refinement should sort first, history[0] = %q", got.RefinementHistory[0].ID)
	}
	// The appended refinement is still the active one even though it is not last.
	if got.ActiveRefinementID != "early" {
		t.Errorf("active = %q, want early", got.ActiveRefinementID)
	}
	if got.Score != 5 || got.Votes != 5 {
		t.Errorf("mirror = %d/%d, want 5/5", got.Score, got.Votes)
	}
}

func TestMirrorTracksActive(t *testing.T) {
	r := sampleRoute()
	r = Append(r, models.Refinement{ID: "r2", CreatedAt: models.Now(), Score: 7, Votes: 9})
	if r.Score != 7 || r.Votes != 9 {
		t.Errorf("mirror = %d/%d, want 7/9", r.Score, r.Votes)
	}
}
