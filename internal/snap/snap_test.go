package snap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/starford/byahe/internal/models"
)

var testWaypoints = []models.Waypoint{
	{Lat: 14.60, Lng: 120.98},
	{Lat: 14.61, Lng: 120.99},
}

func TestSnappedPathFlipsCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// OSRM speaks [lng, lat].
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":{"coordinates":[[120.98,14.60],[120.985,14.605],[120.99,14.61]]}}]}`))
	}))
	defer srv.Close()

	got := New(srv.URL).SnappedPath(context.Background(), testWaypoints)
	if len(got) != 3 {
		t.Fatalf("path length = %d, want 3", len(got))
	}
	if got[0] != [2]float64{14.60, 120.98} {
		t.Errorf("path[0] = %v, want [lat lng] order", got[0])
	}
}

func TestSnappedPathFallsBackOnNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()

	got := New(srv.URL).SnappedPath(context.Background(), testWaypoints)
	want := StraightPath(testWaypoints)
	if len(got) != len(want) || got[0] != want[0] {
		t.Errorf("fallback = %v, want straight path %v", got, want)
	}
}

func TestSnappedPathFallsBackOnUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1") // nothing listens here
	got := c.SnappedPath(context.Background(), testWaypoints)
	if len(got) != 2 {
		t.Errorf("fallback length = %d, want 2", len(got))
	}
}

func TestSnappedPathSingleWaypoint(t *testing.T) {
	got := New("").SnappedPath(context.Background(), testWaypoints[:1])
	if len(got) != 1 {
		t.Errorf("length = %d, want 1", len(got))
	}
}

func TestDebouncerCoalescesEdits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":{"coordinates":[[120.98,14.60],[120.99,14.61]]}}]}`))
	}))
	defer srv.Close()

	var mu sync.Mutex
	var calls int
	d := NewDebouncer(New(srv.URL), 30*time.Millisecond, func(path [][2]float64) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	// Three rapid edits settle into one snap.
	for range 3 {
		d.Touch(context.Background(), testWaypoints)
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("snap calls = %d, want 1", calls)
	}
}

func TestDebouncerCancel(t *testing.T) {
	var mu sync.Mutex
	var calls int
	d := NewDebouncer(New(""), 20*time.Millisecond, func([][2]float64) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	d.Touch(context.Background(), testWaypoints)
	d.Cancel()
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("snap calls after cancel = %d, want 0", calls)
	}
}
