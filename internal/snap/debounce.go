package snap

import (
	"context"
	"sync"
	"time"

	"github.com/starford/byahe/internal/models"
)

// Debouncer delays road-snapping until waypoint edits pause. Each Touch
// resets the timer; when it fires, the latest waypoint set is snapped and
// delivered to the callback. A Touch for a draft that has since changed
// again simply supersedes the pending one.
type Debouncer struct {
	client *Client
	delay  time.Duration
	onPath func([][2]float64)

	mu    sync.Mutex
	timer *time.Timer
	gen   int
}

// NewDebouncer creates a debouncer with the given settle delay.
func NewDebouncer(client *Client, delay time.Duration, onPath func([][2]float64)) *Debouncer {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Debouncer{client: client, delay: delay, onPath: onPath}
}

// Touch registers an edit. The snap request is issued only after delay
// elapses without another Touch. Fewer than two waypoints short-circuits
// to the straight path immediately.
func (d *Debouncer) Touch(ctx context.Context, waypoints []models.Waypoint) {
	if len(waypoints) < 2 {
		d.Cancel()
		d.onPath(StraightPath(waypoints))
		return
	}

	wps := append([]models.Waypoint(nil), waypoints...)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		path := d.client.SnappedPath(ctx, wps)

		// Discard if another edit arrived while the request was in flight.
		d.mu.Lock()
		stale := gen != d.gen
		d.mu.Unlock()
		if !stale {
			d.onPath(path)
		}
	})
}

// Cancel drops any pending snap.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
