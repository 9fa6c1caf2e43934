// Package models defines the domain types for Byahe.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// SyncStatus tags a locally cached route with its relation to the remote store.
type SyncStatus string

const (
	SyncSynced  SyncStatus = "synced"
	SyncPending SyncStatus = "pending"
	SyncError   SyncStatus = "error"
)

// Waypoint is a geographic point in degrees.
// Latitude is constrained to [-90, 90], longitude to [-180, 180].
type Waypoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Millis is a timestamp serialized as milliseconds since the Unix epoch.
// Unmarshalling also accepts RFC 3339 strings and numeric strings; anything
// unparseable decodes to the epoch itself so repeated decode/encode cycles
// are stable.
type Millis time.Time

// EpochFallback is the value an unparseable timestamp normalizes to.
var EpochFallback = time.UnixMilli(0).UTC()

// Time returns the underlying time.Time.
func (m Millis) Time() time.Time { return time.Time(m) }

// UnixMilli returns milliseconds since the Unix epoch.
func (m Millis) UnixMilli() int64 { return time.Time(m).UnixMilli() }

// Before reports whether m is before other.
func (m Millis) Before(other Millis) bool { return m.Time().Before(other.Time()) }

// Equal reports whether m and other represent the same instant.
func (m Millis) Equal(other Millis) bool { return m.Time().Equal(other.Time()) }

// MarshalJSON encodes the timestamp as epoch milliseconds.
func (m Millis) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.UnixMilli(), 10)), nil
}

// UnmarshalJSON decodes epoch milliseconds, epoch seconds (heuristically,
// for values too small to be milliseconds), RFC 3339 strings, or numeric
// strings. Unparseable input decodes to EpochFallback rather than failing:
// a malformed remote timestamp must never reject the whole payload.
func (m *Millis) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*m = Millis(EpochFallback)
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*m = fromEpoch(n)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*m = fromEpoch(int64(f))
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		*m = Millis(EpochFallback)
		return nil
	}
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		*m = Millis(t.UTC())
		return nil
	}
	if n, err := strconv.ParseInt(str, 10, 64); err == nil {
		*m = fromEpoch(n)
		return nil
	}
	*m = Millis(EpochFallback)
	return nil
}

// fromEpoch interprets n as milliseconds unless it is small enough that it
// can only be a seconds value (anything before ~1971 in millisecond terms).
func fromEpoch(n int64) Millis {
	if n > 0 && n < 1e11 {
		return Millis(time.Unix(n, 0).UTC())
	}
	return Millis(time.UnixMilli(n).UTC())
}

// Now returns the current instant truncated to millisecond precision.
func Now() Millis {
	return Millis(time.UnixMilli(time.Now().UnixMilli()).UTC())
}

// Refinement is one contribution event on a route. Records are immutable
// once created except for their vote tally.
type Refinement struct {
	ID          string `json:"id"`
	Contributor string `json:"contributor"`
	CreatedAt   Millis `json:"createdAt"`
	Score       int    `json:"score"`
	Votes       int    `json:"votes"`
}

// Route is a named, author-attributed commuter path with a lineage of
// refinements.
//
// Invariants maintained by ledger.Normalize:
//   - RefinementHistory is non-empty, sorted ascending by CreatedAt.
//   - ActiveRefinementID references a history entry, or is resolved to the
//     chronologically last one.
//   - Score and Votes mirror the active refinement (denormalized cache).
type Route struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Author             string       `json:"author"`
	ParentRouteID      string       `json:"parentRouteId,omitempty"`
	Waypoints          []Waypoint   `json:"waypoints"`
	Path               [][2]float64 `json:"path"`
	Color              string       `json:"color"`
	Score              int          `json:"score"`
	Votes              int          `json:"votes"`
	CreatedAt          Millis       `json:"createdAt"`
	LastRefinedAt      Millis       `json:"lastRefinedAt"`
	RefinementHistory  []Refinement `json:"refinementHistory"`
	ActiveRefinementID string       `json:"activeRefinementId,omitempty"`
	SyncStatus         SyncStatus   `json:"syncStatus,omitempty"`
}

// Clone returns a deep copy of the route. Mutating the copy's waypoints,
// path, or history never aliases the original.
func (r Route) Clone() Route {
	out := r
	out.Waypoints = append([]Waypoint(nil), r.Waypoints...)
	out.Path = append([][2]float64(nil), r.Path...)
	out.RefinementHistory = append([]Refinement(nil), r.RefinementHistory...)
	return out
}

// VoteKey is the composite key a client's vote state is tracked under.
// Votes attach to a specific refinement, not to the route as a whole.
func VoteKey(routeID, refinementID string) string {
	return fmt.Sprintf("%s:%s", routeID, refinementID)
}

// Analysis is the commuter guide payload for a route.
type Analysis struct {
	Guide     string   `json:"guide"`
	Landmarks []string `json:"landmarks"`
	Tips      []string `json:"tips"`
}
