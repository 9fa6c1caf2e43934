// Package ledger maintains the append-only refinement history of a route
// and resolves which refinement is active.
//
// All functions are pure: they take route values and return new route
// values, so callers can hold optimistic copies without locking.
package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/starford/byahe/internal/models"
)

// NewRefinement creates a refinement record for a contribution happening now.
// Every new route and every refine action seeds its tally with the
// contributor's own implicit upvote.
func NewRefinement(contributor string, at models.Millis) models.Refinement {
	return models.Refinement{
		ID:          "ref-" + uuid.NewString(),
		Contributor: contributor,
		CreatedAt:   at,
		Score:       1,
		Votes:       1,
	}
}

// Append adds ref to the route's history and makes it the active refinement.
// It never fails: an out-of-order CreatedAt is absorbed by re-sorting the
// history rather than rejected. The returned route has LastRefinedAt set to
// the new refinement's timestamp and its score/votes mirror re-derived.
func Append(route models.Route, ref models.Refinement) models.Route {
	out := route.Clone()
	out.RefinementHistory = append(out.RefinementHistory, ref)
	sortHistory(out.RefinementHistory)
	out.ActiveRefinementID = ref.ID
	out.LastRefinedAt = ref.CreatedAt
	return Mirror(out)
}

// ResolveActive returns the refinement referenced by ActiveRefinementID,
// falling back to the chronologically last entry when the id is absent or
// stale (e.g. after a backend-authoritative merge). The second return is
// false only for a route with an empty history, which Normalize prevents.
func ResolveActive(route models.Route) (models.Refinement, bool) {
	if len(route.RefinementHistory) == 0 {
		return models.Refinement{}, false
	}
	if route.ActiveRefinementID != "" {
		for _, ref := range route.RefinementHistory {
			if ref.ID == route.ActiveRefinementID {
				return ref, true
			}
		}
	}
	return route.RefinementHistory[len(route.RefinementHistory)-1], true
}

// Mirror recomputes the route's denormalized score/votes from its active
// refinement and pins ActiveRefinementID to the resolved entry.
func Mirror(route models.Route) models.Route {
	active, ok := ResolveActive(route)
	if !ok {
		return route
	}
	route.ActiveRefinementID = active.ID
	route.Score = active.Score
	route.Votes = active.Votes
	return route
}

// Normalize reconstructs a conformant route from a payload of uncertain
// shape: it synthesizes a single initial refinement from the top-level
// score/votes/author/createdAt when the history is empty, re-sorts the
// history, and re-derives the denormalized fields. Normalize is idempotent.
func Normalize(route models.Route) models.Route {
	out := route.Clone()

	if out.CreatedAt.Time().IsZero() {
		out.CreatedAt = models.Millis(models.EpochFallback)
	}

	if len(out.RefinementHistory) == 0 {
		out.RefinementHistory = []models.Refinement{{
			ID:          out.ID + "-initial",
			Contributor: out.Author,
			CreatedAt:   out.CreatedAt,
			Score:       out.Score,
			Votes:       out.Votes,
		}}
	}
	for i := range out.RefinementHistory {
		if out.RefinementHistory[i].CreatedAt.Time().IsZero() {
			out.RefinementHistory[i].CreatedAt = models.Millis(models.EpochFallback)
		}
	}

	sortHistory(out.RefinementHistory)

	if out.LastRefinedAt.Time().IsZero() {
		out.LastRefinedAt = out.RefinementHistory[len(out.RefinementHistory)-1].CreatedAt
	}
	if out.Waypoints == nil {
		out.Waypoints = []models.Waypoint{}
	}
	if len(out.Path) == 0 {
		// No snapped polyline yet: draw straight between the waypoints.
		out.Path = make([][2]float64, 0, len(out.Waypoints))
		for _, wp := range out.Waypoints {
			out.Path = append(out.Path, [2]float64{wp.Lat, wp.Lng})
		}
	}

	return Mirror(out)
}

// sortHistory orders refinements by CreatedAt ascending. The sort is stable
// so equal timestamps keep their insertion order.
func sortHistory(history []models.Refinement) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})
}
