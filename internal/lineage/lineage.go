// Package lineage models parent/fork relationships between routes and the
// naming rules applied before a publish.
package lineage

import (
	"fmt"
	"strings"

	"github.com/starford/byahe/internal/apperr"
	"github.com/starford/byahe/internal/models"
)

// ForkCounts counts, for every route id, how many routes declare it as
// their parent. Single O(n) pass.
func ForkCounts(routes []models.Route) map[string]int {
	counts := make(map[string]int)
	for _, r := range routes {
		if r.ParentRouteID != "" {
			counts[r.ParentRouteID]++
		}
	}
	return counts
}

// FilterByParent returns the routes forked from parentID.
func FilterByParent(routes []models.Route, parentID string) []models.Route {
	var out []models.Route
	for _, r := range routes {
		if r.ParentRouteID == parentID {
			out = append(out, r)
		}
	}
	return out
}

// DraftSeed is the starting state of a fork draft: cloned waypoints, a
// suggested name, and the lineage link. Author is left empty for the
// contributor to fill in.
type DraftSeed struct {
	Name          string
	Author        string
	ParentRouteID string
	Waypoints     []models.Waypoint
}

// StartFork produces a fork draft from source. The waypoint clone is deep:
// editing the draft never mutates the source route.
func StartFork(source models.Route) DraftSeed {
	return DraftSeed{
		Name:          fmt.Sprintf("Fork from %s - %s", source.Author, source.Name),
		ParentRouteID: source.ID,
		Waypoints:     append([]models.Waypoint(nil), source.Waypoints...),
	}
}

// CanonicalName lowercases a route name and collapses all whitespace runs
// to single spaces, for duplicate comparison.
func CanonicalName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CheckName rejects a candidate name for a brand-new route when an existing
// route already uses it, compared case-insensitively with whitespace
// collapsed. Refines keep their original name and forks get a synthesized
// one, so callers skip this check for both.
func CheckName(routes []models.Route, candidate string) error {
	want := CanonicalName(candidate)
	if want == "" {
		return fmt.Errorf("%w: route name is empty", apperr.ErrInvalid)
	}
	for _, r := range routes {
		if CanonicalName(r.Name) == want {
			return fmt.Errorf("%w: %q", apperr.ErrDuplicateName, r.Name)
		}
	}
	return nil
}
