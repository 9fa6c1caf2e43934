package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/starford/byahe/internal/models"
)

// rawRoute is the loose wire shape a route payload may arrive in. Older
// backends used snake_case timestamps or a bare "created"/"updated" pair and
// predate refinement histories; each field lists its accessors in priority
// order. The loose shape stops here: everything past ParseRoute sees only
// models.Route.
type rawRoute struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Author        string            `json:"author"`
	ParentRouteID string            `json:"parentRouteId"`
	ParentSnake   string            `json:"parent_route_id"`
	Waypoints     []models.Waypoint `json:"waypoints"`
	Path          [][2]float64      `json:"path"`
	Color         string            `json:"color"`
	Score         int               `json:"score"`
	Votes         int               `json:"votes"`

	CreatedAt    *models.Millis `json:"createdAt"`
	CreatedSnake *models.Millis `json:"created_at"`
	Created      *models.Millis `json:"created"`

	LastRefinedAt *models.Millis `json:"lastRefinedAt"`
	UpdatedAt     *models.Millis `json:"updatedAt"`
	UpdatedSnake  *models.Millis `json:"updated_at"`

	RefinementHistory []rawRefinement `json:"refinementHistory"`
	Refinements       []rawRefinement `json:"refinements"`

	ActiveRefinementID string            `json:"activeRefinementId"`
	SyncStatus         models.SyncStatus `json:"syncStatus"`
}

type rawRefinement struct {
	ID          string `json:"id"`
	Contributor string `json:"contributor"`
	Author      string `json:"author"`

	CreatedAt    *models.Millis `json:"createdAt"`
	CreatedSnake *models.Millis `json:"created_at"`

	Score int `json:"score"`
	Votes int `json:"votes"`
}

// ParseRoute decodes a route payload of uncertain shape and normalizes it.
// Malformed timestamps fall back per models.Millis; only structurally
// invalid JSON is an error.
func ParseRoute(data []byte) (models.Route, error) {
	var raw rawRoute
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Route{}, fmt.Errorf("ledger: decode route: %w", err)
	}
	return Normalize(raw.toRoute()), nil
}

// ParseRoutes decodes a list payload, dropping nothing: every element must
// decode or the whole list is rejected.
func ParseRoutes(data []byte) ([]models.Route, error) {
	var raws []rawRoute
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("ledger: decode route list: %w", err)
	}
	out := make([]models.Route, len(raws))
	for i, raw := range raws {
		out[i] = Normalize(raw.toRoute())
	}
	return out, nil
}

func (raw rawRoute) toRoute() models.Route {
	history := raw.RefinementHistory
	if history == nil {
		history = raw.Refinements
	}
	refs := make([]models.Refinement, len(history))
	for i, r := range history {
		refs[i] = r.toRefinement()
	}

	return models.Route{
		ID:                 raw.ID,
		Name:               raw.Name,
		Author:             raw.Author,
		ParentRouteID:      firstString(raw.ParentRouteID, raw.ParentSnake),
		Waypoints:          raw.Waypoints,
		Path:               raw.Path,
		Color:              raw.Color,
		Score:              raw.Score,
		Votes:              raw.Votes,
		CreatedAt:          firstMillis(raw.CreatedAt, raw.CreatedSnake, raw.Created),
		LastRefinedAt:      firstMillis(raw.LastRefinedAt, raw.UpdatedAt, raw.UpdatedSnake),
		RefinementHistory:  refs,
		ActiveRefinementID: raw.ActiveRefinementID,
		SyncStatus:         raw.SyncStatus,
	}
}

func (raw rawRefinement) toRefinement() models.Refinement {
	return models.Refinement{
		ID:          raw.ID,
		Contributor: firstString(raw.Contributor, raw.Author),
		CreatedAt:   firstMillis(raw.CreatedAt, raw.CreatedSnake),
		Score:       raw.Score,
		Votes:       raw.Votes,
	}
}

// firstMillis returns the first present (non-nil) candidate, or the explicit
// fallback when none was supplied at all.
func firstMillis(candidates ...*models.Millis) models.Millis {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return models.Millis(models.EpochFallback)
}

func firstString(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
