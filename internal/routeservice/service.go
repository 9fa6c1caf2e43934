package routeservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/byahe/internal/apperr"
	"github.com/starford/byahe/internal/geo"
	"github.com/starford/byahe/internal/guide"
	"github.com/starford/byahe/internal/ledger"
	"github.com/starford/byahe/internal/lineage"
	"github.com/starford/byahe/internal/models"
	"github.com/starford/byahe/internal/routestore"
)

// Analyzer produces a commuter guide for a named route.
type Analyzer interface {
	Analyze(ctx context.Context, routeName string) (models.Analysis, error)
}

// Service coordinates the route store and the guide backend.
type Service struct {
	store    *routestore.Store
	analyzer Analyzer
}

// NewService creates a new route service. analyzer may be nil, in which
// case Analyze always returns the unavailable placeholder guide.
func NewService(store *routestore.Store, analyzer Analyzer) *Service {
	return &Service{store: store, analyzer: analyzer}
}

// ListRoutes returns all routes ordered by score, then age.
func (s *Service) ListRoutes(_ context.Context) ([]models.Route, error) {
	return s.store.ListRoutes()
}

// GetRoute returns a single route by id.
func (s *Service) GetRoute(_ context.Context, id string) (models.Route, error) {
	return s.store.GetRoute(id)
}

// SaveRoute normalizes and upserts a route. New routes (no parent) must
// carry a name distinct from every stored route modulo case and spacing.
func (s *Service) SaveRoute(_ context.Context, route models.Route) (models.Route, error) {
	if route.ID == "" {
		return models.Route{}, fmt.Errorf("%w: route id is required", apperr.ErrInvalid)
	}
	if route.ParentRouteID == "" {
		existing, err := s.store.ListRoutes()
		if err != nil {
			return models.Route{}, err
		}
		others := existing[:0:0]
		for _, r := range existing {
			if r.ID != route.ID {
				others = append(others, r)
			}
		}
		if err := lineage.CheckName(others, route.Name); err != nil {
			return models.Route{}, err
		}
	}
	return s.store.UpsertRoute(route)
}

// Vote applies a score delta to one refinement of a route. An empty
// refinementID resolves to the route's active refinement, so older
// clients that vote per-route keep working.
func (s *Service) Vote(_ context.Context, routeID, refinementID string, delta int) (models.Route, error) {
	if delta == 0 || delta < -2 || delta > 2 {
		return models.Route{}, fmt.Errorf("%w: delta must be in [-2,2] and non-zero", apperr.ErrInvalid)
	}
	if refinementID == "" {
		route, err := s.store.GetRoute(routeID)
		if err != nil {
			return models.Route{}, err
		}
		active, ok := ledger.ResolveActive(route)
		if !ok {
			return models.Route{}, apperr.ErrNotFound
		}
		refinementID = active.ID
	}
	return s.store.Vote(routeID, refinementID, delta)
}

// Forks returns the direct forks of a route.
func (s *Service) Forks(_ context.Context, parentID string) ([]models.Route, error) {
	if _, err := s.store.GetRoute(parentID); err != nil {
		return nil, err
	}
	routes, err := s.store.ListRoutes()
	if err != nil {
		return nil, err
	}
	return lineage.FilterByParent(routes, parentID), nil
}

// Near returns routes whose drawn path passes within threshold meters
// of the given point.
func (s *Service) Near(_ context.Context, point models.Waypoint, threshold float64) ([]models.Route, error) {
	routes, err := s.store.ListRoutes()
	if err != nil {
		return nil, err
	}
	return geo.FilterNear(routes, point, threshold), nil
}

// Analyze asks the guide backend about a route. Backend failures
// degrade to the fixed unavailable payload rather than an error.
func (s *Service) Analyze(ctx context.Context, routeName string) models.Analysis {
	if s.analyzer == nil {
		return guide.Unavailable()
	}
	analysis, err := s.analyzer.Analyze(ctx, routeName)
	if err != nil {
		slog.Warn("guide backend unavailable", slog.String("route", routeName), slog.String("error", err.Error()))
		return guide.Unavailable()
	}
	return analysis
}
