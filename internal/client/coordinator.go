// Package client implements the local-first side of Byahe: a durable route
// cache, a connectivity monitor, and the coordinator that reconciles
// optimistic local mutations with the authoritative remote store.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/byahe/internal/apperr"
	"github.com/starford/byahe/internal/guide"
	"github.com/starford/byahe/internal/ledger"
	"github.com/starford/byahe/internal/lineage"
	"github.com/starford/byahe/internal/models"
	"github.com/starford/byahe/internal/vote"
)

// routeColors is the palette new routes draw from.
var routeColors = []string{
	"#ef4444", "#3b82f6", "#10b981", "#f59e0b", "#8b5cf6", "#ec4899", "#06b6d4",
}

// Draft is an in-progress route contribution. ParentRouteID is set when the
// draft was seeded by a fork.
type Draft struct {
	Name          string
	Author        string
	ParentRouteID string
	Waypoints     []models.Waypoint
	Path          [][2]float64
	Color         string
}

// Validate checks the draft before any network call. A failing draft is
// rejected with a specific message and stays in the caller's hands.
func (d Draft) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Author, validation.Required),
		validation.Field(&d.Waypoints, validation.Required, validation.Length(2, 0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	for _, w := range d.Waypoints {
		if w.Lat < -90 || w.Lat > 90 || w.Lng < -180 || w.Lng > 180 {
			return fmt.Errorf("%w: waypoint out of range: %.4f,%.4f", apperr.ErrInvalid, w.Lat, w.Lng)
		}
	}
	return nil
}

// Coordinator bridges optimistic local mutation with the unreliable remote
// store. All mutations land in the cache before any network I/O, so a
// crash mid-request never loses a contribution.
type Coordinator struct {
	remote   Remote
	cache    *Cache
	votes    *vote.Ledger
	logger   *slog.Logger
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSave time.Time
}

// NewCoordinator creates a coordinator. cooldown is the courtesy rate
// limit after each successful save; zero disables it.
func NewCoordinator(remote Remote, cache *Cache, logger *slog.Logger, cooldown time.Duration) *Coordinator {
	return &Coordinator{
		remote:   remote,
		cache:    cache,
		votes:    vote.NewLedger(cache),
		logger:   logger,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// LoadRoutes returns the authoritative route list when the store is
// reachable, refreshing the cache; otherwise it serves the cached copy.
func (c *Coordinator) LoadRoutes(ctx context.Context) []models.Route {
	routes, err := c.remote.ListRoutes(ctx)
	if err != nil {
		c.logger.Warn("load routes: remote unavailable, serving cache", slog.String("error", err.Error()))
		return c.cache.LoadRoutes()
	}
	for i := range routes {
		routes[i].SyncStatus = models.SyncSynced
	}
	if err := c.cache.SaveRoutes(routes); err != nil {
		c.logger.Warn("load routes: cache write failed", slog.String("error", err.Error()))
	}
	return routes
}

// Publish validates and saves a brand-new route (or a fork, when the draft
// carries a ParentRouteID). New non-fork names are checked against every
// known route, case-insensitively with whitespace collapsed.
func (c *Coordinator) Publish(ctx context.Context, draft Draft) (models.Route, error) {
	if err := draft.Validate(); err != nil {
		return models.Route{}, err
	}
	if draft.ParentRouteID == "" {
		if err := lineage.CheckName(c.cache.LoadRoutes(), draft.Name); err != nil {
			return models.Route{}, err
		}
	}
	if err := c.checkCooldown(); err != nil {
		return models.Route{}, err
	}

	now := models.Millis(c.now().UTC().Truncate(time.Millisecond))
	initial := ledger.NewRefinement(draft.Author, now)
	route := ledger.Normalize(models.Route{
		ID:                 "route-" + uuid.NewString(),
		Name:               draft.Name,
		Author:             draft.Author,
		ParentRouteID:      draft.ParentRouteID,
		Waypoints:          draft.Waypoints,
		Path:               draft.Path,
		Color:              pickColor(draft.Color),
		CreatedAt:          now,
		LastRefinedAt:      now,
		RefinementHistory:  []models.Refinement{initial},
		ActiveRefinementID: initial.ID,
	})
	return c.saveRoute(ctx, route)
}

// Refine appends a new refinement to an existing route, replacing its
// waypoints and path. The route's author is preserved; the contributor is
// recorded on the refinement. Names are not re-checked.
func (c *Coordinator) Refine(ctx context.Context, routeID, contributor string, waypoints []models.Waypoint, path [][2]float64) (models.Route, error) {
	if len(waypoints) < 2 {
		return models.Route{}, fmt.Errorf("%w: a route needs at least 2 waypoints", apperr.ErrInvalid)
	}
	if err := c.checkCooldown(); err != nil {
		return models.Route{}, err
	}
	route, err := c.cachedRoute(routeID)
	if err != nil {
		return models.Route{}, err
	}

	now := models.Millis(c.now().UTC().Truncate(time.Millisecond))
	refined := ledger.Append(route, ledger.NewRefinement(contributor, now))
	refined.Waypoints = append([]models.Waypoint(nil), waypoints...)
	refined.Path = append([][2]float64(nil), path...)
	return c.saveRoute(ctx, refined)
}

// Fork produces a draft seeded from an existing route, linked via
// ParentRouteID with deep-copied waypoints.
func (c *Coordinator) Fork(routeID string) (lineage.DraftSeed, error) {
	route, err := c.cachedRoute(routeID)
	if err != nil {
		return lineage.DraftSeed{}, err
	}
	return lineage.StartFork(route), nil
}

// Vote applies a like/dislike gesture to the route's active refinement.
// The toggle ledger turns the gesture into a signed delta; the remote
// store's response is authoritative. When the store is unreachable the
// delta is applied to the cached copy directly — a documented best-effort
// approximation, overwritten by the next successful sync.
func (c *Coordinator) Vote(ctx context.Context, routeID string, gesture vote.Value) (models.Route, error) {
	route, err := c.cachedRoute(routeID)
	if err != nil {
		return models.Route{}, err
	}
	active, ok := ledger.ResolveActive(route)
	if !ok {
		return models.Route{}, fmt.Errorf("%w: route %s has no refinements", apperr.ErrNotFound, routeID)
	}

	prior := c.votes.Get(routeID, active.ID)
	delta, err := c.votes.Apply(routeID, active.ID, gesture)
	if err != nil {
		return models.Route{}, err
	}

	updated, remoteErr := c.remote.Vote(ctx, routeID, active.ID, delta)
	if remoteErr == nil {
		updated.SyncStatus = models.SyncSynced
		if err := c.cache.UpsertRoute(updated); err != nil {
			c.logger.Warn("vote: cache write failed", slog.String("error", err.Error()))
		}
		return updated, nil
	}

	// Same policy as saveRoute: only a transport failure earns the local
	// fallback. A definitive rejection undoes the toggle and surfaces.
	if !errors.Is(remoteErr, apperr.ErrUnreachable) {
		if revertErr := c.votes.Revert(routeID, active.ID, prior); revertErr != nil {
			c.logger.Warn("vote: revert failed", slog.String("error", revertErr.Error()))
		}
		return models.Route{}, remoteErr
	}

	c.logger.Warn("vote: remote unavailable, applying locally",
		slog.String("route", routeID), slog.String("error", remoteErr.Error()))

	local, err := vote.ApplyLocal(route, active.ID, delta)
	if err != nil {
		if revertErr := c.votes.Revert(routeID, active.ID, prior); revertErr != nil {
			c.logger.Warn("vote: revert failed", slog.String("error", revertErr.Error()))
		}
		return models.Route{}, err
	}
	local = ledger.Mirror(local)
	if err := c.cache.UpsertRoute(local); err != nil {
		return models.Route{}, fmt.Errorf("client: persist local vote: %w", err)
	}
	return local, nil
}

// VoteState returns the client's current asserted vote on the route's
// active refinement, for UI highlighting.
func (c *Coordinator) VoteState(routeID string) vote.Value {
	route, err := c.cachedRoute(routeID)
	if err != nil {
		return vote.Neutral
	}
	active, ok := ledger.ResolveActive(route)
	if !ok {
		return vote.Neutral
	}
	return c.votes.Get(routeID, active.ID)
}

// Analyze fetches the commuter guide for a route name, substituting the
// fixed unavailable payload on any failure.
func (c *Coordinator) Analyze(ctx context.Context, routeName string) models.Analysis {
	analysis, err := c.remote.Analyze(ctx, routeName)
	if err != nil {
		c.logger.Warn("analyze: unavailable", slog.String("route", routeName), slog.String("error", err.Error()))
		return guide.Unavailable()
	}
	return analysis
}

// ReplayPending pushes every cached route still tagged pending to the
// store. Entries are replayed independently: one failure never blocks the
// rest. Successful entries flip to synced with the store's copy.
func (c *Coordinator) ReplayPending(ctx context.Context) {
	for _, route := range c.cache.LoadRoutes() {
		if route.SyncStatus != models.SyncPending {
			continue
		}
		stored, err := c.remote.SaveRoute(ctx, route)
		if err != nil {
			if !errors.Is(err, apperr.ErrUnreachable) {
				route.SyncStatus = models.SyncError
				if cacheErr := c.cache.UpsertRoute(route); cacheErr != nil {
					c.logger.Warn("replay: cache write failed", slog.String("route", route.ID), slog.String("error", cacheErr.Error()))
				}
				c.logger.Warn("replay: rejected by store", slog.String("route", route.ID), slog.String("error", err.Error()))
				continue
			}
			c.logger.Warn("replay: still unreachable", slog.String("route", route.ID), slog.String("error", err.Error()))
			continue
		}
		stored.SyncStatus = models.SyncSynced
		if err := c.cache.UpsertRoute(stored); err != nil {
			c.logger.Warn("replay: cache write failed", slog.String("route", route.ID), slog.String("error", err.Error()))
			continue
		}
		c.logger.Info("replay: synced", slog.String("route", route.ID))
	}
}

// RunSync consumes monitor transitions until ctx is done, replaying
// pending writes each time connectivity comes back.
func (c *Coordinator) RunSync(ctx context.Context, monitor *Monitor) {
	ch := monitor.Subscribe()
	defer monitor.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-ch:
			if !ok {
				return
			}
			if state.Connected {
				c.logger.Info("connectivity restored, replaying pending routes")
				c.ReplayPending(ctx)
			}
		}
	}
}

// saveRoute is the two-phase write: cache the pending copy synchronously,
// then attempt the remote upsert. A remote failure still reads as a local
// success — the pending copy stays authoritative until replay.
func (c *Coordinator) saveRoute(ctx context.Context, route models.Route) (models.Route, error) {
	route.SyncStatus = models.SyncPending
	if err := c.cache.UpsertRoute(route); err != nil {
		return models.Route{}, fmt.Errorf("client: cache route: %w", err)
	}
	c.markSaved()

	stored, err := c.remote.SaveRoute(ctx, route)
	if err != nil {
		// A rejected write (duplicate name, bad payload) is final; only a
		// transport failure leaves the pending copy to replay later.
		if !errors.Is(err, apperr.ErrUnreachable) {
			route.SyncStatus = models.SyncError
			if cacheErr := c.cache.UpsertRoute(route); cacheErr != nil {
				c.logger.Warn("save: cache write failed", slog.String("error", cacheErr.Error()))
			}
			return models.Route{}, err
		}
		c.logger.Warn("save: remote unreachable, keeping pending copy",
			slog.String("route", route.ID), slog.String("error", err.Error()))
		return route, nil
	}
	stored.SyncStatus = models.SyncSynced
	if err := c.cache.UpsertRoute(stored); err != nil {
		c.logger.Warn("save: cache write failed", slog.String("error", err.Error()))
	}
	return stored, nil
}

func (c *Coordinator) cachedRoute(routeID string) (models.Route, error) {
	for _, r := range c.cache.LoadRoutes() {
		if r.ID == routeID {
			return r, nil
		}
	}
	return models.Route{}, fmt.Errorf("%w: route %s", apperr.ErrNotFound, routeID)
}

func (c *Coordinator) checkCooldown() error {
	if c.cooldown <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastSave.IsZero() {
		if remaining := c.cooldown - c.now().Sub(c.lastSave); remaining > 0 {
			return fmt.Errorf("%w: wait %s", apperr.ErrCooldown, remaining.Round(time.Second))
		}
	}
	return nil
}

func (c *Coordinator) markSaved() {
	c.mu.Lock()
	c.lastSave = c.now()
	c.mu.Unlock()
}

func pickColor(preferred string) string {
	if preferred != "" {
		return preferred
	}
	return routeColors[rand.Intn(len(routeColors))]
}
