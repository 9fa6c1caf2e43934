package routestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/byahe/internal/apperr"
	"github.com/starford/byahe/internal/ledger"
	"github.com/starford/byahe/internal/models"
)

func millisFromDB(n int64) models.Millis {
	return models.Millis(time.UnixMilli(n).UTC())
}

// ListRoutes returns every route with its full refinement history, ordered
// by score descending.
func (s *Store) ListRoutes() ([]models.Route, error) {
	rows, err := s.conn.Query(`
		SELECT id, name, author, parent_route_id, waypoints, path, color,
		       score, votes, created_at, last_refined_at, active_refinement_id
		FROM routes
		ORDER BY score DESC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("routestore: list: %w", err)
	}
	defer rows.Close()

	var out []models.Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("routestore: list: %w", err)
	}
	for i := range out {
		history, err := s.history(s.conn, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].RefinementHistory = history
		out[i] = ledger.Normalize(out[i])
	}
	return out, nil
}

// GetRoute returns one route by id.
func (s *Store) GetRoute(id string) (models.Route, error) {
	row := s.conn.QueryRow(`
		SELECT id, name, author, parent_route_id, waypoints, path, color,
		       score, votes, created_at, last_refined_at, active_refinement_id
		FROM routes WHERE id = ?`, id)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Route{}, fmt.Errorf("%w: route %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return models.Route{}, err
	}
	history, err := s.history(s.conn, id)
	if err != nil {
		return models.Route{}, err
	}
	r.RefinementHistory = history
	return ledger.Normalize(r), nil
}

// UpsertRoute stores a route and its refinement history, replacing any
// previous history, inside one transaction. The upsert is idempotent by id.
// Returns the stored, normalized route.
func (s *Store) UpsertRoute(route models.Route) (models.Route, error) {
	r := ledger.Normalize(route)

	tx, err := s.conn.Begin()
	if err != nil {
		return models.Route{}, fmt.Errorf("routestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	waypointsJSON, _ := json.Marshal(r.Waypoints)
	pathJSON, _ := json.Marshal(r.Path)

	_, err = tx.Exec(`
		INSERT INTO routes (id, name, author, parent_route_id, waypoints, path, color,
		                    score, votes, created_at, last_refined_at, active_refinement_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name                 = excluded.name,
			author               = excluded.author,
			parent_route_id      = excluded.parent_route_id,
			waypoints            = excluded.waypoints,
			path                 = excluded.path,
			color                = excluded.color,
			score                = excluded.score,
			votes                = excluded.votes,
			last_refined_at      = excluded.last_refined_at,
			active_refinement_id = excluded.active_refinement_id
	`, r.ID, r.Name, r.Author, r.ParentRouteID, string(waypointsJSON), string(pathJSON),
		r.Color, r.Score, r.Votes, r.CreatedAt.UnixMilli(), r.LastRefinedAt.UnixMilli(),
		r.ActiveRefinementID)
	if err != nil {
		return models.Route{}, fmt.Errorf("routestore: upsert route: %w", err)
	}

	// Replace history: delete old then bulk insert in history order so that
	// rowid preserves insertion order for equal timestamps.
	if _, err := tx.Exec(`DELETE FROM refinements WHERE route_id = ?`, r.ID); err != nil {
		return models.Route{}, fmt.Errorf("routestore: clear history: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO refinements (route_id, id, contributor, created_at, score, votes)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return models.Route{}, fmt.Errorf("routestore: prepare refinement insert: %w", err)
	}
	defer stmt.Close()
	for _, ref := range r.RefinementHistory {
		if _, err := stmt.Exec(r.ID, ref.ID, ref.Contributor, ref.CreatedAt.UnixMilli(), ref.Score, ref.Votes); err != nil {
			return models.Route{}, fmt.Errorf("routestore: insert refinement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Route{}, fmt.Errorf("routestore: commit: %w", err)
	}
	return s.GetRoute(r.ID)
}

// Vote applies a signed delta to one refinement's tally and re-derives the
// route's denormalized score/votes from its active refinement. Returns the
// updated route.
func (s *Store) Vote(routeID, refinementID string, delta int) (models.Route, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return models.Route{}, fmt.Errorf("routestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`
		UPDATE refinements
		SET score = score + ?, votes = MAX(votes + 1, 0)
		WHERE route_id = ? AND id = ?`, delta, routeID, refinementID)
	if err != nil {
		return models.Route{}, fmt.Errorf("routestore: vote update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Route{}, fmt.Errorf("%w: refinement %s on route %s", apperr.ErrNotFound, refinementID, routeID)
	}

	// Mirror the active refinement's tally back onto the route row.
	_, err = tx.Exec(`
		UPDATE routes
		SET score = (SELECT score FROM refinements
		             WHERE route_id = routes.id AND id = routes.active_refinement_id),
		    votes = (SELECT votes FROM refinements
		             WHERE route_id = routes.id AND id = routes.active_refinement_id)
		WHERE id = ? AND active_refinement_id IN
			(SELECT id FROM refinements WHERE route_id = routes.id)`, routeID)
	if err != nil {
		return models.Route{}, fmt.Errorf("routestore: mirror update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Route{}, fmt.Errorf("routestore: commit: %w", err)
	}
	return s.GetRoute(routeID)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRoute(sc scanner) (models.Route, error) {
	var r models.Route
	var waypointsJSON, pathJSON string
	var createdAt, lastRefinedAt int64
	err := sc.Scan(&r.ID, &r.Name, &r.Author, &r.ParentRouteID, &waypointsJSON, &pathJSON,
		&r.Color, &r.Score, &r.Votes, &createdAt, &lastRefinedAt, &r.ActiveRefinementID)
	if err != nil {
		return models.Route{}, err
	}
	if err := json.Unmarshal([]byte(waypointsJSON), &r.Waypoints); err != nil {
		r.Waypoints = nil
	}
	if err := json.Unmarshal([]byte(pathJSON), &r.Path); err != nil {
		r.Path = nil
	}
	r.CreatedAt = millisFromDB(createdAt)
	r.LastRefinedAt = millisFromDB(lastRefinedAt)
	return r, nil
}

// history loads a route's refinements ordered by timestamp, insertion order
// breaking ties.
func (s *Store) history(q interface {
	Query(string, ...any) (*sql.Rows, error)
}, routeID string) ([]models.Refinement, error) {
	rows, err := q.Query(`
		SELECT id, contributor, created_at, score, votes
		FROM refinements
		WHERE route_id = ?
		ORDER BY created_at ASC, rowid ASC`, routeID)
	if err != nil {
		return nil, fmt.Errorf("routestore: history: %w", err)
	}
	defer rows.Close()

	var out []models.Refinement
	for rows.Next() {
		var ref models.Refinement
		var createdAt int64
		if err := rows.Scan(&ref.ID, &ref.Contributor, &createdAt, &ref.Score, &ref.Votes); err != nil {
			return nil, err
		}
		ref.CreatedAt = millisFromDB(createdAt)
		out = append(out, ref)
	}
	return out, rows.Err()
}
