// Package snap turns an ordered waypoint list into a road-following path
// via an OSRM-compatible routing service.
package snap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/starford/byahe/internal/models"
)

// Client queries the routing service for road-snapped paths.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a snap client against an OSRM route endpoint, e.g.
// "https://router.project-osrm.org/route/v1/driving".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// osrmResponse is the subset of the OSRM reply we read. Geometry
// coordinates arrive as [lng, lat] and are flipped to [lat, lng].
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// SnappedPath returns a road-following path through the waypoints. On any
// failure — unreachable service, non-Ok code, no route found — it falls
// back to the straight-line path, so the caller always gets a drawable
// result.
func (c *Client) SnappedPath(ctx context.Context, waypoints []models.Waypoint) [][2]float64 {
	straight := StraightPath(waypoints)
	if len(waypoints) < 2 || c.baseURL == "" {
		return straight
	}

	coords := make([]string, len(waypoints))
	for i, w := range waypoints {
		coords[i] = fmt.Sprintf("%f,%f", w.Lng, w.Lat)
	}
	url := fmt.Sprintf("%s/%s?overview=full&geometries=geojson", c.baseURL, strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return straight
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return straight
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return straight
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return straight
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return straight
	}

	raw := body.Routes[0].Geometry.Coordinates
	out := make([][2]float64, 0, len(raw))
	for _, c := range raw {
		if len(c) < 2 {
			continue
		}
		out = append(out, [2]float64{c[1], c[0]})
	}
	if len(out) == 0 {
		return straight
	}
	return out
}

// StraightPath is the fallback: the waypoints themselves as a polyline.
func StraightPath(waypoints []models.Waypoint) [][2]float64 {
	out := make([][2]float64, len(waypoints))
	for i, w := range waypoints {
		out[i] = [2]float64{w.Lat, w.Lng}
	}
	return out
}
