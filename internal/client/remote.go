package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starford/byahe/internal/apperr"
	"github.com/starford/byahe/internal/ledger"
	"github.com/starford/byahe/internal/models"
)

// Remote is the authoritative store as seen by the coordinator. The HTTP
// implementation below talks to the Byahe API; tests substitute fakes.
type Remote interface {
	ListRoutes(ctx context.Context) ([]models.Route, error)
	SaveRoute(ctx context.Context, route models.Route) (models.Route, error)
	Vote(ctx context.Context, routeID, refinementID string, delta int) (models.Route, error)
	Analyze(ctx context.Context, routeName string) (models.Analysis, error)
	Ping(ctx context.Context) error
}

// StoreClient is the HTTP Remote implementation.
type StoreClient struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ Remote = (*StoreClient)(nil)

// NewStoreClient creates a client for the route store API at baseURL
// (e.g. "http://localhost:8080"). token, when non-empty, is sent as a
// Bearer credential.
func NewStoreClient(baseURL, token string) *StoreClient {
	return &StoreClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ListRoutes fetches and normalizes the full route list.
func (s *StoreClient) ListRoutes(ctx context.Context) ([]models.Route, error) {
	data, err := s.do(ctx, http.MethodGet, "/api/routes", nil)
	if err != nil {
		return nil, err
	}
	return ledger.ParseRoutes(data)
}

// SaveRoute upserts a route and returns the stored, normalized copy.
func (s *StoreClient) SaveRoute(ctx context.Context, route models.Route) (models.Route, error) {
	// The sync tag is client-local state; never ship it.
	route.SyncStatus = ""
	body, err := json.Marshal(route)
	if err != nil {
		return models.Route{}, fmt.Errorf("client: encode route: %w", err)
	}
	data, err := s.do(ctx, http.MethodPost, "/api/routes", body)
	if err != nil {
		return models.Route{}, err
	}
	return ledger.ParseRoute(data)
}

// Vote sends a signed delta for one refinement and returns the updated
// route with the authority's definitive tally.
func (s *StoreClient) Vote(ctx context.Context, routeID, refinementID string, delta int) (models.Route, error) {
	body, err := json.Marshal(map[string]any{"refinementId": refinementID, "delta": delta})
	if err != nil {
		return models.Route{}, fmt.Errorf("client: encode vote: %w", err)
	}
	data, err := s.do(ctx, http.MethodPatch, "/api/routes/"+routeID+"/vote", body)
	if err != nil {
		return models.Route{}, err
	}
	return ledger.ParseRoute(data)
}

// Analyze requests the commuter guide for a route name.
func (s *StoreClient) Analyze(ctx context.Context, routeName string) (models.Analysis, error) {
	body, err := json.Marshal(map[string]string{"routeName": routeName})
	if err != nil {
		return models.Analysis{}, fmt.Errorf("client: encode analyze: %w", err)
	}
	data, err := s.do(ctx, http.MethodPost, "/api/analyze", body)
	if err != nil {
		return models.Analysis{}, err
	}
	var out models.Analysis
	if err := json.Unmarshal(data, &out); err != nil {
		return models.Analysis{}, fmt.Errorf("client: decode analysis: %w", err)
	}
	return out, nil
}

// Ping probes the store's liveness route.
func (s *StoreClient) Ping(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodGet, "/health/live", nil)
	return err
}

func (s *StoreClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperr.ErrUnreachable, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", apperr.ErrNotFound, method, path)
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("%w: %s %s", apperr.ErrDuplicateName, method, path)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s %s: %s", apperr.ErrInvalid, method, path, bytes.TrimSpace(data))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s %s: status %d", apperr.ErrUnreachable, method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("client: %s %s: status %d", method, path, resp.StatusCode)
	}
	return data, nil
}
