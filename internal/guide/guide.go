// Package guide calls the upstream commuter-guide generation service.
//
// The service is an external collaborator: given a route name it returns a
// guide string plus landmark and tip lists. Failures never propagate past
// this package boundary as anything other than an error value; callers
// substitute Unavailable().
package guide

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/starford/byahe/internal/models"
)

const unavailableGuide = "Commuter guide unavailable right now. Try again once you're back online."

// Unavailable is the fixed payload substituted when generation fails.
// Arrays are empty, never nil, so clients can render without nil checks.
func Unavailable() models.Analysis {
	return models.Analysis{
		Guide:     unavailableGuide,
		Landmarks: []string{},
		Tips:      []string{},
	}
}

// Client talks to the guide-generation endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a guide client. An empty baseURL yields a client whose
// Analyze always fails, which callers degrade gracefully from.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
}

// Analyze asks the service for a commuter guide for the named route.
func (c *Client) Analyze(ctx context.Context, routeName string) (models.Analysis, error) {
	if c.baseURL == "" {
		return models.Analysis{}, fmt.Errorf("guide: no endpoint configured")
	}

	body, err := json.Marshal(map[string]string{"routeName": routeName})
	if err != nil {
		return models.Analysis{}, fmt.Errorf("guide: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return models.Analysis{}, fmt.Errorf("guide: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("guide: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Analysis{}, fmt.Errorf("guide: status %d", resp.StatusCode)
	}

	var out models.Analysis
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Analysis{}, fmt.Errorf("guide: decode response: %w", err)
	}
	if out.Landmarks == nil {
		out.Landmarks = []string{}
	}
	if out.Tips == nil {
		out.Tips = []string{}
	}
	return out, nil
}
