// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Byahe route tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/byahe/internal/apperr"
	"github.com/starford/byahe/internal/ledger"
	"github.com/starford/byahe/internal/models"
	"github.com/starford/byahe/internal/routeservice"
)

// Server wraps the MCP server with Byahe tools.
type Server struct {
	mcp *server.MCPServer
	svc *routeservice.Service
}

// New creates a new MCP server with all Byahe tools registered.
func New(svc *routeservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Byahe",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_routes",
		mcp.WithDescription("List all jeepney routes ordered by community score."),
	), s.listRoutes)

	s.mcp.AddTool(mcp.NewTool("top_routes",
		mcp.WithDescription("List the highest-scored routes."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of routes to return (default 5)")),
	), s.topRoutes)

	s.mcp.AddTool(mcp.NewTool("get_route",
		mcp.WithDescription("Read the full JSON of a single route, including its refinement history."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Route id (e.g. route-1700000000000)")),
	), s.getRoute)

	s.mcp.AddTool(mcp.NewTool("find_routes_near",
		mcp.WithDescription("Find routes whose drawn path passes within a radius of a point."),
		mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude of the point")),
		mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude of the point")),
		mcp.WithNumber("radius", mcp.Description("Radius in meters (default 500)")),
	), s.findRoutesNear)

	s.mcp.AddTool(mcp.NewTool("save_route",
		mcp.WithDescription("Create or update a route from JSON. "+
			"Content MUST follow the canonical route format (see the get_route_contract "+
			"tool or the byahe://route-format resource)."),
		mcp.WithString("route", mcp.Required(), mcp.Description("Route JSON following the Byahe route format contract")),
	), s.saveRoute)

	s.mcp.AddTool(mcp.NewTool("vote_route",
		mcp.WithDescription("Apply a vote delta to a route's active refinement."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Route id")),
		mcp.WithNumber("delta", mcp.Required(), mcp.Description("Score delta, one of -2, -1, 1, 2")),
	), s.voteRoute)

	s.mcp.AddTool(mcp.NewTool("get_route_contract",
		mcp.WithDescription("Returns the canonical Byahe route format contract. "+
			"Call this before creating or updating routes to ensure correct structure."),
	), s.getRouteContract)

	// Resource: route format contract.
	s.mcp.AddResource(
		mcp.NewResource("byahe://route-format", "Route Format Contract",
			mcp.WithResourceDescription("Canonical route JSON shape that all saved routes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRouteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	routes, err := s.svc.ListRoutes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, r := range routes {
		lines = append(lines, fmt.Sprintf("%s\t%s\tscore=%d votes=%d", r.ID, r.Name, r.Score, r.Votes))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no routes"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) topRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(req.GetFloat("limit", 5))
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}
	routes, err := s.svc.ListRoutes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(routes) > limit {
		routes = routes[:limit]
	}
	var lines []string
	for i, r := range routes {
		lines = append(lines, fmt.Sprintf("%d. %s\t%s\tscore=%d", i+1, r.ID, r.Name, r.Score))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no routes"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	route, err := s.svc.GetRoute(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(route, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) findRoutesNear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lat, err := req.RequireFloat("lat")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lng, err := req.RequireFloat("lng")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	radius := req.GetFloat("radius", 500)
	if radius <= 0 {
		return mcp.NewToolResultError("radius must be positive"), nil
	}

	routes, err := s.svc.Near(ctx, models.Waypoint{Lat: lat, Lng: lng}, radius)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var lines []string
	for _, r := range routes {
		lines = append(lines, fmt.Sprintf("%s\t%s", r.ID, r.Name))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no routes near that point"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) saveRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("route")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	route, err := ledger.ParseRoute([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid route JSON: %v", err)), nil
	}
	saved, err := s.svc.SaveRoute(ctx, route)
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateName) {
			return mcp.NewToolResultError(fmt.Sprintf("a route named %q already exists", route.Name)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", saved.ID)), nil
}

func (s *Server) voteRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	delta, err := req.RequireFloat("delta")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	route, err := s.svc.Vote(ctx, id, "", int(delta))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		case errors.Is(err, apperr.ErrInvalid):
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s now at score=%d votes=%d", route.ID, route.Score, route.Votes)), nil
}

func (s *Server) getRouteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RouteFormatContract), nil
}

func (s *Server) readRouteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "byahe://route-format",
			MIMEType: "text/markdown",
			Text:     RouteFormatContract,
		},
	}, nil
}
