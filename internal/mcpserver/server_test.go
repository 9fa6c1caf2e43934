package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/byahe/internal/routeservice"
	"github.com/starford/byahe/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	return New(routeservice.NewService(testutil.TestStore(t), nil))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_routes":
		result, err = srv.listRoutes(ctx, req)
	case "top_routes":
		result, err = srv.topRoutes(ctx, req)
	case "get_route":
		result, err = srv.getRoute(ctx, req)
	case "find_routes_near":
		result, err = srv.findRoutesNear(ctx, req)
	case "save_route":
		result, err = srv.saveRoute(ctx, req)
	case "vote_route":
		result, err = srv.voteRoute(ctx, req)
	case "get_route_contract":
		result, err = srv.getRouteContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

const sampleRouteJSON = `{
	"id": "route-1",
	"name": "PITX - Monumento",
	"author": "Ana",
	"waypoints": [{"lat": 14.55, "lng": 121.05}, {"lat": 14.65, "lng": 120.98}],
	"createdAt": 1700000000000
}`

func TestSaveAndGetRoute(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "save_route", map[string]interface{}{"route": sampleRouteJSON})
	if text := resultText(r); text != "saved: route-1" {
		t.Errorf("save result = %q", text)
	}

	r = callTool(t, srv, "get_route", map[string]interface{}{"id": "route-1"})
	if r.IsError {
		t.Fatalf("get errored: %s", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, `"PITX - Monumento"`) {
		t.Errorf("get result = %q", text)
	}
}

func TestGetRouteMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_route", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing route")
	}
}

func TestSaveDuplicateName(t *testing.T) {
	srv := testServer(t)

	_ = callTool(t, srv, "save_route", map[string]interface{}{"route": sampleRouteJSON})
	dup := strings.Replace(sampleRouteJSON, `"route-1"`, `"route-2"`, 1)
	r := callTool(t, srv, "save_route", map[string]interface{}{"route": dup})
	if !r.IsError {
		t.Error("expected duplicate name error")
	}
}

func TestVoteRoute(t *testing.T) {
	srv := testServer(t)

	_ = callTool(t, srv, "save_route", map[string]interface{}{"route": sampleRouteJSON})
	r := callTool(t, srv, "vote_route", map[string]interface{}{"id": "route-1", "delta": float64(1)})
	if r.IsError {
		t.Fatalf("vote errored: %s", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, "score=2") {
		t.Errorf("vote result = %q", text)
	}
}

func TestFindRoutesNear(t *testing.T) {
	srv := testServer(t)

	_ = callTool(t, srv, "save_route", map[string]interface{}{"route": sampleRouteJSON})

	r := callTool(t, srv, "find_routes_near", map[string]interface{}{
		"lat": 14.5501, "lng": 121.0501,
	})
	if text := resultText(r); !strings.Contains(text, "route-1") {
		t.Errorf("near result = %q", text)
	}

	r = callTool(t, srv, "find_routes_near", map[string]interface{}{
		"lat": 3.0, "lng": 100.0,
	})
	if text := resultText(r); text != "no routes near that point" {
		t.Errorf("far result = %q", text)
	}
}

func TestTopRoutesLimits(t *testing.T) {
	srv := testServer(t)

	for _, id := range []string{"route-a", "route-b", "route-c"} {
		payload := strings.Replace(sampleRouteJSON, `"route-1"`, `"`+id+`"`, 1)
		payload = strings.Replace(payload, "PITX - Monumento", "Route "+id, 1)
		r := callTool(t, srv, "save_route", map[string]interface{}{"route": payload})
		if r.IsError {
			t.Fatalf("save %s: %s", id, resultText(r))
		}
	}

	r := callTool(t, srv, "top_routes", map[string]interface{}{"limit": float64(2)})
	text := resultText(r)
	if got := strings.Count(text, "\n") + 1; got != 2 {
		t.Errorf("top_routes returned %d lines: %q", got, text)
	}
}

func TestRouteContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_route_contract", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, "Route Format Contract") {
		t.Errorf("contract = %q", text)
	}
}
