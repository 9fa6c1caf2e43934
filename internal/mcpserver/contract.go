package mcpserver

// RouteFormatContract describes the canonical route JSON shape that
// LLM consumers should follow when saving routes.
const RouteFormatContract = `# Byahe Route Format Contract

Every route saved through Byahe MUST follow this JSON structure.

## Structure

` + "```" + `json
{
  "id": "route-1700000000000",
  "name": "PITX - Monumento",
  "author": "Ana",
  "parentRouteId": "",
  "waypoints": [{"lat": 14.55, "lng": 121.05}, {"lat": 14.65, "lng": 120.98}],
  "path": [[14.55, 121.05], [14.65, 120.98]],
  "color": "#e74c3c",
  "score": 1,
  "votes": 1,
  "createdAt": 1700000000000,
  "lastRefinedAt": 1700000000000,
  "activeRefinementId": "route-1700000000000-initial",
  "refinementHistory": [
    {
      "id": "route-1700000000000-initial",
      "contributor": "Ana",
      "createdAt": 1700000000000,
      "score": 1,
      "votes": 1
    }
  ]
}
` + "```" + `

## Rules

1. **` + "`" + `id` + "`" + ` is required** and must be unique across all routes.
2. **` + "`" + `name` + "`" + ` and ` + "`" + `author` + "`" + ` are required.** Names are compared
   case-insensitively with whitespace collapsed, and a new top-level route may not
   reuse an existing name. Forks (non-empty ` + "`" + `parentRouteId` + "`" + `) are exempt.
3. **` + "`" + `waypoints` + "`" + `** need at least two entries; ` + "`" + `lat` + "`" + ` in [-90, 90],
   ` + "`" + `lng` + "`" + ` in [-180, 180].
4. **` + "`" + `path` + "`" + `** is the drawable polyline as ` + "`" + `[lat, lng]` + "`" + ` pairs. When
   omitted it is derived from the waypoints.
5. **Timestamps** are epoch milliseconds. ISO-8601 strings are accepted and converted.
6. **` + "`" + `refinementHistory` + "`" + `** may be omitted: an initial refinement is
   synthesized from the top-level fields. When present, ` + "`" + `activeRefinementId` + "`" + `
   should name one of its entries; a stale id falls back to the newest entry.
7. **Scores and votes** on the route mirror the active refinement. Do not edit them
   directly; use the ` + "`" + `vote_route` + "`" + ` tool instead.
`
