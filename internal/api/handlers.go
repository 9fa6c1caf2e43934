package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/byahe/internal/apperr"
	"github.com/starford/byahe/internal/ledger"
	"github.com/starford/byahe/internal/models"
	"github.com/starford/byahe/internal/routeservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *routeservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *routeservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListRoutes handles GET /api/routes.
//
//	@Summary		List all routes ordered by score
//	@Tags			routes
//	@Produce		json
//	@Success		200	{array}		RouteDetail
//	@Security		BearerAuth
//	@Router			/routes [get]
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.svc.ListRoutes(r.Context())
	if err != nil {
		slog.Error("list routes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if routes == nil {
		routes = []models.Route{}
	}
	writeJSON(w, http.StatusOK, routes)
}

// GetRoute handles GET /api/routes/{id}.
//
//	@Summary		Get a single route by id
//	@Tags			routes
//	@Produce		json
//	@Param			id	path		string	true	"Route id"
//	@Success		200	{object}	RouteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/routes/{id} [get]
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	route, err := h.svc.GetRoute(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get route failed", id)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// SaveRoute handles POST /api/routes. The body is a route in any of the
// accepted loose shapes; it is normalized before storage and the stored
// canonical form is returned.
//
//	@Summary		Create or update a route
//	@Tags			routes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RouteDetail	true	"Route to save"
//	@Success		201		{object}	RouteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/routes [post]
func (h *Handler) SaveRoute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unreadable body"))
		return
	}
	route, err := ledger.ParseRoute(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	saved, err := h.svc.SaveRoute(r.Context(), route)
	if err != nil {
		h.writeError(w, err, "save route failed", route.ID)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// Vote handles PATCH /api/routes/{id}/vote.
//
//	@Summary		Apply a vote delta to a route refinement
//	@Tags			routes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Route id"
//	@Param			body	body		VoteRequest	true	"Vote to apply"
//	@Success		200		{object}	RouteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/routes/{id}/vote [patch]
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	route, err := h.svc.Vote(r.Context(), id, req.RefinementID, req.Delta)
	if err != nil {
		h.writeError(w, err, "vote failed", id)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// Forks handles GET /api/routes/{id}/forks.
//
//	@Summary		List the direct forks of a route
//	@Tags			routes
//	@Produce		json
//	@Param			id	path		string	true	"Route id"
//	@Success		200	{array}		RouteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/routes/{id}/forks [get]
func (h *Handler) Forks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	forks, err := h.svc.Forks(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "list forks failed", id)
		return
	}
	if forks == nil {
		forks = []models.Route{}
	}
	writeJSON(w, http.StatusOK, forks)
}

// Near handles GET /api/routes/near?lat=&lng=&radius=.
//
//	@Summary		List routes passing near a point
//	@Tags			routes
//	@Produce		json
//	@Param			lat		query		number	true	"Latitude"
//	@Param			lng		query		number	true	"Longitude"
//	@Param			radius	query		number	false	"Radius in meters (default 500)"
//	@Success		200		{array}		RouteDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/routes/near [get]
func (h *Handler) Near(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("lat and lng are required"))
		return
	}
	radius := 500.0
	if raw := q.Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("radius must be a positive number"))
			return
		}
		radius = parsed
	}
	routes, err := h.svc.Near(r.Context(), models.Waypoint{Lat: lat, Lng: lng}, radius)
	if err != nil {
		slog.Error("near query failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if routes == nil {
		routes = []models.Route{}
	}
	writeJSON(w, http.StatusOK, routes)
}

// Analyze handles POST /api/analyze. The guide backend being down is not
// an error: the fixed placeholder payload is returned with 200.
//
//	@Summary		Generate a commuter guide for a route
//	@Tags			guide
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AnalyzeRequest	true	"Route to analyze"
//	@Success		200		{object}	AnalysisResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Analyze(r.Context(), req.RouteName))
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg, id string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrDuplicateName):
		writeJSON(w, http.StatusConflict, errorBody("a route with that name already exists"))
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(msg, slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
