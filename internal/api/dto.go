package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/byahe/internal/models"
)

// VoteRequest is the request body for voting on a route refinement.
type VoteRequest struct {
	RefinementID string `json:"refinementId" example:"ref-1a2b3c"`
	Delta        int    `json:"delta" example:"1" validate:"required"`
}

// Validate checks the vote payload.
func (r VoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Delta, validation.Required, validation.Min(-2), validation.Max(2)),
	)
}

// AnalyzeRequest is the request body for the route guide endpoint.
type AnalyzeRequest struct {
	RouteName string `json:"routeName" example:"PITX - Monumento" validate:"required"`
}

// Validate checks the analyze payload.
func (r AnalyzeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RouteName, validation.Required),
	)
}

// RouteDetail is the full route response type (aliased from the domain layer).
type RouteDetail = models.Route

// AnalysisResponse is the guide response type (aliased from the domain layer).
type AnalysisResponse = models.Analysis
