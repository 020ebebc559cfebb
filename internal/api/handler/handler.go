// Package handler contains the HTTP handlers for the Quorum API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/quorumlab/quorum/internal/api/response"
	"github.com/quorumlab/quorum/internal/deliberation"
	"github.com/quorumlab/quorum/internal/store"
	"github.com/quorumlab/quorum/pkg/models"
)

// DecisionService is the interface the handlers depend on.
type DecisionService interface {
	CreateDecision(ctx context.Context, input deliberation.CreateDecisionInput) (*models.Decision, error)
	GetDecision(ctx context.Context, id uuid.UUID) (*models.Decision, error)
	ListDecisions(ctx context.Context) ([]*models.Decision, error)
	UpdateDecision(ctx context.Context, id uuid.UUID, update store.DecisionUpdate) (*models.Decision, error)
	DeleteDecision(ctx context.Context, id uuid.UUID) (bool, error)
	SubmitResponse(ctx context.Context, input deliberation.SubmitResponseInput) (*models.Response, error)
	ListResponses(ctx context.Context, decisionID uuid.UUID) ([]models.Response, error)
	CalculateConsensus(ctx context.Context, decisionID uuid.UUID) (*models.Consensus, error)
	GetConsensus(ctx context.Context, decisionID uuid.UUID) (*models.Consensus, error)
}

// decisionID extracts and parses the {decisionID} URL parameter. On failure
// it writes a 400 and reports false.
func decisionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "decisionID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "decisionID must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service-layer errors onto the API error taxonomy.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *deliberation.ValidationError
	var preconditionErr *deliberation.PreconditionError

	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Decision not found", nil)
	case errors.As(err, &validationErr):
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", validationErr.Message, nil)
	case errors.As(err, &preconditionErr):
		response.Error(w, http.StatusConflict, "INCOMPLETE_RESPONSES",
			"Consensus requires a response from every advisor", map[string]any{
				"responded": preconditionErr.Responded,
				"missing":   preconditionErr.Missing,
			})
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
