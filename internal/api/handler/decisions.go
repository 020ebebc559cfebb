package handler

import (
	"encoding/json"
	"net/http"

	"github.com/quorumlab/quorum/internal/api/response"
	"github.com/quorumlab/quorum/internal/deliberation"
	"github.com/quorumlab/quorum/internal/store"
	"github.com/quorumlab/quorum/pkg/models"
)

// NewCreateDecisionHandler returns an http.HandlerFunc for POST /api/v1/decisions.
func NewCreateDecisionHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title       string  `json:"title"`
			Description string  `json:"description"`
			Context     *string `json:"context"`
			Category    string  `json:"category"`
			Priority    string  `json:"priority"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		priority := req.Priority
		if priority == "" {
			priority = string(models.PriorityMedium)
		}

		d, err := svc.CreateDecision(r.Context(), deliberation.CreateDecisionInput{
			Title:       req.Title,
			Description: req.Description,
			Context:     req.Context,
			Category:    models.Category(req.Category),
			Priority:    models.Priority(priority),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.Created(w, d)
	}
}

// NewListDecisionsHandler returns an http.HandlerFunc for GET /api/v1/decisions.
func NewListDecisionsHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decisions, err := svc.ListDecisions(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if decisions == nil {
			decisions = []*models.Decision{}
		}
		response.JSON(w, decisions)
	}
}

// NewGetDecisionHandler returns an http.HandlerFunc for GET /api/v1/decisions/{decisionID}.
func NewGetDecisionHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decisionID(w, r)
		if !ok {
			return
		}

		d, err := svc.GetDecision(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, d)
	}
}

// NewUpdateDecisionHandler returns an http.HandlerFunc for PATCH /api/v1/decisions/{decisionID}.
// Only the supplied fields are applied; responses and consensus are untouchable here.
func NewUpdateDecisionHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decisionID(w, r)
		if !ok {
			return
		}

		var req struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Context     *string `json:"context"`
			Category    *string `json:"category"`
			Priority    *string `json:"priority"`
			Status      *string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		update := store.DecisionUpdate{
			Title:       req.Title,
			Description: req.Description,
			Context:     req.Context,
		}
		if req.Category != nil {
			c := models.Category(*req.Category)
			update.Category = &c
		}
		if req.Priority != nil {
			p := models.Priority(*req.Priority)
			update.Priority = &p
		}
		if req.Status != nil {
			s := models.Status(*req.Status)
			update.Status = &s
		}

		d, err := svc.UpdateDecision(r.Context(), id, update)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, d)
	}
}

// NewDeleteDecisionHandler returns an http.HandlerFunc for DELETE /api/v1/decisions/{decisionID}.
func NewDeleteDecisionHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decisionID(w, r)
		if !ok {
			return
		}

		existed, err := svc.DeleteDecision(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !existed {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Decision not found", nil)
			return
		}
		response.NoContent(w)
	}
}
