package handler

import (
	"encoding/json"
	"net/http"

	"github.com/quorumlab/quorum/internal/api/response"
	"github.com/quorumlab/quorum/internal/deliberation"
	"github.com/quorumlab/quorum/pkg/models"
)

// NewSubmitResponseHandler returns an http.HandlerFunc for
// POST /api/v1/decisions/{decisionID}/responses. A repeat submission from the
// same advisor replaces the prior response.
func NewSubmitResponseHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decisionID(w, r)
		if !ok {
			return
		}

		var req struct {
			Advisor         string   `json:"advisor"`
			Vote            string   `json:"vote"`
			Reasoning       string   `json:"reasoning"`
			Confidence      int      `json:"confidence"`
			Risks           []string `json:"risks"`
			Recommendations []string `json:"recommendations"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		stored, err := svc.SubmitResponse(r.Context(), deliberation.SubmitResponseInput{
			DecisionID:      id,
			Advisor:         req.Advisor,
			Vote:            models.Vote(req.Vote),
			Reasoning:       req.Reasoning,
			Confidence:      req.Confidence,
			Risks:           req.Risks,
			Recommendations: req.Recommendations,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.Created(w, stored)
	}
}

// NewListResponsesHandler returns an http.HandlerFunc for
// GET /api/v1/decisions/{decisionID}/responses.
func NewListResponsesHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decisionID(w, r)
		if !ok {
			return
		}

		responses, err := svc.ListResponses(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if responses == nil {
			responses = []models.Response{}
		}
		response.JSON(w, responses)
	}
}
