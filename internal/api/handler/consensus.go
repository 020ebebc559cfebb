package handler

import (
	"net/http"

	"github.com/quorumlab/quorum/internal/api/response"
)

// NewCalculateConsensusHandler returns an http.HandlerFunc for
// POST /api/v1/decisions/{decisionID}/consensus. Calculation is rejected with
// 409 until every panel advisor has a response on file.
func NewCalculateConsensusHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decisionID(w, r)
		if !ok {
			return
		}

		c, err := svc.CalculateConsensus(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Created(w, c)
	}
}

// NewGetConsensusHandler returns an http.HandlerFunc for
// GET /api/v1/decisions/{decisionID}/consensus.
func NewGetConsensusHandler(svc DecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decisionID(w, r)
		if !ok {
			return
		}

		c, err := svc.GetConsensus(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, c)
	}
}
