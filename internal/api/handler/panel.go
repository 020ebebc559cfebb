package handler

import (
	"net/http"

	"github.com/quorumlab/quorum/internal/api/response"
	"github.com/quorumlab/quorum/internal/panel"
)

// NewPanelHandler returns an http.HandlerFunc for GET /api/v1/panel, exposing
// the fixed advisor roster and majority threshold.
func NewPanelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, map[string]any{
			"advisors":           panel.Advisors(),
			"size":               panel.Size(),
			"majority_threshold": panel.MajorityThreshold(),
		})
	}
}
