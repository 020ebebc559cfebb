package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/quorumlab/quorum/internal/api/middleware"
	"github.com/quorumlab/quorum/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc
	PanelHandler  http.HandlerFunc

	CreateDecision http.HandlerFunc
	ListDecisions  http.HandlerFunc
	GetDecision    http.HandlerFunc
	UpdateDecision http.HandlerFunc
	DeleteDecision http.HandlerFunc

	SubmitResponse http.HandlerFunc
	ListResponses  http.HandlerFunc

	CalculateConsensus http.HandlerFunc
	GetConsensus       http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/panel", orNotImplemented(deps.PanelHandler))

		r.Post("/api/v1/decisions", orNotImplemented(deps.CreateDecision))
		r.Get("/api/v1/decisions", orNotImplemented(deps.ListDecisions))
		r.Get("/api/v1/decisions/{decisionID}", orNotImplemented(deps.GetDecision))
		r.Patch("/api/v1/decisions/{decisionID}", orNotImplemented(deps.UpdateDecision))
		r.Delete("/api/v1/decisions/{decisionID}", orNotImplemented(deps.DeleteDecision))

		r.Post("/api/v1/decisions/{decisionID}/responses", orNotImplemented(deps.SubmitResponse))
		r.Get("/api/v1/decisions/{decisionID}/responses", orNotImplemented(deps.ListResponses))

		r.Post("/api/v1/decisions/{decisionID}/consensus", orNotImplemented(deps.CalculateConsensus))
		r.Get("/api/v1/decisions/{decisionID}/consensus", orNotImplemented(deps.GetConsensus))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
