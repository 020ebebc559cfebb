package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/quorumlab/quorum/internal/deliberation"
	"github.com/quorumlab/quorum/internal/store"
	"github.com/quorumlab/quorum/pkg/models"
)

// --- mock DecisionService ---

type mockService struct {
	createDecision     func(input deliberation.CreateDecisionInput) (*models.Decision, error)
	getDecision        func(id uuid.UUID) (*models.Decision, error)
	listDecisions      func() ([]*models.Decision, error)
	updateDecision     func(id uuid.UUID, update store.DecisionUpdate) (*models.Decision, error)
	deleteDecision     func(id uuid.UUID) (bool, error)
	submitResponse     func(input deliberation.SubmitResponseInput) (*models.Response, error)
	listResponses      func(decisionID uuid.UUID) ([]models.Response, error)
	calculateConsensus func(decisionID uuid.UUID) (*models.Consensus, error)
	getConsensus       func(decisionID uuid.UUID) (*models.Consensus, error)
}

func (m *mockService) CreateDecision(_ context.Context, input deliberation.CreateDecisionInput) (*models.Decision, error) {
	return m.createDecision(input)
}

func (m *mockService) GetDecision(_ context.Context, id uuid.UUID) (*models.Decision, error) {
	return m.getDecision(id)
}

func (m *mockService) ListDecisions(_ context.Context) ([]*models.Decision, error) {
	return m.listDecisions()
}

func (m *mockService) UpdateDecision(_ context.Context, id uuid.UUID, update store.DecisionUpdate) (*models.Decision, error) {
	return m.updateDecision(id, update)
}

func (m *mockService) DeleteDecision(_ context.Context, id uuid.UUID) (bool, error) {
	return m.deleteDecision(id)
}

func (m *mockService) SubmitResponse(_ context.Context, input deliberation.SubmitResponseInput) (*models.Response, error) {
	return m.submitResponse(input)
}

func (m *mockService) ListResponses(_ context.Context, decisionID uuid.UUID) ([]models.Response, error) {
	return m.listResponses(decisionID)
}

func (m *mockService) CalculateConsensus(_ context.Context, decisionID uuid.UUID) (*models.Consensus, error) {
	return m.calculateConsensus(decisionID)
}

func (m *mockService) GetConsensus(_ context.Context, decisionID uuid.UUID) (*models.Consensus, error) {
	return m.getConsensus(decisionID)
}

// --- helpers ---

// withDecisionID injects a chi route context carrying the {decisionID} param.
func withDecisionID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("decisionID", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonReq(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r := httptest.NewRequest(method, target, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func parseData(t *testing.T, rec *httptest.ResponseRecorder, want int) map[string]any {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data
}

func parseErr(t *testing.T, rec *httptest.ResponseRecorder) (int, string, map[string]any) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, env.Error.Code, env.Error.Details
}
