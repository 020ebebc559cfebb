// Package deliberation orchestrates the decision workflow between the HTTP
// layer and storage: input validation, the completeness precondition for
// consensus calculation, and the consensus cache.
package deliberation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/quorumlab/quorum/internal/cache"
	"github.com/quorumlab/quorum/internal/consensus"
	"github.com/quorumlab/quorum/internal/panel"
	"github.com/quorumlab/quorum/internal/store"
	"github.com/quorumlab/quorum/pkg/models"
)

const consensusCacheTTL = 30 * time.Minute

// Service coordinates decisions, responses, and consensus calculation.
type Service struct {
	store store.Store
	cache cache.Cache
}

// NewService creates a new Service.
func NewService(st store.Store, ca cache.Cache) *Service {
	return &Service{store: st, cache: ca}
}

// CreateDecisionInput carries the fields for a new decision.
type CreateDecisionInput struct {
	Title       string
	Description string
	Context     *string
	Category    models.Category
	Priority    models.Priority
}

// CreateDecision validates the input and stores a new pending decision.
func (s *Service) CreateDecision(ctx context.Context, input CreateDecisionInput) (*models.Decision, error) {
	if input.Title == "" {
		return nil, validationf("title is required")
	}
	if !input.Category.Valid() {
		return nil, validationf("category must be one of product, technical, hiring, financial, strategy, operations; got %q", input.Category)
	}
	if !input.Priority.Valid() {
		return nil, validationf("priority must be one of low, medium, high, critical; got %q", input.Priority)
	}

	now := time.Now().UTC()
	d := &models.Decision{
		ID:          uuid.New(),
		Title:       input.Title,
		Description: input.Description,
		Context:     input.Context,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateDecision(ctx, d); err != nil {
		return nil, err
	}
	d.Responses = []models.Response{}
	return d, nil
}

func (s *Service) GetDecision(ctx context.Context, id uuid.UUID) (*models.Decision, error) {
	return s.store.GetDecision(ctx, id)
}

func (s *Service) ListDecisions(ctx context.Context) ([]*models.Decision, error) {
	return s.store.ListDecisions(ctx)
}

// UpdateDecision applies the supplied fields only. Status updates are
// validated against the closed set but otherwise unrestricted; this is the
// only path to the deadlock state.
func (s *Service) UpdateDecision(ctx context.Context, id uuid.UUID, update store.DecisionUpdate) (*models.Decision, error) {
	if update.Category != nil && !update.Category.Valid() {
		return nil, validationf("invalid category %q", *update.Category)
	}
	if update.Priority != nil && !update.Priority.Valid() {
		return nil, validationf("invalid priority %q", *update.Priority)
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, validationf("invalid status %q", *update.Status)
	}
	return s.store.UpdateDecision(ctx, id, update)
}

// DeleteDecision removes the decision and everything it owns, and drops the
// cached consensus. Returns whether anything existed.
func (s *Service) DeleteDecision(ctx context.Context, id uuid.UUID) (bool, error) {
	existed, err := s.store.DeleteDecision(ctx, id)
	if err != nil {
		return false, err
	}
	if existed {
		if err := s.cache.Delete(ctx, cache.ConsensusKey(id)); err != nil {
			slog.Warn("failed to drop cached consensus", "decision_id", id, "error", err)
		}
	}
	return existed, nil
}

// SubmitResponseInput carries one advisor's vote on a decision.
type SubmitResponseInput struct {
	DecisionID      uuid.UUID
	Advisor         string
	Vote            models.Vote
	Reasoning       string
	Confidence      int
	Risks           []string
	Recommendations []string
}

// SubmitResponse validates and records an advisor's response. A repeat
// submission from the same advisor replaces the prior one.
func (s *Service) SubmitResponse(ctx context.Context, input SubmitResponseInput) (*models.Response, error) {
	if !panel.IsAdvisor(input.Advisor) {
		return nil, validationf("unknown advisor %q", input.Advisor)
	}
	if !input.Vote.Valid() {
		return nil, validationf("vote must be one of approve, reject, abstain; got %q", input.Vote)
	}
	if input.Confidence < 0 || input.Confidence > 100 {
		return nil, validationf("confidence must be between 0 and 100; got %d", input.Confidence)
	}

	return s.store.SubmitResponse(ctx, &models.Response{
		DecisionID:      input.DecisionID,
		Advisor:         input.Advisor,
		Vote:            input.Vote,
		Reasoning:       input.Reasoning,
		Confidence:      input.Confidence,
		Risks:           input.Risks,
		Recommendations: input.Recommendations,
	})
}

func (s *Service) ListResponses(ctx context.Context, decisionID uuid.UUID) ([]models.Response, error) {
	return s.store.ListResponses(ctx, decisionID)
}

// CalculateConsensus checks the completeness precondition, computes the
// consensus, and persists it. On an incomplete panel it returns a
// PreconditionError naming responded and missing advisors and writes nothing.
func (s *Service) CalculateConsensus(ctx context.Context, decisionID uuid.UUID) (*models.Consensus, error) {
	responses, err := s.store.ListResponses(ctx, decisionID)
	if err != nil {
		return nil, err
	}

	if missing := consensus.MissingAdvisors(responses); len(missing) > 0 {
		responded := make([]string, 0, len(responses))
		for _, r := range responses {
			responded = append(responded, r.Advisor)
		}
		return nil, &PreconditionError{Responded: responded, Missing: missing}
	}

	result := consensus.Calculate(responses)
	stored, err := s.store.SetConsensus(ctx, decisionID, &models.Consensus{
		Outcome:     result.Outcome,
		Unanimous:   result.Unanimous,
		Tally:       result.Tally,
		Reasoning:   result.Reasoning,
		ActionItems: result.ActionItems,
	})
	if err != nil {
		return nil, err
	}

	s.cacheConsensus(ctx, stored)
	slog.Info("consensus calculated",
		"decision_id", decisionID,
		"outcome", stored.Outcome,
		"unanimous", stored.Unanimous,
	)
	return stored, nil
}

// GetConsensus returns the decision's consensus, preferring the cache.
func (s *Service) GetConsensus(ctx context.Context, decisionID uuid.UUID) (*models.Consensus, error) {
	if raw, ok, err := s.cache.Get(ctx, cache.ConsensusKey(decisionID)); err == nil && ok {
		var c models.Consensus
		if err := json.Unmarshal(raw, &c); err == nil {
			return &c, nil
		}
	}

	c, err := s.store.GetConsensus(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	s.cacheConsensus(ctx, c)
	return c, nil
}

// cacheConsensus writes through to the cache, failing open on cache errors.
func (s *Service) cacheConsensus(ctx context.Context, c *models.Consensus) {
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.ConsensusKey(c.DecisionID), raw, consensusCacheTTL); err != nil {
		slog.Warn("failed to cache consensus", "decision_id", c.DecisionID, "error", err)
	}
}
