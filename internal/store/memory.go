package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quorumlab/quorum/internal/panel"
	"github.com/quorumlab/quorum/pkg/models"
)

// MemoryStore implements Store with in-process maps. It is the reference
// backend for development and tests. A single mutex serializes all writes,
// which is stricter than the per-decision serialization the interface
// requires but costs nothing at this scale.
type MemoryStore struct {
	mu        sync.Mutex
	decisions map[uuid.UUID]*decisionRecord
	order     []uuid.UUID
	apiKeys   map[uuid.UUID]*models.APIKey
}

// decisionRecord owns everything attached to one decision. Deleting the
// record cascades to responses and consensus with no separate cleanup.
type decisionRecord struct {
	decision  models.Decision
	responses []models.Response
	consensus *models.Consensus
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		decisions: make(map[uuid.UUID]*decisionRecord),
		apiKeys:   make(map[uuid.UUID]*models.APIKey),
	}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// --- Decisions ---

func (s *MemoryStore) CreateDecision(_ context.Context, d *models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &decisionRecord{decision: *d}
	rec.decision.Responses = nil
	rec.decision.Consensus = nil
	s.decisions[d.ID] = rec
	s.order = append(s.order, d.ID)
	return nil
}

func (s *MemoryStore) GetDecision(_ context.Context, id uuid.UUID) (*models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.decisions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.snapshot(), nil
}

func (s *MemoryStore) ListDecisions(_ context.Context) ([]*models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Creation order is timestamp order, so reverse iteration yields
	// newest-first with a stable tie-break.
	out := make([]*models.Decision, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if rec, ok := s.decisions[s.order[i]]; ok {
			out = append(out, rec.snapshot())
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateDecision(_ context.Context, id uuid.UUID, update DecisionUpdate) (*models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.decisions[id]
	if !ok {
		return nil, ErrNotFound
	}

	if update.Title != nil {
		rec.decision.Title = *update.Title
	}
	if update.Description != nil {
		rec.decision.Description = *update.Description
	}
	if update.Context != nil {
		ctx := *update.Context
		rec.decision.Context = &ctx
	}
	if update.Category != nil {
		rec.decision.Category = *update.Category
	}
	if update.Priority != nil {
		rec.decision.Priority = *update.Priority
	}
	if update.Status != nil {
		rec.decision.Status = *update.Status
	}
	rec.decision.UpdatedAt = time.Now().UTC()

	return rec.snapshot(), nil
}

func (s *MemoryStore) DeleteDecision(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.decisions[id]; !ok {
		return false, nil
	}
	delete(s.decisions, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// --- Responses ---

func (s *MemoryStore) SubmitResponse(_ context.Context, r *models.Response) (*models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.decisions[r.DecisionID]
	if !ok {
		return nil, ErrNotFound
	}

	stored := *r
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now().UTC()

	replaced := false
	for i := range rec.responses {
		if rec.responses[i].Advisor == stored.Advisor {
			rec.responses[i] = stored
			replaced = true
			break
		}
	}
	if !replaced {
		rec.responses = append(rec.responses, stored)
	}

	if rec.decision.Status == models.StatusPending && rec.panelComplete() {
		rec.decision.Status = models.StatusDeliberating
		rec.decision.UpdatedAt = stored.CreatedAt
	}

	out := stored
	return &out, nil
}

func (s *MemoryStore) ListResponses(_ context.Context, decisionID uuid.UUID) ([]models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.decisions[decisionID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyResponses(rec.responses), nil
}

// --- Consensus ---

func (s *MemoryStore) SetConsensus(_ context.Context, decisionID uuid.UUID, body *models.Consensus) (*models.Consensus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.decisions[decisionID]
	if !ok {
		return nil, ErrNotFound
	}

	stored := *body
	stored.ID = uuid.New()
	stored.DecisionID = decisionID
	stored.CreatedAt = time.Now().UTC()
	rec.consensus = &stored

	rec.decision.Status = models.StatusConsensusReached
	rec.decision.UpdatedAt = stored.CreatedAt

	out := stored
	return &out, nil
}

func (s *MemoryStore) GetConsensus(_ context.Context, decisionID uuid.UUID) (*models.Consensus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.decisions[decisionID]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.consensus == nil {
		return nil, ErrNotFound
	}
	out := *rec.consensus
	return &out, nil
}

// --- API Keys ---

func (s *MemoryStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []*models.APIKey
	for _, k := range s.apiKeys {
		if k.KeyPrefix == prefix && k.DeletedAt == nil {
			cp := *k
			keys = append(keys, &cp)
		}
	}
	return keys, nil
}

func (s *MemoryStore) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.apiKeys[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	k.LastUsedAt = &now
	k.UpdatedAt = now
	return nil
}

func (s *MemoryStore) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apiKeys[key.ID]; ok {
		return ErrDuplicateKey
	}
	cp := *key
	s.apiKeys[key.ID] = &cp
	return nil
}

func (s *MemoryStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []*models.APIKey
	for _, k := range s.apiKeys {
		if k.DeletedAt == nil {
			cp := *k
			keys = append(keys, &cp)
		}
	}
	return keys, nil
}

func (s *MemoryStore) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.apiKeys[id]
	if !ok || k.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	k.DeletedAt = &now
	k.UpdatedAt = now
	return nil
}

// --- helpers ---

// snapshot returns a deep copy of the decision with its current responses and
// consensus attached. Callers never see live internal state.
func (r *decisionRecord) snapshot() *models.Decision {
	d := r.decision
	d.Responses = copyResponses(r.responses)
	if r.consensus != nil {
		c := *r.consensus
		d.Consensus = &c
	}
	return &d
}

func (r *decisionRecord) panelComplete() bool {
	seen := make(map[string]bool, len(r.responses))
	for _, resp := range r.responses {
		seen[resp.Advisor] = true
	}
	for _, a := range panel.Advisors() {
		if !seen[a.ID] {
			return false
		}
	}
	return true
}

func copyResponses(in []models.Response) []models.Response {
	out := make([]models.Response, len(in))
	copy(out, in)
	return out
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
