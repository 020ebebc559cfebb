package deliberation_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quorumlab/quorum/internal/cache"
	"github.com/quorumlab/quorum/internal/deliberation"
	"github.com/quorumlab/quorum/internal/store"
	"github.com/quorumlab/quorum/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache is an in-process cache.Cache for tests.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) Ping(_ context.Context) error { return nil }

func (c *fakeCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

var _ cache.Cache = (*fakeCache)(nil)

func newService() (*deliberation.Service, *store.MemoryStore, *fakeCache) {
	st := store.NewMemoryStore()
	ca := newFakeCache()
	return deliberation.NewService(st, ca), st, ca
}

func createDecision(t *testing.T, svc *deliberation.Service) *models.Decision {
	t.Helper()
	d, err := svc.CreateDecision(context.Background(), deliberation.CreateDecisionInput{
		Title:       "sunset the legacy importer",
		Description: "the v1 importer has no remaining users on paid plans",
		Category:    models.CategoryTechnical,
		Priority:    models.PriorityHigh,
	})
	require.NoError(t, err)
	return d
}

func submit(t *testing.T, svc *deliberation.Service, decisionID uuid.UUID, advisor string, vote models.Vote, confidence int) {
	t.Helper()
	_, err := svc.SubmitResponse(context.Background(), deliberation.SubmitResponseInput{
		DecisionID: decisionID,
		Advisor:    advisor,
		Vote:       vote,
		Reasoning:  "reasoning from " + advisor,
		Confidence: confidence,
	})
	require.NoError(t, err)
}

// --- CreateDecision ---

func TestCreateDecision_Valid(t *testing.T) {
	svc, _, _ := newService()

	d := createDecision(t, svc)
	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.Equal(t, models.StatusPending, d.Status)
	assert.NotNil(t, d.Responses)
	assert.Empty(t, d.Responses)
	assert.Nil(t, d.Consensus)
	assert.False(t, d.CreatedAt.IsZero())
	assert.Equal(t, d.CreatedAt, d.UpdatedAt)
}

func TestCreateDecision_Validation(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	tests := []struct {
		name  string
		input deliberation.CreateDecisionInput
	}{
		{
			name:  "missing title",
			input: deliberation.CreateDecisionInput{Category: models.CategoryProduct, Priority: models.PriorityLow},
		},
		{
			name:  "unknown category",
			input: deliberation.CreateDecisionInput{Title: "t", Category: "gossip", Priority: models.PriorityLow},
		},
		{
			name:  "unknown priority",
			input: deliberation.CreateDecisionInput{Title: "t", Category: models.CategoryProduct, Priority: "urgent"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateDecision(ctx, tt.input)
			var validationErr *deliberation.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

// --- SubmitResponse ---

func TestSubmitResponse_Validation(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	d := createDecision(t, svc)

	tests := []struct {
		name  string
		input deliberation.SubmitResponseInput
	}{
		{
			name:  "unknown advisor",
			input: deliberation.SubmitResponseInput{DecisionID: d.ID, Advisor: "intern", Vote: models.VoteApprove, Confidence: 50},
		},
		{
			name:  "unknown vote",
			input: deliberation.SubmitResponseInput{DecisionID: d.ID, Advisor: "analyst", Vote: "veto", Confidence: 50},
		},
		{
			name:  "confidence below range",
			input: deliberation.SubmitResponseInput{DecisionID: d.ID, Advisor: "analyst", Vote: models.VoteApprove, Confidence: -1},
		},
		{
			name:  "confidence above range",
			input: deliberation.SubmitResponseInput{DecisionID: d.ID, Advisor: "analyst", Vote: models.VoteApprove, Confidence: 101},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitResponse(ctx, tt.input)
			var validationErr *deliberation.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	// Nothing was written by the rejected submissions.
	responses, err := svc.ListResponses(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestSubmitResponse_MissingDecision(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.SubmitResponse(context.Background(), deliberation.SubmitResponseInput{
		DecisionID: uuid.New(),
		Advisor:    "analyst",
		Vote:       models.VoteApprove,
		Confidence: 50,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- CalculateConsensus ---

func TestCalculateConsensus_MajorityApproval(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	d := createDecision(t, svc)

	submit(t, svc, d.ID, "strategist", models.VoteApprove, 90)
	submit(t, svc, d.ID, "analyst", models.VoteApprove, 80)
	submit(t, svc, d.ID, "guardian", models.VoteReject, 70)

	got, err := svc.GetDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeliberating, got.Status)

	c, err := svc.CalculateConsensus(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApproved, c.Outcome)
	assert.False(t, c.Unanimous)
	assert.Equal(t, models.Tally{Approve: 2, Reject: 1, Abstain: 0}, c.Tally)
	assert.Contains(t, c.Reasoning, "Strategist voted to approve with 90% confidence")

	got, err = svc.GetDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConsensusReached, got.Status)
}

func TestCalculateConsensus_SplitNeedsRevision(t *testing.T) {
	svc, _, _ := newService()
	d := createDecision(t, svc)

	submit(t, svc, d.ID, "strategist", models.VoteApprove, 60)
	submit(t, svc, d.ID, "analyst", models.VoteReject, 60)
	submit(t, svc, d.ID, "guardian", models.VoteAbstain, 60)

	c, err := svc.CalculateConsensus(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNeedsRevision, c.Outcome)
	assert.False(t, c.Unanimous)
	assert.Equal(t, models.Tally{Approve: 1, Reject: 1, Abstain: 1}, c.Tally)
}

func TestCalculateConsensus_IncompletePanel(t *testing.T) {
	svc, st, _ := newService()
	ctx := context.Background()
	d := createDecision(t, svc)

	submit(t, svc, d.ID, "strategist", models.VoteApprove, 90)
	submit(t, svc, d.ID, "analyst", models.VoteApprove, 80)

	_, err := svc.CalculateConsensus(ctx, d.ID)
	var preconditionErr *deliberation.PreconditionError
	require.ErrorAs(t, err, &preconditionErr)
	assert.ElementsMatch(t, []string{"strategist", "analyst"}, preconditionErr.Responded)
	assert.Equal(t, []string{"guardian"}, preconditionErr.Missing)

	// Nothing was written and the status did not move.
	_, err = st.GetConsensus(ctx, d.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	got, err := svc.GetDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestCalculateConsensus_MissingDecision(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.CalculateConsensus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCalculateConsensus_RecalculationOverwrites(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	d := createDecision(t, svc)

	submit(t, svc, d.ID, "strategist", models.VoteApprove, 90)
	submit(t, svc, d.ID, "analyst", models.VoteReject, 80)
	submit(t, svc, d.ID, "guardian", models.VoteAbstain, 70)

	first, err := svc.CalculateConsensus(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNeedsRevision, first.Outcome)

	// Analyst flips; recalculation replaces the record.
	submit(t, svc, d.ID, "analyst", models.VoteApprove, 85)
	second, err := svc.CalculateConsensus(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApproved, second.Outcome)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := svc.GetConsensus(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

// --- GetConsensus caching ---

func TestGetConsensus_ServedFromCacheAfterCalculation(t *testing.T) {
	svc, st, ca := newService()
	ctx := context.Background()
	d := createDecision(t, svc)

	submit(t, svc, d.ID, "strategist", models.VoteApprove, 90)
	submit(t, svc, d.ID, "analyst", models.VoteApprove, 80)
	submit(t, svc, d.ID, "guardian", models.VoteApprove, 70)

	calculated, err := svc.CalculateConsensus(ctx, d.ID)
	require.NoError(t, err)

	_, ok, err := ca.Get(ctx, cache.ConsensusKey(d.ID))
	require.NoError(t, err)
	assert.True(t, ok)

	// Remove the stored record; the cached copy still serves reads.
	_, err = st.DeleteDecision(ctx, d.ID)
	require.NoError(t, err)
	require.NoError(t, ca.Set(ctx, cache.ConsensusKey(d.ID), mustMarshal(t, calculated), time.Minute))

	got, err := svc.GetConsensus(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, calculated.ID, got.ID)
}

func TestDeleteDecision_DropsCachedConsensus(t *testing.T) {
	svc, _, ca := newService()
	ctx := context.Background()
	d := createDecision(t, svc)

	submit(t, svc, d.ID, "strategist", models.VoteApprove, 90)
	submit(t, svc, d.ID, "analyst", models.VoteApprove, 80)
	submit(t, svc, d.ID, "guardian", models.VoteApprove, 70)
	_, err := svc.CalculateConsensus(ctx, d.ID)
	require.NoError(t, err)

	existed, err := svc.DeleteDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok, err := ca.Get(ctx, cache.ConsensusKey(d.ID))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.GetConsensus(ctx, d.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- UpdateDecision ---

func TestUpdateDecision_ValidatesEnums(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	d := createDecision(t, svc)

	badStatus := models.Status("paused")
	_, err := svc.UpdateDecision(ctx, d.ID, store.DecisionUpdate{Status: &badStatus})
	var validationErr *deliberation.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	deadlock := models.StatusDeadlock
	got, err := svc.UpdateDecision(ctx, d.ID, store.DecisionUpdate{Status: &deadlock})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeadlock, got.Status)
}

func mustMarshal(t *testing.T, c *models.Consensus) []byte {
	t.Helper()
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	return raw
}
