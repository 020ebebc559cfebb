package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quorumlab/quorum/internal/store"
	"github.com/quorumlab/quorum/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("quorum_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Run migrations
	err = store.RunMigrations(connStr)
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func TestPostgres_DecisionRoundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	d := newDecision("migrate billing to usage-based pricing")
	require.NoError(t, s.CreateDecision(ctx, d))

	got, err := s.GetDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, d.Title, got.Title)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Empty(t, got.Responses)
	assert.Nil(t, got.Consensus)
}

func TestPostgres_ListNewestFirst(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	first := newDecision("first")
	second := newDecision("second")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	require.NoError(t, s.CreateDecision(ctx, first))
	require.NoError(t, s.CreateDecision(ctx, second))

	got, err := s.ListDecisions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Title)
	assert.Equal(t, "first", got[1].Title)
}

func TestPostgres_SubmitResponse_ReplaceKeepsPosition(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	d := newDecision("resubmission")
	require.NoError(t, s.CreateDecision(ctx, d))

	first, err := s.SubmitResponse(ctx, newResponse(d.ID, "analyst", models.VoteReject))
	require.NoError(t, err)
	_, err = s.SubmitResponse(ctx, newResponse(d.ID, "guardian", models.VoteApprove))
	require.NoError(t, err)

	resub := newResponse(d.ID, "analyst", models.VoteApprove)
	resub.Reasoning = "new data changed the picture"
	resub.Recommendations = []string{"re-run the projection quarterly"}
	second, err := s.SubmitResponse(ctx, resub)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	responses, err := s.ListResponses(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, "analyst", responses[0].Advisor)
	assert.Equal(t, models.VoteApprove, responses[0].Vote)
	assert.Equal(t, "new data changed the picture", responses[0].Reasoning)
	assert.Equal(t, []string{"re-run the projection quarterly"}, responses[0].Recommendations)
	assert.Equal(t, "guardian", responses[1].Advisor)
}

func TestPostgres_StatusAdvancesOncePanelComplete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	d := newDecision("panel completion")
	require.NoError(t, s.CreateDecision(ctx, d))

	_, err := s.SubmitResponse(ctx, newResponse(d.ID, "strategist", models.VoteApprove))
	require.NoError(t, err)
	_, err = s.SubmitResponse(ctx, newResponse(d.ID, "analyst", models.VoteApprove))
	require.NoError(t, err)

	got, err := s.GetDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	_, err = s.SubmitResponse(ctx, newResponse(d.ID, "guardian", models.VoteReject))
	require.NoError(t, err)

	got, err = s.GetDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeliberating, got.Status)
}

func TestPostgres_SetConsensus_UpsertAndCascade(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	d := newDecision("cascade")
	require.NoError(t, s.CreateDecision(ctx, d))
	submitAll(t, s, d.ID, map[string]models.Vote{
		"strategist": models.VoteApprove,
		"analyst":    models.VoteApprove,
		"guardian":   models.VoteReject,
	})

	first, err := s.SetConsensus(ctx, d.ID, &models.Consensus{
		Outcome:   models.OutcomeApproved,
		Tally:     models.Tally{Approve: 2, Reject: 1},
		Reasoning: "majority approval",
	})
	require.NoError(t, err)

	second, err := s.SetConsensus(ctx, d.ID, &models.Consensus{
		Outcome:     models.OutcomeApproved,
		Tally:       models.Tally{Approve: 2, Reject: 1},
		Reasoning:   "recalculated",
		ActionItems: []string{"write the rollout plan"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := s.GetConsensus(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "recalculated", got.Reasoning)
	assert.Equal(t, models.Tally{Approve: 2, Reject: 1}, got.Tally)

	decision, err := s.GetDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConsensusReached, decision.Status)

	existed, err := s.DeleteDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = s.GetConsensus(ctx, d.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ListResponses(ctx, d.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostgres_SetConsensus_MissingDecision(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.SetConsensus(context.Background(), newDecision("x").ID, &models.Consensus{
		Outcome: models.OutcomeApproved,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
