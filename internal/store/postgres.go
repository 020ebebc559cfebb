package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quorumlab/quorum/internal/panel"
	"github.com/quorumlab/quorum/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5. Per-decision
// serialization comes from the unique constraints and single-transaction
// writes; no cross-decision transaction exists.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Decisions ---

func (s *PostgresStore) CreateDecision(ctx context.Context, d *models.Decision) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO decisions (id, title, description, context, category, priority, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.Title, d.Description, d.Context, d.Category, d.Priority, d.Status, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDecision(ctx context.Context, id uuid.UUID) (*models.Decision, error) {
	var d models.Decision
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, description, context, category, priority, status, created_at, updated_at
		 FROM decisions WHERE id = $1`, id,
	).Scan(&d.ID, &d.Title, &d.Description, &d.Context, &d.Category, &d.Priority, &d.Status,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get decision: %w", err)
	}

	if d.Responses, err = s.queryResponses(ctx, id); err != nil {
		return nil, err
	}
	if d.Consensus, err = s.queryConsensus(ctx, id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) ListDecisions(ctx context.Context) ([]*models.Decision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, context, category, priority, status, created_at, updated_at
		 FROM decisions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*models.Decision
	for rows.Next() {
		var d models.Decision
		if err := rows.Scan(&d.ID, &d.Title, &d.Description, &d.Context, &d.Category,
			&d.Priority, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		decisions = append(decisions, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, d := range decisions {
		if d.Responses, err = s.queryResponses(ctx, d.ID); err != nil {
			return nil, err
		}
		if d.Consensus, err = s.queryConsensus(ctx, d.ID); err != nil {
			return nil, err
		}
	}
	return decisions, nil
}

func (s *PostgresStore) UpdateDecision(ctx context.Context, id uuid.UUID, update DecisionUpdate) (*models.Decision, error) {
	sets := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}
	argIdx := 3

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if update.Title != nil {
		addSet("title", *update.Title)
	}
	if update.Description != nil {
		addSet("description", *update.Description)
	}
	if update.Context != nil {
		addSet("context", *update.Context)
	}
	if update.Category != nil {
		addSet("category", *update.Category)
	}
	if update.Priority != nil {
		addSet("priority", *update.Priority)
	}
	if update.Status != nil {
		addSet("status", *update.Status)
	}

	query := fmt.Sprintf(`UPDATE decisions SET %s WHERE id = $1`, strings.Join(sets, ", "))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetDecision(ctx, id)
}

func (s *PostgresStore) DeleteDecision(ctx context.Context, id uuid.UUID) (bool, error) {
	// Responses and consensus go with it via ON DELETE CASCADE.
	tag, err := s.pool.Exec(ctx, `DELETE FROM decisions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete decision: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// --- Responses ---

func (s *PostgresStore) SubmitResponse(ctx context.Context, r *models.Response) (*models.Response, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin submit response: %w", err)
	}
	defer tx.Rollback(ctx)

	var status models.Status
	err = tx.QueryRow(ctx,
		`SELECT status FROM decisions WHERE id = $1 FOR UPDATE`, r.DecisionID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock decision: %w", err)
	}

	stored := *r
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now().UTC()

	// A resubmission keeps the advisor's original position so narrative order
	// stays by first submission; only id, content, and timestamp change.
	_, err = tx.Exec(ctx,
		`INSERT INTO responses (id, decision_id, advisor, vote, reasoning, confidence, risks, recommendations, position, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
		         (SELECT COALESCE(MAX(position), 0) + 1 FROM responses WHERE decision_id = $2), $9)
		 ON CONFLICT (decision_id, advisor) DO UPDATE SET
		   id = EXCLUDED.id,
		   vote = EXCLUDED.vote,
		   reasoning = EXCLUDED.reasoning,
		   confidence = EXCLUDED.confidence,
		   risks = EXCLUDED.risks,
		   recommendations = EXCLUDED.recommendations,
		   created_at = EXCLUDED.created_at`,
		stored.ID, stored.DecisionID, stored.Advisor, stored.Vote, stored.Reasoning,
		stored.Confidence, stored.Risks, stored.Recommendations, stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("submit response: %w", err)
	}

	if status == models.StatusPending {
		var distinct int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(DISTINCT advisor) FROM responses WHERE decision_id = $1`, r.DecisionID,
		).Scan(&distinct); err != nil {
			return nil, fmt.Errorf("count advisors: %w", err)
		}
		if distinct >= panel.Size() {
			if _, err := tx.Exec(ctx,
				`UPDATE decisions SET status = $2, updated_at = $3 WHERE id = $1`,
				r.DecisionID, models.StatusDeliberating, stored.CreatedAt); err != nil {
				return nil, fmt.Errorf("advance decision status: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit submit response: %w", err)
	}
	return &stored, nil
}

func (s *PostgresStore) ListResponses(ctx context.Context, decisionID uuid.UUID) ([]models.Response, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM decisions WHERE id = $1)`, decisionID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check decision: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return s.queryResponses(ctx, decisionID)
}

func (s *PostgresStore) queryResponses(ctx context.Context, decisionID uuid.UUID) ([]models.Response, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, decision_id, advisor, vote, reasoning, confidence, risks, recommendations, created_at
		 FROM responses WHERE decision_id = $1 ORDER BY position`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	responses := []models.Response{}
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.ID, &r.DecisionID, &r.Advisor, &r.Vote, &r.Reasoning,
			&r.Confidence, &r.Risks, &r.Recommendations, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// --- Consensus ---

func (s *PostgresStore) SetConsensus(ctx context.Context, decisionID uuid.UUID, body *models.Consensus) (*models.Consensus, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin set consensus: %w", err)
	}
	defer tx.Rollback(ctx)

	stored := *body
	stored.ID = uuid.New()
	stored.DecisionID = decisionID
	stored.CreatedAt = time.Now().UTC()

	tag, err := tx.Exec(ctx,
		`UPDATE decisions SET status = $2, updated_at = $3 WHERE id = $1`,
		decisionID, models.StatusConsensusReached, stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("advance decision status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO consensus (id, decision_id, outcome, unanimous, approve_count, reject_count, abstain_count, reasoning, action_items, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (decision_id) DO UPDATE SET
		   id = EXCLUDED.id,
		   outcome = EXCLUDED.outcome,
		   unanimous = EXCLUDED.unanimous,
		   approve_count = EXCLUDED.approve_count,
		   reject_count = EXCLUDED.reject_count,
		   abstain_count = EXCLUDED.abstain_count,
		   reasoning = EXCLUDED.reasoning,
		   action_items = EXCLUDED.action_items,
		   created_at = EXCLUDED.created_at`,
		stored.ID, stored.DecisionID, stored.Outcome, stored.Unanimous,
		stored.Tally.Approve, stored.Tally.Reject, stored.Tally.Abstain,
		stored.Reasoning, stored.ActionItems, stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("set consensus: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit set consensus: %w", err)
	}
	return &stored, nil
}

func (s *PostgresStore) GetConsensus(ctx context.Context, decisionID uuid.UUID) (*models.Consensus, error) {
	c, err := s.queryConsensus(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *PostgresStore) queryConsensus(ctx context.Context, decisionID uuid.UUID) (*models.Consensus, error) {
	var c models.Consensus
	err := s.pool.QueryRow(ctx,
		`SELECT id, decision_id, outcome, unanimous, approve_count, reject_count, abstain_count, reasoning, action_items, created_at
		 FROM consensus WHERE decision_id = $1`, decisionID,
	).Scan(&c.ID, &c.DecisionID, &c.Outcome, &c.Unanimous,
		&c.Tally.Approve, &c.Tally.Reject, &c.Tally.Abstain,
		&c.Reasoning, &c.ActionItems, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get consensus: %w", err)
	}
	return &c, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()
	return scanAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
