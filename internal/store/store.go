package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/quorumlab/quorum/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All persistence operations go through
// here. Implementations must serialize writes touching the same decision so
// the one-response-per-advisor and forward-only status invariants hold.
type Store interface {
	Ping(ctx context.Context) error

	CreateDecision(ctx context.Context, d *models.Decision) error
	GetDecision(ctx context.Context, id uuid.UUID) (*models.Decision, error)
	ListDecisions(ctx context.Context) ([]*models.Decision, error)
	UpdateDecision(ctx context.Context, id uuid.UUID, update DecisionUpdate) (*models.Decision, error)
	DeleteDecision(ctx context.Context, id uuid.UUID) (bool, error)

	// SubmitResponse appends the response, or replaces the advisor's prior
	// response in place (same slot, fresh id and timestamp). Once every panel
	// advisor is represented, a pending decision advances to deliberating;
	// the advance is one-way and idempotent.
	SubmitResponse(ctx context.Context, r *models.Response) (*models.Response, error)
	ListResponses(ctx context.Context, decisionID uuid.UUID) ([]models.Response, error)

	// SetConsensus stores or overwrites the decision's consensus with a fresh
	// id and timestamp and unconditionally advances the decision to
	// consensus_reached. Completeness of the panel is the caller's concern.
	SetConsensus(ctx context.Context, decisionID uuid.UUID, body *models.Consensus) (*models.Consensus, error)
	GetConsensus(ctx context.Context, decisionID uuid.UUID) (*models.Consensus, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// DecisionUpdate carries the partial fields for UpdateDecision. Nil fields
// are left untouched. Responses, consensus, and timestamps are never set this
// way; status is included only because deadlock is reachable solely through
// an external update.
type DecisionUpdate struct {
	Title       *string
	Description *string
	Context     *string
	Category    *models.Category
	Priority    *models.Priority
	Status      *models.Status
}
