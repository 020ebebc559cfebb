package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the synthesized result of a completed deliberation.
type Outcome string

const (
	OutcomeApproved      Outcome = "approved"
	OutcomeRejected      Outcome = "rejected"
	OutcomeNeedsRevision Outcome = "needs_revision"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeApproved, OutcomeRejected, OutcomeNeedsRevision:
		return true
	}
	return false
}

// Tally counts votes by value. The counts always sum to the panel size.
type Tally struct {
	Approve int `db:"approve" json:"approve"`
	Reject  int `db:"reject"  json:"reject"`
	Abstain int `db:"abstain" json:"abstain"`
}

// Consensus is the synthesized outcome of a decision, computed once every
// panel advisor has a response on file. Recalculation overwrites the record
// with a fresh id and timestamp. ActionItems is nil, not empty, when no
// advisor made a recommendation.
type Consensus struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	DecisionID  uuid.UUID `db:"decision_id"  json:"decision_id"`
	Outcome     Outcome   `db:"outcome"      json:"outcome"`
	Unanimous   bool      `db:"unanimous"    json:"unanimous"`
	Tally       Tally     `db:"-"            json:"tally"`
	Reasoning   string    `db:"reasoning"    json:"reasoning"`
	ActionItems []string  `db:"action_items" json:"action_items,omitempty"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}
