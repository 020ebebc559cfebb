package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is a single advisor's position on a decision.
type Vote string

const (
	VoteApprove Vote = "approve"
	VoteReject  Vote = "reject"
	VoteAbstain Vote = "abstain"
)

// Valid reports whether v is a known vote value.
func (v Vote) Valid() bool {
	switch v {
	case VoteApprove, VoteReject, VoteAbstain:
		return true
	}
	return false
}

// Response is one advisor's input on a decision: vote, reasoning, confidence,
// and optional risk/recommendation lists. A decision holds at most one
// response per advisor; a resubmission replaces the prior one in place with a
// fresh id and timestamp.
type Response struct {
	ID              uuid.UUID `db:"id"              json:"id"`
	DecisionID      uuid.UUID `db:"decision_id"     json:"decision_id"`
	Advisor         string    `db:"advisor"         json:"advisor"`
	Vote            Vote      `db:"vote"            json:"vote"`
	Reasoning       string    `db:"reasoning"       json:"reasoning"`
	Confidence      int       `db:"confidence"      json:"confidence"`
	Risks           []string  `db:"risks"           json:"risks,omitempty"`
	Recommendations []string  `db:"recommendations" json:"recommendations,omitempty"`
	CreatedAt       time.Time `db:"created_at"      json:"created_at"`
}
