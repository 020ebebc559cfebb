// Package models contains shared data models used across the Quorum codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies what kind of decision is being deliberated.
type Category string

const (
	CategoryProduct    Category = "product"
	CategoryTechnical  Category = "technical"
	CategoryHiring     Category = "hiring"
	CategoryFinancial  Category = "financial"
	CategoryStrategy   Category = "strategy"
	CategoryOperations Category = "operations"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryProduct, CategoryTechnical, CategoryHiring,
		CategoryFinancial, CategoryStrategy, CategoryOperations:
		return true
	}
	return false
}

// Priority is informational only; it has no effect on deliberation.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Status is the decision lifecycle state. Transitions move forward only:
// pending -> deliberating (all advisors responded) -> consensus_reached
// (consensus calculated). Deadlock is never computed internally; it is
// reachable only through an explicit update from outside.
type Status string

const (
	StatusPending          Status = "pending"
	StatusDeliberating     Status = "deliberating"
	StatusConsensusReached Status = "consensus_reached"
	StatusDeadlock         Status = "deadlock"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDeliberating, StatusConsensusReached, StatusDeadlock:
		return true
	}
	return false
}

// Decision is a proposal awaiting synthesized judgment from the advisory panel.
// Reads always carry the current response list and the consensus, if one exists.
type Decision struct {
	ID          uuid.UUID  `db:"id"          json:"id"`
	Title       string     `db:"title"       json:"title"`
	Description string     `db:"description" json:"description"`
	Context     *string    `db:"context"     json:"context,omitempty"`
	Category    Category   `db:"category"    json:"category"`
	Priority    Priority   `db:"priority"    json:"priority"`
	Status      Status     `db:"status"      json:"status"`
	CreatedAt   time.Time  `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"  json:"updated_at"`
	Responses   []Response `db:"-"           json:"responses"`
	Consensus   *Consensus `db:"-"           json:"consensus,omitempty"`
}
