package models

import "time"

// ExecutionStatus is the lifecycle state of an execution record. The only
// legal transitions are running -> completed and running -> failed.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// ExecutionRecord is one row of the execution ledger: the durable audit trail
// of every rule firing attempt that passed the idempotency and condition
// checks. It is created with status running before any action runs and updated
// exactly once to a terminal status. The ledger is the sole source of truth
// for idempotency decisions.
type ExecutionRecord struct {
	ID          string          `json:"id"`
	RuleID      string          `json:"rule_id"`
	EntityType  string          `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      []ActionResult  `json:"result,omitempty"`
}
