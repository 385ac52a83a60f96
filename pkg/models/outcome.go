package models

// OutcomeKind classifies what happened to a single rule during one fire call.
type OutcomeKind string

const (
	OutcomeSkippedInactive      OutcomeKind = "skipped_inactive"
	OutcomeSkippedTriggerConfig OutcomeKind = "skipped_trigger_config"
	OutcomeSkippedCooldown      OutcomeKind = "skipped_cooldown"
	OutcomeSkippedMaxExecutions OutcomeKind = "skipped_max_executions"
	OutcomeSkippedConditions    OutcomeKind = "skipped_conditions"
	OutcomeExecuted             OutcomeKind = "executed"
	OutcomeError                OutcomeKind = "error"
)

// RuleOutcome is the per-rule result reported back to the event producer.
// Status and ExecutionID are set only for executed outcomes; Error only for
// error outcomes.
type RuleOutcome struct {
	RuleID      string          `json:"rule_id"`
	Outcome     OutcomeKind     `json:"outcome"`
	Status      ExecutionStatus `json:"status,omitempty"`
	ExecutionID string          `json:"execution_id,omitempty"`
	Error       string          `json:"error,omitempty"`
}
