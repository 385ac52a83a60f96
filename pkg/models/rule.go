// Package models defines the core domain models for rule-based workflow automation.
package models

import "time"

// WorkflowRule is a user-authored automation rule: when the trigger event occurs
// on an entity and every condition holds, the actions execute in list order.
type WorkflowRule struct {
	ID                     string         `json:"id"`
	OwnerID                string         `json:"owner_id"                            validate:"required"`
	Name                   string         `json:"name"                                validate:"required,min=3"`
	Description            string         `json:"description"`
	IsActive               bool           `json:"is_active"`
	TriggerType            TriggerType    `json:"trigger_type"                        validate:"required"`
	TriggerConfig          map[string]any `json:"trigger_config,omitempty"`
	Conditions             []Condition    `json:"conditions"`
	Actions                []Action       `json:"actions"                             validate:"required,min=1,dive"`
	CooldownHours          int            `json:"cooldown_hours"                      validate:"gte=0"`
	MaxExecutionsPerEntity *int           `json:"max_executions_per_entity,omitempty" validate:"omitempty,gt=0"`
	ExecutionCount         int            `json:"execution_count"`
	LastExecutedAt         *time.Time     `json:"last_executed_at,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// CooldownWindow returns the minimum elapsed time before the rule may fire again
// for the same entity. Zero means no cooldown.
func (r *WorkflowRule) CooldownWindow() time.Duration {
	return time.Duration(r.CooldownHours) * time.Hour
}

// HasExecutionBudget reports whether the rule caps completed executions per entity.
func (r *WorkflowRule) HasExecutionBudget() bool {
	return r.MaxExecutionsPerEntity != nil
}
