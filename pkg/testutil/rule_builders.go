// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/driftline/automaton/pkg/models"
)

// CreateTestRule creates a test WorkflowRule with default values that can be overridden.
func CreateTestRule(overrides ...func(*models.WorkflowRule)) *models.WorkflowRule {
	rule := &models.WorkflowRule{
		ID:          uuid.New().String(),
		OwnerID:     "test-user",
		Name:        "Test Rule",
		IsActive:    true,
		TriggerType: models.TriggerQuoteSent,
		Actions: []models.Action{
			{Type: models.ActionLogActivity, Config: map[string]any{"message": "test"}},
		},
	}

	for _, override := range overrides {
		override(rule)
	}

	return rule
}

// WithTrigger sets the trigger type and its configuration.
func WithTrigger(triggerType models.TriggerType, config map[string]any) func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.TriggerType = triggerType
		r.TriggerConfig = config
	}
}

// WithConditions sets the rule conditions.
func WithConditions(conditions ...models.Condition) func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.Conditions = conditions
	}
}

// WithActions sets the rule actions.
func WithActions(actions ...models.Action) func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.Actions = actions
	}
}

// WithCooldown sets the cooldown window in hours.
func WithCooldown(hours int) func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.CooldownHours = hours
	}
}

// WithMaxExecutions caps completed executions per entity.
func WithMaxExecutions(max int) func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.MaxExecutionsPerEntity = &max
	}
}

// WithInactive marks the rule inactive.
func WithInactive() func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.IsActive = false
	}
}

// CreateTestEntity creates a test Entity with default values that can be overridden.
func CreateTestEntity(overrides ...func(*models.Entity)) models.Entity {
	entity := models.Entity{
		ID:   uuid.New().String(),
		Type: "opportunity",
		Fields: map[string]any{
			"opportunity_value": 60000,
			"opportunity_stage": "proposal",
		},
	}

	for _, override := range overrides {
		override(&entity)
	}

	return entity
}

// WithFields sets the entity fields.
func WithFields(fields map[string]any) func(*models.Entity) {
	return func(e *models.Entity) {
		e.Fields = fields
	}
}
