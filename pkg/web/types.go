package web

import (
	"github.com/driftline/automaton/pkg/models"
)

// FireRequest is an inbound business event: something happened to an entity
// and every matching rule should be considered.
type FireRequest struct {
	TriggerType  models.TriggerType `json:"trigger_type" validate:"required"`
	Entity       models.Entity      `json:"entity"       validate:"required"`
	EventContext map[string]any     `json:"event_context,omitempty"`
}

// FireResponse reports the per-rule outcomes of one fired event.
type FireResponse struct {
	TriggerType models.TriggerType   `json:"trigger_type"`
	EntityID    string               `json:"entity_id"`
	Outcomes    []models.RuleOutcome `json:"outcomes"`
}

// ExecutionHistoryResponse is one page of a rule's execution ledger.
type ExecutionHistoryResponse struct {
	RuleID     string                    `json:"rule_id"`
	Executions []*models.ExecutionRecord `json:"executions"`
}
