// Package events defines the event types published on the bus during rule
// dispatch.
package events

import (
	"time"

	"github.com/driftline/automaton/pkg/models"
)

type EventType string

// Topic carries every automaton event.
const Topic = "automaton.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "rule.execution.started"
	ExecutionCompletedEvent EventType = "rule.execution.completed"
	ExecutionFailedEvent    EventType = "rule.execution.failed"
	RuleSkippedEvent        EventType = "rule.skipped"

	// Catalog lifecycle events.
	RuleCreatedEvent EventType = "rule.created"
	RuleUpdatedEvent EventType = "rule.updated"
	RuleDeletedEvent EventType = "rule.deleted"
	RuleToggledEvent EventType = "rule.toggled"

	// Emitted by the notify_user action handler.
	UserNotificationEvent EventType = "user.notification"

	// Emitted by the CRM action handlers; the CRM consumer applies the
	// requested change and fans out by action type.
	ActionRequestedEvent EventType = "action.requested"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	RuleID     string         `json:"rule_id,omitempty"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   string         `json:"entity_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string             `json:"execution_id"`
	TriggerType models.TriggerType `json:"trigger_type"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string                `json:"execution_id"`
	Result      []models.ActionResult `json:"result,omitempty"`
	Duration    time.Duration         `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string                `json:"execution_id"`
	Result      []models.ActionResult `json:"result,omitempty"`
	Duration    time.Duration         `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type RuleSkipped struct {
	BaseEvent

	TriggerType models.TriggerType `json:"trigger_type"`
	Reason      models.OutcomeKind `json:"reason"`
}

func (e RuleSkipped) GetType() EventType {
	return RuleSkippedEvent
}

type RuleCreated struct {
	BaseEvent

	OwnerID string `json:"owner_id"`
}

func (e RuleCreated) GetType() EventType {
	return RuleCreatedEvent
}

type RuleUpdated struct {
	BaseEvent

	OwnerID string `json:"owner_id"`
}

func (e RuleUpdated) GetType() EventType {
	return RuleUpdatedEvent
}

type RuleDeleted struct {
	BaseEvent
}

func (e RuleDeleted) GetType() EventType {
	return RuleDeletedEvent
}

type RuleToggled struct {
	BaseEvent

	IsActive bool `json:"is_active"`
}

func (e RuleToggled) GetType() EventType {
	return RuleToggledEvent
}

type UserNotification struct {
	BaseEvent

	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (e UserNotification) GetType() EventType {
	return UserNotificationEvent
}

type ActionRequested struct {
	BaseEvent

	ActionType models.ActionType `json:"action_type"`
	Payload    map[string]any    `json:"payload"`
}

func (e ActionRequested) GetType() EventType {
	return ActionRequestedEvent
}
