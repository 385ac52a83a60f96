package engine

import (
	"context"
	"time"

	"github.com/driftline/automaton/pkg/eventbus"
	"github.com/driftline/automaton/pkg/events"
	"github.com/driftline/automaton/pkg/models"
)

// Event publishing is best effort: dispatch outcomes are already durable in
// the ledger, so a publish failure is logged and swallowed.

func (d *Dispatcher) publish(ctx context.Context, key string, event eventbus.Event) {
	if d.bus == nil {
		return
	}

	if err := d.bus.Publish(ctx, key, event); err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

func (d *Dispatcher) baseEvent(eventType events.EventType, rule *models.WorkflowRule, entity models.Entity) events.BaseEvent {
	return events.BaseEvent{
		ID:         generateEventID(d.bus),
		Type:       eventType,
		Timestamp:  d.now(),
		RuleID:     rule.ID,
		EntityType: entity.Type,
		EntityID:   entity.ID,
	}
}

func (d *Dispatcher) skipped(ctx context.Context, rule *models.WorkflowRule, triggerType models.TriggerType, entity models.Entity, reason models.OutcomeKind) models.RuleOutcome {
	d.publish(ctx, rule.ID, events.RuleSkipped{
		BaseEvent:   d.baseEvent(events.RuleSkippedEvent, rule, entity),
		TriggerType: triggerType,
		Reason:      reason,
	})

	return models.RuleOutcome{RuleID: rule.ID, Outcome: reason}
}

func (d *Dispatcher) publishStarted(ctx context.Context, rule *models.WorkflowRule, triggerType models.TriggerType, entity models.Entity, executionID string) {
	d.publish(ctx, rule.ID, events.ExecutionStarted{
		BaseEvent:   d.baseEvent(events.ExecutionStartedEvent, rule, entity),
		ExecutionID: executionID,
		TriggerType: triggerType,
	})
}

func (d *Dispatcher) publishTerminal(ctx context.Context, rule *models.WorkflowRule, entity models.Entity, executionID string, status models.ExecutionStatus, results []models.ActionResult, duration time.Duration) {
	if status == models.ExecutionStatusCompleted {
		d.publish(ctx, rule.ID, events.ExecutionCompleted{
			BaseEvent:   d.baseEvent(events.ExecutionCompletedEvent, rule, entity),
			ExecutionID: executionID,
			Result:      results,
			Duration:    duration,
		})

		return
	}

	d.publish(ctx, rule.ID, events.ExecutionFailed{
		BaseEvent:   d.baseEvent(events.ExecutionFailedEvent, rule, entity),
		ExecutionID: executionID,
		Result:      results,
		Duration:    duration,
	})
}

func generateEventID(bus eventbus.EventPublisher) string {
	if generator, ok := bus.(interface{ GenerateID() string }); ok {
		return generator.GenerateID()
	}

	return ""
}
