package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/otelhelper"
)

// Fire runs every active rule for the trigger type against the entity and
// returns one outcome per rule. Rules are evaluated concurrently; a failure
// or panic inside one rule's pipeline becomes that rule's error outcome and
// never affects its siblings.
func (d *Dispatcher) Fire(ctx context.Context, triggerType models.TriggerType, entity models.Entity, eventCtx map[string]any) ([]models.RuleOutcome, error) {
	if !triggerType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTriggerType, triggerType)
	}

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "automaton.fire",
		attribute.String(otelhelper.TriggerTypeKey, string(triggerType)),
		attribute.String(otelhelper.EntityTypeKey, entity.Type),
		attribute.String(otelhelper.EntityIDKey, entity.ID),
	)
	defer span.End()

	rules, err := d.rules.ListActive(ctx, triggerType)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, wrapFireError("failed to list active rules", err)
	}

	d.logger.InfoContext(ctx, "Dispatching trigger",
		"trigger_type", triggerType,
		"entity_type", entity.Type,
		"entity_id", entity.ID,
		"rule_count", len(rules),
	)

	outcomes := make([]models.RuleOutcome, len(rules))

	var wg sync.WaitGroup

	for i, rule := range rules {
		wg.Add(1)

		go func(i int, rule *models.WorkflowRule) {
			defer wg.Done()

			outcomes[i] = d.dispatchRule(ctx, rule, triggerType, entity, eventCtx)
		}(i, rule)
	}

	wg.Wait()

	span.SetAttributes(attribute.Int("automaton.rule.count", len(rules)))

	return outcomes, nil
}

// dispatchRule is the per-rule failure boundary: every error and panic inside
// the pipeline is converted into this rule's outcome.
func (d *Dispatcher) dispatchRule(ctx context.Context, rule *models.WorkflowRule, triggerType models.TriggerType, entity models.Entity, eventCtx map[string]any) (outcome models.RuleOutcome) {
	logger := d.logger.With(
		"rule_id", rule.ID,
		"trigger_type", triggerType,
		"entity_type", entity.Type,
		"entity_id", entity.ID,
	)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Panic during rule dispatch", "panic", r)

			outcome = models.RuleOutcome{
				RuleID:  rule.ID,
				Outcome: models.OutcomeError,
				Error:   fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "automaton.rule",
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.RuleNameKey, rule.Name),
		attribute.String(otelhelper.TriggerTypeKey, string(triggerType)),
	)
	defer span.End()

	outcome = d.runPipeline(ctx, logger, rule, triggerType, entity, eventCtx)

	span.SetAttributes(attribute.String(otelhelper.OutcomeKey, string(outcome.Outcome)))

	if outcome.Outcome == models.OutcomeError {
		otelhelper.SetError(span, errors.New(outcome.Error))
	}

	return outcome
}
