package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/driftline/automaton/pkg/conditions"
	"github.com/driftline/automaton/pkg/lock"
	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/persistence"
)

// runPipeline evaluates one rule against the event: trigger-config match,
// idempotency guards, conditions, atomic claim, action dispatch, terminal
// ledger update.
func (d *Dispatcher) runPipeline(ctx context.Context, logger *slog.Logger, rule *models.WorkflowRule, triggerType models.TriggerType, entity models.Entity, eventCtx map[string]any) models.RuleOutcome {
	// The rule snapshot may have been deactivated between the catalog read
	// and this evaluation.
	if !rule.IsActive {
		return d.skipped(ctx, rule, triggerType, entity, models.OutcomeSkippedInactive)
	}

	triggerConfig, err := models.DecodeTriggerConfig(rule.TriggerType, rule.TriggerConfig)
	if err != nil {
		return d.errorOutcome(ctx, logger, rule, "invalid trigger config", err)
	}

	if !triggerConfig.Matches(eventCtx) {
		return d.skipped(ctx, rule, triggerType, entity, models.OutcomeSkippedTriggerConfig)
	}

	guarded := rule.CooldownHours > 0 || rule.HasExecutionBudget()

	if d.lock != nil && guarded {
		lease, err := d.lock.Acquire(ctx, rule.ID, entity.ID, d.lockTTL)
		if err != nil {
			if errors.Is(err, lock.ErrLockHeld) {
				// Another dispatcher is working on this pair right now; the
				// loser of the race reports a cooldown skip, same as losing
				// the ledger claim.
				return d.skipped(ctx, rule, triggerType, entity, models.OutcomeSkippedCooldown)
			}

			return d.errorOutcome(ctx, logger, rule, "failed to acquire entity lock", err)
		}

		defer func() {
			if err := lease.Release(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to release entity lock", "error", err)
			}
		}()
	}

	// Advisory guard reads. The atomic claim below re-checks both, but these
	// keep the skip reasons ahead of condition evaluation.
	if skip, err := d.checkGuards(ctx, rule, entity); err != nil {
		return d.errorOutcome(ctx, logger, rule, "idempotency guard check failed", err)
	} else if skip != "" {
		return d.skipped(ctx, rule, triggerType, entity, skip)
	}

	matched, err := conditions.Evaluate(rule.Conditions, entity, eventCtx)
	if err != nil {
		return d.errorOutcome(ctx, logger, rule, "condition evaluation failed", err)
	}

	if !matched {
		return d.skipped(ctx, rule, triggerType, entity, models.OutcomeSkippedConditions)
	}

	startedAt := d.now()

	claim, err := d.ledger.Claim(ctx, rule, entity.Type, entity.ID, startedAt)
	if err != nil {
		// Fail closed: no unaudited side effects.
		return d.errorOutcome(ctx, logger, rule, "ledger claim failed", err)
	}

	if !claim.Accepted() {
		switch claim.Rejection {
		case persistence.ClaimRejectedMaxExecutions:
			return d.skipped(ctx, rule, triggerType, entity, models.OutcomeSkippedMaxExecutions)
		default:
			return d.skipped(ctx, rule, triggerType, entity, models.OutcomeSkippedCooldown)
		}
	}

	d.publishStarted(ctx, rule, triggerType, entity, claim.RecordID)

	logger.InfoContext(ctx, "Executing rule actions",
		"execution_id", claim.RecordID,
		"action_count", len(rule.Actions),
	)

	results := d.runActions(ctx, logger, rule, entity, eventCtx)

	status := models.ExecutionStatusCompleted

	for _, result := range results {
		if !result.Success {
			status = models.ExecutionStatusFailed

			break
		}
	}

	completedAt := d.now()

	err = d.ledger.Complete(ctx, claim.RecordID, status, results, completedAt)
	if err != nil {
		// The actions ran but the terminal write failed; surface it so the
		// author sees the audit gap in the outcome rather than a silent
		// success.
		outcome := d.errorOutcome(ctx, logger, rule, "ledger complete failed", err)
		outcome.ExecutionID = claim.RecordID

		return outcome
	}

	d.publishTerminal(ctx, rule, entity, claim.RecordID, status, results, completedAt.Sub(startedAt))

	if status == models.ExecutionStatusCompleted {
		if err := d.rules.RecordExecution(ctx, rule.ID, completedAt); err != nil {
			// The execution itself is durable; a stat bump failure only
			// skews the counters.
			logger.ErrorContext(ctx, "Failed to update rule execution stats", "error", err)
		}
	}

	logger.InfoContext(ctx, "Rule execution finished",
		"execution_id", claim.RecordID,
		"status", status,
	)

	return models.RuleOutcome{
		RuleID:      rule.ID,
		Outcome:     models.OutcomeExecuted,
		Status:      status,
		ExecutionID: claim.RecordID,
	}
}

// checkGuards applies the advisory cooldown and budget reads. It returns the
// skip reason, or empty when the rule may proceed.
func (d *Dispatcher) checkGuards(ctx context.Context, rule *models.WorkflowRule, entity models.Entity) (models.OutcomeKind, error) {
	if window := rule.CooldownWindow(); window > 0 {
		recent, err := d.ledger.HasRecentStart(ctx, rule.ID, entity.ID, d.now().Add(-window))
		if err != nil {
			return "", fmt.Errorf("cooldown check: %w", err)
		}

		if recent {
			return models.OutcomeSkippedCooldown, nil
		}
	}

	if rule.HasExecutionBudget() {
		completed, err := d.ledger.CountCompleted(ctx, rule.ID, entity.ID)
		if err != nil {
			return "", fmt.Errorf("max executions check: %w", err)
		}

		if completed >= *rule.MaxExecutionsPerEntity {
			return models.OutcomeSkippedMaxExecutions, nil
		}
	}

	return "", nil
}

func (d *Dispatcher) errorOutcome(ctx context.Context, logger *slog.Logger, rule *models.WorkflowRule, msg string, err error) models.RuleOutcome {
	logger.ErrorContext(ctx, "Rule dispatch failed", "reason", msg, "error", err)

	return models.RuleOutcome{
		RuleID:  rule.ID,
		Outcome: models.OutcomeError,
		Error:   fmt.Sprintf("%s: %v", msg, err),
	}
}
