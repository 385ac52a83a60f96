package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/otelhelper"
)

// runActions executes the rule's actions strictly in order. A handler failure,
// timeout or panic is recorded for that action and never aborts the loop;
// side effects of earlier actions are not rolled back.
func (d *Dispatcher) runActions(ctx context.Context, logger *slog.Logger, rule *models.WorkflowRule, entity models.Entity, eventCtx map[string]any) []models.ActionResult {
	results := make([]models.ActionResult, 0, len(rule.Actions))

	for i, action := range rule.Actions {
		err := d.runAction(ctx, logger, action, entity, eventCtx)

		result := models.ActionResult{ActionType: action.Type, Success: err == nil}

		if err != nil {
			result.Error = err.Error()

			logger.ErrorContext(ctx, "Action failed",
				"action_type", action.Type,
				"action_index", i,
				"error", err,
			)
		}

		results = append(results, result)
	}

	return results
}

// runAction invokes one handler under the per-action timeout, converting a
// panic into an error.
func (d *Dispatcher) runAction(ctx context.Context, logger *slog.Logger, action models.Action, entity models.Entity, eventCtx map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.actionTimeout)
	defer cancel()

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "automaton.action",
		attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
		attribute.String(otelhelper.EntityIDKey, entity.ID),
	)
	defer span.End()

	handler, err := d.registry.CreateHandler(action.Type)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()

		_, execErr := handler.Execute(ctx, action.Config, entity, eventCtx, logger)
		done <- execErr
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		// Timeout counts as an ordinary handler error.
		err = fmt.Errorf("action timed out: %w", ctx.Err())
	}

	if err != nil {
		otelhelper.SetError(span, err)
	}

	return err
}
