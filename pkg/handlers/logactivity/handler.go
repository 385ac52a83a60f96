// Package logactivity implements the log_activity action: it records a note on
// the entity's activity stream via structured logging.
package logactivity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/protocol"
)

// Factory creates Handler instances.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() models.ActionType {
	return models.ActionLogActivity
}

func (*Factory) Create() (protocol.ActionHandler, error) {
	return &Handler{}, nil
}

// Handler logs the configured message with entity context.
type Handler struct{}

func (h *Handler) Execute(ctx context.Context, config map[string]any, entity models.Entity, _ map[string]any, logger *slog.Logger) (any, error) {
	decoded, err := models.DecodeActionConfig(models.ActionLogActivity, config)
	if err != nil {
		return nil, err
	}

	cfg, ok := decoded.(models.LogActivityConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", decoded)
	}

	logger = logger.With(
		"action_type", models.ActionLogActivity,
		"entity_type", entity.Type,
		"entity_id", entity.ID,
	)

	switch cfg.Level {
	case "debug":
		logger.DebugContext(ctx, cfg.Message)
	case "warn", "warning":
		logger.WarnContext(ctx, cfg.Message)
	case "error":
		logger.ErrorContext(ctx, cfg.Message)
	default:
		logger.InfoContext(ctx, cfg.Message)
	}

	return map[string]any{"message": cfg.Message}, nil
}
