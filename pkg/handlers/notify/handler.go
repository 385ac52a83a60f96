// Package notify implements the notify_user action: it publishes a
// UserNotification event for downstream delivery channels to pick up.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/driftline/automaton/pkg/eventbus"
	"github.com/driftline/automaton/pkg/events"
	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/protocol"
)

// Factory creates Handler instances bound to the event bus.
type Factory struct {
	bus eventbus.EventBus
}

func NewFactory(bus eventbus.EventBus) *Factory {
	return &Factory{bus: bus}
}

func (*Factory) ID() models.ActionType {
	return models.ActionNotifyUser
}

func (f *Factory) Create() (protocol.ActionHandler, error) {
	return &Handler{bus: f.bus}, nil
}

// Handler publishes the notification on the event bus.
type Handler struct {
	bus eventbus.EventBus
}

func (h *Handler) Execute(ctx context.Context, config map[string]any, entity models.Entity, _ map[string]any, logger *slog.Logger) (any, error) {
	if h.bus == nil {
		return nil, fmt.Errorf("no event bus configured for %s", models.ActionNotifyUser)
	}

	decoded, err := models.DecodeActionConfig(models.ActionNotifyUser, config)
	if err != nil {
		return nil, err
	}

	cfg, ok := decoded.(models.NotifyUserConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", decoded)
	}

	notification := events.UserNotification{
		BaseEvent: events.BaseEvent{
			ID:         h.bus.GenerateID(),
			Type:       events.UserNotificationEvent,
			Timestamp:  time.Now().UTC(),
			EntityType: entity.Type,
			EntityID:   entity.ID,
		},
		UserID:  cfg.UserID,
		Message: cfg.Message,
	}

	err = h.bus.Publish(ctx, cfg.UserID, notification)
	if err != nil {
		return nil, fmt.Errorf("failed to publish notification: %w", err)
	}

	logger.InfoContext(ctx, "User notification published",
		"action_type", models.ActionNotifyUser,
		"user_id", cfg.UserID,
		"entity_id", entity.ID,
	)

	return map[string]any{"user_id": cfg.UserID}, nil
}
