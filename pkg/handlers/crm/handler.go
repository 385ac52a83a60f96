// Package crm implements the CRM-side actions (create_task, send_email,
// update_status, assign_to, add_tag). Each execution publishes an
// ActionRequested event carrying the decoded config; the CRM consumer applies
// the change.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/driftline/automaton/pkg/eventbus"
	"github.com/driftline/automaton/pkg/events"
	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/protocol"
)

// Factory creates Handler instances for one CRM action type.
type Factory struct {
	actionType models.ActionType
	bus        eventbus.EventBus
}

// NewFactory creates a factory for the given CRM action type.
func NewFactory(actionType models.ActionType, bus eventbus.EventBus) *Factory {
	return &Factory{actionType: actionType, bus: bus}
}

// Factories returns one factory per CRM-side action type.
func Factories(bus eventbus.EventBus) []*Factory {
	types := []models.ActionType{
		models.ActionCreateTask,
		models.ActionSendEmail,
		models.ActionUpdateStatus,
		models.ActionAssignTo,
		models.ActionAddTag,
	}

	factories := make([]*Factory, 0, len(types))
	for _, actionType := range types {
		factories = append(factories, NewFactory(actionType, bus))
	}

	return factories
}

func (f *Factory) ID() models.ActionType {
	return f.actionType
}

func (f *Factory) Create() (protocol.ActionHandler, error) {
	return &Handler{actionType: f.actionType, bus: f.bus}, nil
}

// Handler publishes the decoded action config as an ActionRequested event.
type Handler struct {
	actionType models.ActionType
	bus        eventbus.EventBus
}

func (h *Handler) Execute(ctx context.Context, config map[string]any, entity models.Entity, _ map[string]any, logger *slog.Logger) (any, error) {
	if h.bus == nil {
		return nil, fmt.Errorf("no event bus configured for %s", h.actionType)
	}

	decoded, err := models.DecodeActionConfig(h.actionType, config)
	if err != nil {
		return nil, err
	}

	payload, err := toPayload(decoded)
	if err != nil {
		return nil, err
	}

	request := events.ActionRequested{
		BaseEvent: events.BaseEvent{
			ID:         h.bus.GenerateID(),
			Type:       events.ActionRequestedEvent,
			Timestamp:  time.Now().UTC(),
			EntityType: entity.Type,
			EntityID:   entity.ID,
		},
		ActionType: h.actionType,
		Payload:    payload,
	}

	err = h.bus.Publish(ctx, entity.ID, request)
	if err != nil {
		return nil, fmt.Errorf("failed to publish action request: %w", err)
	}

	logger.InfoContext(ctx, "Action request published",
		"action_type", h.actionType,
		"entity_type", entity.Type,
		"entity_id", entity.ID,
	)

	return payload, nil
}

// toPayload flattens the typed config back into the wire map.
func toPayload(config any) (map[string]any, error) {
	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action config: %w", err)
	}

	var payload map[string]any

	err = json.Unmarshal(data, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal action config: %w", err)
	}

	return payload, nil
}
