// Package registry maps action types to their handler factories.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/protocol"
)

// Registry holds the handler factories for every registered action type.
type Registry struct {
	logger    *slog.Logger
	factories map[models.ActionType]protocol.HandlerFactory
}

// NewRegistry creates an empty handler registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.ActionType]protocol.HandlerFactory),
	}
}

// RegisterHandler registers a handler factory under its action type.
// Registering the same type twice replaces the earlier factory.
func (r *Registry) RegisterHandler(factory protocol.HandlerFactory) {
	if _, exists := r.factories[factory.ID()]; exists {
		r.logger.Warn("Replacing registered action handler", "action_type", factory.ID())
	}

	r.factories[factory.ID()] = factory
}

// CreateHandler creates a handler for the given action type.
func (r *Registry) CreateHandler(actionType models.ActionType) (protocol.ActionHandler, error) {
	factory, ok := r.factories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	return factory.Create()
}

// HealthCheck reports whether the registry covers the full action catalog.
func (r *Registry) HealthCheck() (string, bool) {
	missing := make([]models.ActionType, 0)

	for _, actionType := range models.ActionTypes() {
		if _, ok := r.factories[actionType]; !ok {
			missing = append(missing, actionType)
		}
	}

	if len(missing) > 0 {
		return fmt.Sprintf("Registry is missing handlers for %v", missing), false
	}

	return fmt.Sprintf("Registry is healthy with %d handlers", len(r.factories)), true
}

// RegisteredTypes returns every registered action type.
func (r *Registry) RegisteredTypes() []models.ActionType {
	types := make([]models.ActionType, 0, len(r.factories))
	for actionType := range r.factories {
		types = append(types, actionType)
	}

	return types
}
