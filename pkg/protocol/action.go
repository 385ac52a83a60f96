// Package protocol defines the contracts between the dispatch engine and
// concrete action implementations.
package protocol

import (
	"context"
	"log/slog"

	"github.com/driftline/automaton/pkg/models"
)

// ActionHandler executes one action type against an entity. The config map is
// the rule author's action configuration, already validated at the API
// boundary; handlers still decode it defensively because stored rules outlive
// catalog versions.
type ActionHandler interface {
	Execute(ctx context.Context, config map[string]any, entity models.Entity, eventCtx map[string]any, logger *slog.Logger) (any, error)
}

// HandlerFactory creates ActionHandler instances for one action type.
type HandlerFactory interface {
	ID() models.ActionType
	Create() (ActionHandler, error)
}
