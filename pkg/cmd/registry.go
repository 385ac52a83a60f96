// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/driftline/automaton/pkg/eventbus"
	"github.com/driftline/automaton/pkg/handlers/crm"
	"github.com/driftline/automaton/pkg/handlers/logactivity"
	"github.com/driftline/automaton/pkg/handlers/notify"
	"github.com/driftline/automaton/pkg/registry"
)

// NewRegistry creates a handler registry covering the full action catalog.
// CRM-side actions and user notifications publish through the event bus.
func NewRegistry(logger *slog.Logger, bus eventbus.EventBus) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterHandler(logactivity.NewFactory())
	reg.RegisterHandler(notify.NewFactory(bus))

	for _, factory := range crm.Factories(bus) {
		reg.RegisterHandler(factory)
	}

	return reg
}
