// Package main provides the Automaton API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel/trace"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/driftline/automaton/pkg/engine"
	"github.com/driftline/automaton/pkg/eventbus"
	"github.com/driftline/automaton/pkg/lock"
	"github.com/driftline/automaton/pkg/persistence"
	"github.com/driftline/automaton/pkg/registry"
	"github.com/driftline/automaton/pkg/services"
	"github.com/driftline/automaton/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	entityLock  lock.EntityLock
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	entityLock lock.EntityLock,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		entityLock:  entityLock,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() (*fiber.App, error) {
	ruleService := services.NewRule(a.persistence, a.eventBus, a.logger)
	executionService := services.NewExecution(a.persistence, a.logger)

	dispatcher, err := engine.NewDispatcher(engine.Config{
		Rules:    a.persistence.RuleRepository(),
		Ledger:   a.persistence.ExecutionRepository(),
		Registry: a.registry,
		Logger:   a.logger,
		Bus:      a.eventBus,
		Lock:     a.entityLock,
		Tracer:   a.tracer,
	})
	if err != nil {
		return nil, err
	}

	handlers := web.NewAPIHandlers(ruleService, executionService, dispatcher, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Automaton API")
	})

	handlers.Register(app)

	return app, nil
}

func (a *API) Start(port int) error {
	app, err := a.App()
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
