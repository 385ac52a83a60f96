// Package web provides HTTP handlers and REST API endpoints for rule management.
package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/driftline/automaton/pkg/engine"
	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/registry"
	"github.com/driftline/automaton/pkg/services"
)

type APIHandlers struct {
	ruleService      *services.Rule
	executionService *services.Execution
	dispatcher       *engine.Dispatcher
	validator        *validator.Validate
	registry         *registry.Registry
}

func NewAPIHandlers(
	ruleService *services.Rule,
	executionService *services.Execution,
	dispatcher *engine.Dispatcher,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		ruleService:      ruleService,
		executionService: executionService,
		dispatcher:       dispatcher,
		validator:        validator,
		registry:         registry,
	}
}

// Register mounts every API route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	rules := app.Group("/rules")
	rules.Get("/", h.GetRules)
	rules.Post("/", h.CreateRule)
	rules.Get("/:id", h.GetRule)
	rules.Patch("/:id", h.UpdateRule)
	rules.Delete("/:id", h.DeleteRule)
	rules.Post("/:id/activate", h.ActivateRule)
	rules.Post("/:id/deactivate", h.DeactivateRule)
	rules.Get("/:id/executions", h.GetRuleExecutions)

	app.Get("/executions/:id", h.GetExecution)
	app.Post("/fire", h.Fire)
	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	req, err := h.parseListRulesRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.ruleService.ListRules(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"rules":         result.Rules,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListRulesRequest parses and validates query parameters for listing rules.
func (h *APIHandlers) parseListRulesRequest(c fiber.Ctx) (*services.ListRulesRequest, error) {
	req := &services.ListRulesRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.OwnerID = c.Query("owner_id")

	if triggerStr := c.Query("trigger_type"); triggerStr != "" {
		triggerType := models.TriggerType(triggerStr)
		req.TriggerType = &triggerType
	}

	if activeStr := c.Query("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return nil, err
		}

		req.ActiveOnly = active
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	rule, err := h.ruleService.GetRule(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req services.CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.ruleService.CreateRule(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	var req services.UpdateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.ruleService.UpdateRule(c.Context(), id, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	if err := h.ruleService.DeleteRule(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateRule(c fiber.Ctx) error {
	return h.setRuleActive(c, true)
}

func (h *APIHandlers) DeactivateRule(c fiber.Ctx) error {
	return h.setRuleActive(c, false)
}

func (h *APIHandlers) setRuleActive(c fiber.Ctx, active bool) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	rule, err := h.ruleService.SetRuleActive(c.Context(), id, active)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) GetRuleExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit: "+err.Error())
		}

		limit = parsed
	}

	records, err := h.executionService.ListExecutions(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ExecutionHistoryResponse{
		RuleID:     id,
		Executions: records,
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	record, err := h.executionService.GetExecution(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(record)
}

// Fire accepts a business event and dispatches it against the rule catalog.
// The response carries one outcome per considered rule.
func (h *APIHandlers) Fire(c fiber.Ctx) error {
	var req FireRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	outcomes, err := h.dispatcher.Fire(c.Context(), req.TriggerType, req.Entity, req.EventContext)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownTriggerType) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}

	return c.JSON(FireResponse{
		TriggerType: req.TriggerType,
		EntityID:    req.Entity.ID,
		Outcomes:    outcomes,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.ruleService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Automaton API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Automaton API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
