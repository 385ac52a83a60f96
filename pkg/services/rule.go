package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/driftline/automaton/pkg/eventbus"
	"github.com/driftline/automaton/pkg/events"
	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/persistence"
	"github.com/driftline/automaton/pkg/schemas"
)

// ErrRuleNotFound is returned when a rule is not found.
var ErrRuleNotFound = persistence.ErrRuleNotFound

// Rule manages the rule catalog: validation, persistence, and catalog change
// events. It never executes rules; that is the dispatcher's job.
type Rule struct {
	persistence persistence.Persistence
	validator   *validator.Validate
	bus         eventbus.EventPublisher
	logger      *slog.Logger
}

// NewRule creates a new rule catalog service. The event bus is optional;
// without one, catalog changes are not announced.
func NewRule(p persistence.Persistence, bus eventbus.EventPublisher, logger *slog.Logger) *Rule {
	return &Rule{
		persistence: p,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		bus:         bus,
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Rule) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateRuleRequest carries the client-supplied fields for a new rule.
type CreateRuleRequest struct {
	OwnerID                string             `json:"owner_id"                  validate:"required"`
	Name                   string             `json:"name"                      validate:"required,min=3"`
	Description            string             `json:"description"`
	TriggerType            models.TriggerType `json:"trigger_type"              validate:"required"`
	TriggerConfig          map[string]any     `json:"trigger_config"`
	Conditions             []models.Condition `json:"conditions"`
	Actions                []models.Action    `json:"actions"                   validate:"required,min=1"`
	CooldownHours          int                `json:"cooldown_hours"            validate:"gte=0"`
	MaxExecutionsPerEntity *int               `json:"max_executions_per_entity" validate:"omitempty,gt=0"`
}

// CreateRule validates and persists a new rule. New rules start active.
func (s *Rule) CreateRule(ctx context.Context, req CreateRuleRequest) (*models.WorkflowRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	rule := &models.WorkflowRule{
		OwnerID:                req.OwnerID,
		Name:                   req.Name,
		Description:            req.Description,
		IsActive:               true,
		TriggerType:            req.TriggerType,
		TriggerConfig:          req.TriggerConfig,
		Conditions:             req.Conditions,
		Actions:                req.Actions,
		CooldownHours:          req.CooldownHours,
		MaxExecutionsPerEntity: req.MaxExecutionsPerEntity,
	}

	if err := s.validateRule(rule); err != nil {
		return nil, err
	}

	if err := s.persistence.RuleRepository().Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	s.publish(ctx, rule.ID, events.RuleCreated{
		BaseEvent: s.baseEvent(events.RuleCreatedEvent, rule.ID),
		OwnerID:   rule.OwnerID,
	})

	return rule, nil
}

// UpdateRuleRequest carries the mutable fields of an existing rule. Nil
// pointers leave the current value untouched.
type UpdateRuleRequest struct {
	Name                   *string             `json:"name"                      validate:"omitempty,min=3"`
	Description            *string             `json:"description"`
	TriggerType            *models.TriggerType `json:"trigger_type"`
	TriggerConfig          *map[string]any     `json:"trigger_config"`
	Conditions             *[]models.Condition `json:"conditions"`
	Actions                *[]models.Action    `json:"actions"                   validate:"omitempty,min=1"`
	CooldownHours          *int                `json:"cooldown_hours"            validate:"omitempty,gte=0"`
	MaxExecutionsPerEntity *int                `json:"max_executions_per_entity" validate:"omitempty,gt=0"`
}

// UpdateRule applies a partial update to a rule and re-validates the result.
// Stats fields and active state are not touched here.
func (s *Rule) UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*models.WorkflowRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	rule, err := s.persistence.RuleRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}

	if req.Description != nil {
		rule.Description = *req.Description
	}

	if req.TriggerType != nil {
		rule.TriggerType = *req.TriggerType
		// A new trigger type invalidates the old config unless one is supplied.
		if req.TriggerConfig == nil {
			rule.TriggerConfig = nil
		}
	}

	if req.TriggerConfig != nil {
		rule.TriggerConfig = *req.TriggerConfig
	}

	if req.Conditions != nil {
		rule.Conditions = *req.Conditions
	}

	if req.Actions != nil {
		rule.Actions = *req.Actions
	}

	if req.CooldownHours != nil {
		rule.CooldownHours = *req.CooldownHours
	}

	if req.MaxExecutionsPerEntity != nil {
		rule.MaxExecutionsPerEntity = req.MaxExecutionsPerEntity
	}

	if err := s.validateRule(rule); err != nil {
		return nil, err
	}

	if err := s.persistence.RuleRepository().Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	s.publish(ctx, rule.ID, events.RuleUpdated{
		BaseEvent: s.baseEvent(events.RuleUpdatedEvent, rule.ID),
		OwnerID:   rule.OwnerID,
	})

	return rule, nil
}

// GetRule fetches a single rule by ID.
func (s *Rule) GetRule(ctx context.Context, id string) (*models.WorkflowRule, error) {
	return s.persistence.RuleRepository().GetByID(ctx, id)
}

// DeleteRule removes a rule together with its execution history.
func (s *Rule) DeleteRule(ctx context.Context, id string) error {
	if err := s.persistence.RuleRepository().Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, id, events.RuleDeleted{
		BaseEvent: s.baseEvent(events.RuleDeletedEvent, id),
	})

	return nil
}

// SetRuleActive toggles a rule without touching its definition. Deactivation
// is the kill switch: an inactive rule is skipped before any guard runs.
func (s *Rule) SetRuleActive(ctx context.Context, id string, active bool) (*models.WorkflowRule, error) {
	if err := s.persistence.RuleRepository().SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	rule, err := s.persistence.RuleRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, id, events.RuleToggled{
		BaseEvent: s.baseEvent(events.RuleToggledEvent, id),
		IsActive:  active,
	})

	return rule, nil
}

// ListRulesRequest contains options for listing rules.
type ListRulesRequest struct {
	// Pagination
	Limit  int `validate:"min=0,max=100"`
	Offset int `validate:"min=0"`

	// Filtering
	OwnerID     string
	TriggerType *models.TriggerType
	ActiveOnly  bool

	// Sorting
	SortBy    string
	SortOrder string
}

// ListRulesResponse contains the result of listing rules.
type ListRulesResponse struct {
	Rules       []*models.WorkflowRule `json:"rules"`
	TotalCount  int                    `json:"total_count"`
	HasNextPage bool                   `json:"has_next_page"`
}

// ListRules retrieves rules with filtering, sorting, and pagination.
func (s *Rule) ListRules(ctx context.Context, req ListRulesRequest) (*ListRulesResponse, error) {
	if err := s.validateListRulesRequest(&req); err != nil {
		return nil, err
	}

	result, err := s.persistence.RuleRepository().ListRules(ctx, persistence.ListRulesOptions{
		OwnerID:     req.OwnerID,
		TriggerType: req.TriggerType,
		ActiveOnly:  req.ActiveOnly,
		Limit:       req.Limit,
		Offset:      req.Offset,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		if persistence.IsInvalidSortField(err) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	return &ListRulesResponse{
		Rules:       result.Rules,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

func (s *Rule) validateListRulesRequest(req *ListRulesRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		return NewValidationError("ListRules", "INVALID_OFFSET", "offset must not be negative", ErrInvalidRequest)
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	switch req.SortOrder {
	case "":
		req.SortOrder = "desc"
	case "asc", "desc":
	default:
		return NewValidationError("ListRules", "INVALID_SORT_ORDER",
			fmt.Sprintf("sort order %q is not supported", req.SortOrder), ErrInvalidSortOrder)
	}

	return nil
}

// validateRule enforces the catalog invariants a struct tag cannot express:
// closed trigger, condition, and action catalogs plus per-type config shape.
func (s *Rule) validateRule(rule *models.WorkflowRule) error {
	if rule == nil {
		return ErrRuleNil
	}

	if !rule.TriggerType.Valid() {
		return NewValidationError("validateRule", "INVALID_TRIGGER_TYPE",
			fmt.Sprintf("trigger type %q is not supported", rule.TriggerType), ErrInvalidTriggerType)
	}

	if err := schemas.ValidateTriggerConfig(rule.TriggerType, rule.TriggerConfig); err != nil {
		return NewValidationError("validateRule", "INVALID_TRIGGER_CONFIG",
			err.Error(), errors.Join(ErrInvalidTriggerConf, err))
	}

	if _, err := models.DecodeTriggerConfig(rule.TriggerType, rule.TriggerConfig); err != nil {
		return NewValidationError("validateRule", "INVALID_TRIGGER_CONFIG",
			err.Error(), errors.Join(ErrInvalidTriggerConf, err))
	}

	for i, cond := range rule.Conditions {
		if err := s.validateCondition(cond); err != nil {
			return NewValidationError("validateRule", "INVALID_CONDITION",
				fmt.Sprintf("condition %d: %v", i, err), errors.Join(ErrInvalidCondition, err))
		}
	}

	if len(rule.Actions) == 0 {
		return ErrActionsRequired
	}

	for i, action := range rule.Actions {
		if !action.Type.Valid() {
			return NewValidationError("validateRule", "INVALID_ACTION_TYPE",
				fmt.Sprintf("action %d: type %q is not supported", i, action.Type), ErrInvalidActionType)
		}

		if err := schemas.ValidateAction(action); err != nil {
			return NewValidationError("validateRule", "INVALID_ACTION_CONFIG",
				fmt.Sprintf("action %d: %v", i, err), errors.Join(ErrInvalidActionConfig, err))
		}

		if _, err := models.DecodeActionConfig(action.Type, action.Config); err != nil {
			return NewValidationError("validateRule", "INVALID_ACTION_CONFIG",
				fmt.Sprintf("action %d: %v", i, err), errors.Join(ErrInvalidActionConfig, err))
		}
	}

	return nil
}

func (s *Rule) validateCondition(cond models.Condition) error {
	if !cond.Field.Valid() {
		return fmt.Errorf("field %q is not supported", cond.Field)
	}

	if !cond.Operator.Valid() {
		return fmt.Errorf("operator %q is not supported", cond.Operator)
	}

	fieldType, _ := cond.Field.Type()

	if cond.Operator.Ordering() && fieldType != models.FieldTypeNumber {
		return fmt.Errorf("operator %q requires a number field, %q is %s", cond.Operator, cond.Field, fieldType)
	}

	contains := cond.Operator == models.OperatorContains || cond.Operator == models.OperatorNotContains
	if contains && fieldType != models.FieldTypeArray && fieldType != models.FieldTypeText {
		return fmt.Errorf("operator %q requires an array or text field, %q is %s", cond.Operator, cond.Field, fieldType)
	}

	return nil
}

func (s *Rule) baseEvent(eventType events.EventType, ruleID string) events.BaseEvent {
	event := events.BaseEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RuleID:    ruleID,
	}

	if generator, ok := s.bus.(interface{ GenerateID() string }); ok {
		event.ID = generator.GenerateID()
	}

	return event
}

// publish announces a catalog change keyed by rule ID so consumers see
// changes to one rule in order. Failures are logged, never surfaced: the
// catalog write already succeeded.
func (s *Rule) publish(ctx context.Context, ruleID string, event eventbus.Event) {
	if s.bus == nil {
		return
	}

	if err := s.bus.Publish(ctx, ruleID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish catalog event",
			"event_type", event.GetType(), "error", err)
	}
}
