// Package schemas validates raw trigger and action configuration maps
// against JSON Schema before they are persisted. Validation here produces
// field-level messages suitable for API responses; the typed decoders in
// pkg/models remain the authority at execution time.
package schemas

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/driftline/automaton/pkg/models"
)

var emptyConfigSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
}

var triggerConfigSchemas = map[models.TriggerType]map[string]any{
	models.TriggerQuoteSent:          emptyConfigSchema,
	models.TriggerQuoteAccepted:      emptyConfigSchema,
	models.TriggerOpportunityCreated: emptyConfigSchema,
	models.TriggerTaskCompleted:      emptyConfigSchema,
	models.TriggerMeetingScheduled:   emptyConfigSchema,
	models.TriggerQuoteExpiring: {
		"type": "object",
		"properties": map[string]any{
			"days_before": map[string]any{"type": "integer", "minimum": 0},
		},
		"required":             []any{"days_before"},
		"additionalProperties": false,
	},
	models.TriggerNoActivity: {
		"type": "object",
		"properties": map[string]any{
			"days": map[string]any{"type": "integer", "minimum": 1},
		},
		"required":             []any{"days"},
		"additionalProperties": false,
	},
	models.TriggerOpportunityStageChanged: {
		"type": "object",
		"properties": map[string]any{
			"from_stage": map[string]any{"type": "string", "minLength": 1},
			"to_stage":   map[string]any{"type": "string", "minLength": 1},
		},
		"additionalProperties": false,
	},
}

var actionConfigSchemas = map[models.ActionType]map[string]any{
	models.ActionCreateTask: {
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "minLength": 1},
			"due_in_days": map[string]any{"type": "integer", "minimum": 0},
			"assignee":    map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []any{"title"},
		"additionalProperties": false,
	},
	models.ActionSendEmail: {
		"type": "object",
		"properties": map[string]any{
			"template": map[string]any{"type": "string", "minLength": 1},
			"to":       map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []any{"template", "to"},
		"additionalProperties": false,
	},
	models.ActionUpdateStatus: {
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []any{"status"},
		"additionalProperties": false,
	},
	models.ActionNotifyUser: {
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{"type": "string", "minLength": 1},
			"message": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []any{"user_id", "message"},
		"additionalProperties": false,
	},
	models.ActionLogActivity: {
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "minLength": 1},
			"level":   map[string]any{"type": "string", "enum": []any{"debug", "info", "warn", "error"}},
		},
		"required":             []any{"message"},
		"additionalProperties": false,
	},
	models.ActionAssignTo: {
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []any{"user_id"},
		"additionalProperties": false,
	},
	models.ActionAddTag: {
		"type": "object",
		"properties": map[string]any{
			"tag": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []any{"tag"},
		"additionalProperties": false,
	},
}

// ValidateTriggerConfig checks a raw trigger config map against the schema
// for its trigger type.
func ValidateTriggerConfig(triggerType models.TriggerType, config map[string]any) error {
	schema, ok := triggerConfigSchemas[triggerType]
	if !ok {
		return fmt.Errorf("unknown trigger type %q", triggerType)
	}

	return validate(schema, config)
}

// ValidateAction checks an action's raw config map against the schema for its
// action type.
func ValidateAction(action models.Action) error {
	schema, ok := actionConfigSchemas[action.Type]
	if !ok {
		return fmt.Errorf("unknown action type %q", action.Type)
	}

	if err := validate(schema, action.Config); err != nil {
		return fmt.Errorf("action %s: %w", action.Type, err)
	}

	return nil
}

func validate(schema map[string]any, config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("config validation failed: %s", strings.Join(messages, "; "))
	}

	return nil
}
