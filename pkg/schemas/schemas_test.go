package schemas_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/schemas"
)

func TestValidateTriggerConfig(t *testing.T) {
	tests := []struct {
		name        string
		triggerType models.TriggerType
		config      map[string]any
		wantErr     bool
	}{
		{
			name:        "parameterless trigger with nil config",
			triggerType: models.TriggerQuoteSent,
		},
		{
			name:        "parameterless trigger rejects parameters",
			triggerType: models.TriggerQuoteSent,
			config:      map[string]any{"days_before": 3},
			wantErr:     true,
		},
		{
			name:        "quote_expiring valid",
			triggerType: models.TriggerQuoteExpiring,
			config:      map[string]any{"days_before": 3},
		},
		{
			name:        "quote_expiring missing days_before",
			triggerType: models.TriggerQuoteExpiring,
			config:      map[string]any{},
			wantErr:     true,
		},
		{
			name:        "quote_expiring negative",
			triggerType: models.TriggerQuoteExpiring,
			config:      map[string]any{"days_before": -1},
			wantErr:     true,
		},
		{
			name:        "quote_expiring wrong type",
			triggerType: models.TriggerQuoteExpiring,
			config:      map[string]any{"days_before": "soon"},
			wantErr:     true,
		},
		{
			name:        "no_activity requires positive days",
			triggerType: models.TriggerNoActivity,
			config:      map[string]any{"days": 0},
			wantErr:     true,
		},
		{
			name:        "stage_changed all fields optional",
			triggerType: models.TriggerOpportunityStageChanged,
			config:      map[string]any{"to_stage": "negotiation"},
		},
		{
			name:        "stage_changed unknown key",
			triggerType: models.TriggerOpportunityStageChanged,
			config:      map[string]any{"stage": "negotiation"},
			wantErr:     true,
		},
		{
			name:        "unknown trigger type",
			triggerType: "made_up",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schemas.ValidateTriggerConfig(tt.triggerType, tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAction(t *testing.T) {
	tests := []struct {
		name    string
		action  models.Action
		wantErr bool
	}{
		{
			name:   "create_task minimal",
			action: models.Action{Type: models.ActionCreateTask, Config: map[string]any{"title": "Follow up"}},
		},
		{
			name: "create_task full",
			action: models.Action{Type: models.ActionCreateTask, Config: map[string]any{
				"title": "Follow up", "due_in_days": 3, "assignee": "user-2",
			}},
		},
		{
			name:    "create_task missing title",
			action:  models.Action{Type: models.ActionCreateTask, Config: map[string]any{"due_in_days": 3}},
			wantErr: true,
		},
		{
			name:    "send_email missing to",
			action:  models.Action{Type: models.ActionSendEmail, Config: map[string]any{"template": "t"}},
			wantErr: true,
		},
		{
			name:   "log_activity with level",
			action: models.Action{Type: models.ActionLogActivity, Config: map[string]any{"message": "m", "level": "warn"}},
		},
		{
			name:    "log_activity invalid level",
			action:  models.Action{Type: models.ActionLogActivity, Config: map[string]any{"message": "m", "level": "loud"}},
			wantErr: true,
		},
		{
			name:    "add_tag empty tag",
			action:  models.Action{Type: models.ActionAddTag, Config: map[string]any{"tag": ""}},
			wantErr: true,
		},
		{
			name:    "unknown action type",
			action:  models.Action{Type: "teleport", Config: map[string]any{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schemas.ValidateAction(tt.action)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchemaAndDecoderAgree(t *testing.T) {
	// Configs passing schema validation must also decode.
	action := models.Action{Type: models.ActionSendEmail, Config: map[string]any{
		"template": "quote-followup", "to": "owner",
	}}
	require.NoError(t, schemas.ValidateAction(action))

	_, err := models.DecodeActionConfig(action.Type, action.Config)
	require.NoError(t, err)
}
