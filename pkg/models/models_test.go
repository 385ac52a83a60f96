package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTriggerConfig_QuoteExpiring(t *testing.T) {
	config, err := DecodeTriggerConfig(TriggerQuoteExpiring, map[string]any{"days_before": 3})
	require.NoError(t, err)

	expiring, ok := config.(QuoteExpiringConfig)
	require.True(t, ok)
	assert.Equal(t, 3, expiring.DaysBefore)

	assert.True(t, config.Matches(map[string]any{"days_until_expiry": 3}))
	assert.False(t, config.Matches(map[string]any{"days_until_expiry": 7}))
	assert.False(t, config.Matches(map[string]any{}))
}

func TestDecodeTriggerConfig_NoActivity(t *testing.T) {
	config, err := DecodeTriggerConfig(TriggerNoActivity, map[string]any{"days": 14})
	require.NoError(t, err)

	assert.True(t, config.Matches(map[string]any{"days_inactive": 30}))
	assert.True(t, config.Matches(map[string]any{"days_inactive": 14}))
	assert.False(t, config.Matches(map[string]any{"days_inactive": 13}))
}

func TestDecodeTriggerConfig_StageChanged(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]any
		eventCtx map[string]any
		want     bool
	}{
		{
			name:     "both stages match",
			raw:      map[string]any{"from_stage": "proposal", "to_stage": "negotiation"},
			eventCtx: map[string]any{"from_stage": "proposal", "to_stage": "negotiation"},
			want:     true,
		},
		{
			name:     "to stage differs",
			raw:      map[string]any{"to_stage": "closed_won"},
			eventCtx: map[string]any{"from_stage": "proposal", "to_stage": "negotiation"},
			want:     false,
		},
		{
			name:     "empty config matches any transition",
			raw:      nil,
			eventCtx: map[string]any{"from_stage": "a", "to_stage": "b"},
			want:     true,
		},
		{
			name:     "missing context value fails closed",
			raw:      map[string]any{"from_stage": "proposal"},
			eventCtx: map[string]any{},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := DecodeTriggerConfig(TriggerOpportunityStageChanged, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, config.Matches(tt.eventCtx))
		})
	}
}

func TestDecodeTriggerConfig_Invalid(t *testing.T) {
	_, err := DecodeTriggerConfig(TriggerType("made_up"), nil)
	assert.Error(t, err)

	_, err = DecodeTriggerConfig(TriggerQuoteExpiring, map[string]any{"days_before": 3, "bogus": true})
	assert.Error(t, err)

	_, err = DecodeTriggerConfig(TriggerNoActivity, map[string]any{"days": 0})
	assert.Error(t, err)

	// Parameterless triggers reject configuration.
	_, err = DecodeTriggerConfig(TriggerQuoteSent, map[string]any{"anything": 1})
	assert.Error(t, err)
}

func TestDecodeTriggerConfig_EmptyVariant(t *testing.T) {
	config, err := DecodeTriggerConfig(TriggerQuoteSent, nil)
	require.NoError(t, err)
	assert.Equal(t, TriggerQuoteSent, config.TriggerType())
	assert.True(t, config.Matches(nil))
}

func TestDecodeActionConfig(t *testing.T) {
	tests := []struct {
		name       string
		actionType ActionType
		raw        map[string]any
		wantErr    bool
	}{
		{
			name:       "create_task valid",
			actionType: ActionCreateTask,
			raw:        map[string]any{"title": "Follow up", "due_in_days": 2},
		},
		{
			name:       "create_task missing title",
			actionType: ActionCreateTask,
			raw:        map[string]any{"due_in_days": 2},
			wantErr:    true,
		},
		{
			name:       "send_email valid",
			actionType: ActionSendEmail,
			raw:        map[string]any{"template": "quote_followup", "to": "owner"},
		},
		{
			name:       "send_email unknown key",
			actionType: ActionSendEmail,
			raw:        map[string]any{"template": "x", "to": "y", "cc": "z"},
			wantErr:    true,
		},
		{
			name:       "update_status valid",
			actionType: ActionUpdateStatus,
			raw:        map[string]any{"status": "stalled"},
		},
		{
			name:       "notify_user missing message",
			actionType: ActionNotifyUser,
			raw:        map[string]any{"user_id": "u1"},
			wantErr:    true,
		},
		{
			name:       "log_activity valid",
			actionType: ActionLogActivity,
			raw:        map[string]any{"message": "rule fired"},
		},
		{
			name:       "assign_to valid",
			actionType: ActionAssignTo,
			raw:        map[string]any{"user_id": "u2"},
		},
		{
			name:       "add_tag valid",
			actionType: ActionAddTag,
			raw:        map[string]any{"tag": "hot-lead"},
		},
		{
			name:       "unknown type",
			actionType: ActionType("explode"),
			raw:        map[string]any{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := DecodeActionConfig(tt.actionType, tt.raw)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, config)
		})
	}
}

func TestClosedCatalogs(t *testing.T) {
	for _, trigger := range TriggerTypes() {
		assert.True(t, trigger.Valid())
	}

	assert.False(t, TriggerType("nope").Valid())

	for _, field := range ConditionFields() {
		fieldType, ok := field.Type()
		assert.True(t, ok)
		assert.NotEmpty(t, fieldType)
	}

	assert.False(t, ConditionField("nope").Valid())

	for _, op := range Operators() {
		assert.True(t, op.Valid())
	}

	assert.False(t, Operator("~=").Valid())
	assert.True(t, OperatorGreaterOrEqual.Ordering())
	assert.False(t, OperatorContains.Ordering())

	for _, action := range ActionTypes() {
		assert.True(t, action.Valid())
	}

	assert.False(t, ActionType("nope").Valid())
}

func TestEntity_Field(t *testing.T) {
	entity := Entity{
		ID:     "opp1",
		Type:   "opportunity",
		Fields: map[string]any{"opportunity_value": 60000.0},
	}

	value, ok := entity.Field("opportunity_value")
	require.True(t, ok)
	assert.InDelta(t, 60000.0, value, 0.001)

	id, ok := entity.Field("id")
	require.True(t, ok)
	assert.Equal(t, "opp1", id)

	entityType, ok := entity.Field("entity_type")
	require.True(t, ok)
	assert.Equal(t, "opportunity", entityType)

	_, ok = entity.Field("missing")
	assert.False(t, ok)
}

func TestExecutionStatus_Terminal(t *testing.T) {
	assert.False(t, ExecutionStatusRunning.Terminal())
	assert.True(t, ExecutionStatusCompleted.Terminal())
	assert.True(t, ExecutionStatusFailed.Terminal())
}
