package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TriggerType identifies the business event a rule reacts to. The catalog is
// closed: new trigger types ship with the engine, they are not user-defined.
type TriggerType string

const (
	TriggerQuoteSent               TriggerType = "quote_sent"
	TriggerQuoteAccepted           TriggerType = "quote_accepted"
	TriggerQuoteExpiring           TriggerType = "quote_expiring"
	TriggerOpportunityCreated      TriggerType = "opportunity_created"
	TriggerOpportunityStageChanged TriggerType = "opportunity_stage_changed"
	TriggerNoActivity              TriggerType = "no_activity"
	TriggerTaskCompleted           TriggerType = "task_completed"
	TriggerMeetingScheduled        TriggerType = "meeting_scheduled"
)

// TriggerTypes lists every supported trigger type.
func TriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerQuoteSent,
		TriggerQuoteAccepted,
		TriggerQuoteExpiring,
		TriggerOpportunityCreated,
		TriggerOpportunityStageChanged,
		TriggerNoActivity,
		TriggerTaskCompleted,
		TriggerMeetingScheduled,
	}
}

// Valid reports whether t is part of the closed trigger catalog.
func (t TriggerType) Valid() bool {
	for _, known := range TriggerTypes() {
		if t == known {
			return true
		}
	}

	return false
}

// TriggerConfig is the decoded, typed form of a rule's trigger_config map.
// Matching against the event context is a precondition distinct from the
// user-authored conditions: a mismatch short-circuits the pipeline before the
// idempotency guard or the ledger are consulted.
type TriggerConfig interface {
	TriggerType() TriggerType

	// Matches reports whether the event context satisfies the trigger
	// parameters. An empty config always matches.
	Matches(eventCtx map[string]any) bool
}

// EmptyTriggerConfig is the variant for trigger types that carry no parameters
// beyond the event itself.
type EmptyTriggerConfig struct {
	Type TriggerType `json:"-"`
}

func (c EmptyTriggerConfig) TriggerType() TriggerType      { return c.Type }
func (c EmptyTriggerConfig) Matches(_ map[string]any) bool { return true }

// QuoteExpiringConfig fires a rule N days before a quote expires. The producer
// supplies days_until_expiry in the event context.
type QuoteExpiringConfig struct {
	DaysBefore int `json:"days_before"`
}

func (c QuoteExpiringConfig) TriggerType() TriggerType { return TriggerQuoteExpiring }

func (c QuoteExpiringConfig) Matches(eventCtx map[string]any) bool {
	days, ok := NumberValue(eventCtx["days_until_expiry"])
	if !ok {
		return false
	}

	return int(days) == c.DaysBefore
}

// NoActivityConfig fires a rule once an entity has seen no activity for the
// configured number of days. The producer supplies days_inactive in the event
// context.
type NoActivityConfig struct {
	Days int `json:"days"`
}

func (c NoActivityConfig) TriggerType() TriggerType { return TriggerNoActivity }

func (c NoActivityConfig) Matches(eventCtx map[string]any) bool {
	days, ok := NumberValue(eventCtx["days_inactive"])
	if !ok {
		return false
	}

	return int(days) >= c.Days
}

// StageChangedConfig narrows an opportunity_stage_changed rule to specific
// stage transitions. Empty fields match any stage.
type StageChangedConfig struct {
	FromStage string `json:"from_stage,omitempty"`
	ToStage   string `json:"to_stage,omitempty"`
}

func (c StageChangedConfig) TriggerType() TriggerType { return TriggerOpportunityStageChanged }

func (c StageChangedConfig) Matches(eventCtx map[string]any) bool {
	if c.FromStage != "" {
		from, ok := TextValue(eventCtx["from_stage"])
		if !ok || from != c.FromStage {
			return false
		}
	}

	if c.ToStage != "" {
		to, ok := TextValue(eventCtx["to_stage"])
		if !ok || to != c.ToStage {
			return false
		}
	}

	return true
}

// DecodeTriggerConfig maps the closed trigger catalog to its typed config
// variant. Unknown keys and malformed values are rejected at this boundary so
// the rest of the pipeline only ever sees well-formed configs.
func DecodeTriggerConfig(triggerType TriggerType, raw map[string]any) (TriggerConfig, error) {
	if !triggerType.Valid() {
		return nil, fmt.Errorf("unknown trigger type %q", triggerType)
	}

	switch triggerType {
	case TriggerQuoteExpiring:
		var config QuoteExpiringConfig
		if err := decodeStrict(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid %s trigger config: %w", triggerType, err)
		}

		if config.DaysBefore < 0 {
			return nil, fmt.Errorf("invalid %s trigger config: days_before must not be negative", triggerType)
		}

		return config, nil
	case TriggerNoActivity:
		var config NoActivityConfig
		if err := decodeStrict(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid %s trigger config: %w", triggerType, err)
		}

		if config.Days <= 0 {
			return nil, fmt.Errorf("invalid %s trigger config: days must be positive", triggerType)
		}

		return config, nil
	case TriggerOpportunityStageChanged:
		var config StageChangedConfig
		if err := decodeStrict(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid %s trigger config: %w", triggerType, err)
		}

		return config, nil
	default:
		if len(raw) > 0 {
			return nil, fmt.Errorf("trigger type %s does not accept configuration", triggerType)
		}

		return EmptyTriggerConfig{Type: triggerType}, nil
	}
}

// decodeStrict round-trips a config map through JSON into a typed struct,
// rejecting keys the variant does not declare.
func decodeStrict(raw map[string]any, target any) error {
	if raw == nil {
		raw = map[string]any{}
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	return nil
}
