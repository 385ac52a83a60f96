package models

import "fmt"

// ActionType identifies one side-effecting step a rule performs when it fires.
// The catalog is closed; concrete handlers are registered per type.
type ActionType string

const (
	ActionCreateTask   ActionType = "create_task"
	ActionSendEmail    ActionType = "send_email"
	ActionUpdateStatus ActionType = "update_status"
	ActionNotifyUser   ActionType = "notify_user"
	ActionLogActivity  ActionType = "log_activity"
	ActionAssignTo     ActionType = "assign_to"
	ActionAddTag       ActionType = "add_tag"
)

// ActionTypes lists every supported action type.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionCreateTask,
		ActionSendEmail,
		ActionUpdateStatus,
		ActionNotifyUser,
		ActionLogActivity,
		ActionAssignTo,
		ActionAddTag,
	}
}

// Valid reports whether t is part of the closed action catalog.
func (t ActionType) Valid() bool {
	for _, known := range ActionTypes() {
		if t == known {
			return true
		}
	}

	return false
}

// Action is one ordered step in a rule's action list. Order is semantically
// significant: no action starts before the previous handler returned.
type Action struct {
	Type   ActionType     `json:"type"   validate:"required"`
	Config map[string]any `json:"config"`
}

// ActionResult records the outcome of a single action within one execution.
type ActionResult struct {
	ActionType ActionType `json:"action_type"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
}

// Typed per-action configs. Decoded at the system boundary so handlers and
// validation work against concrete fields instead of raw maps.

type CreateTaskConfig struct {
	Title     string `json:"title"`
	DueInDays int    `json:"due_in_days,omitempty"`
	Assignee  string `json:"assignee,omitempty"`
}

type SendEmailConfig struct {
	Template string `json:"template"`
	To       string `json:"to"`
}

type UpdateStatusConfig struct {
	Status string `json:"status"`
}

type NotifyUserConfig struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type LogActivityConfig struct {
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

type AssignToConfig struct {
	UserID string `json:"user_id"`
}

type AddTagConfig struct {
	Tag string `json:"tag"`
}

// DecodeActionConfig maps the closed action catalog to its typed config
// variant, rejecting unknown keys and missing required fields.
func DecodeActionConfig(actionType ActionType, raw map[string]any) (any, error) {
	switch actionType {
	case ActionCreateTask:
		var config CreateTaskConfig
		if err := decodeStrict(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", actionType, err)
		}

		if config.Title == "" {
			return nil, fmt.Errorf("invalid %s config: title is required", actionType)
		}

		return config, nil
	case ActionSendEmail:
		var config SendEmailConfig
		if err := decodeStrict(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", actionType, err)
		}

		if config.Template == "" || config.To == "" {
			return nil, fmt.Errorf("invalid %s config: template and to are required", actionType)
		}

		return config, nil
	case ActionUpdateStatus:
		var config UpdateStatusConfig
		if err := decodeStrict(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", actionType, err)
		}

		if config.Status == "" {
			return nil, fmt.Errorf("invalid %s config: status is required", actionType)
		}

		return config, nil
	case ActionNotifyUser:
		var config NotifyUserConfig
		if err := decodeStrict(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", actionType, err)
		}

		if config.UserID == "" || config.Message == "" {
			return nil, fmt.Errorf("invalid %s config: user_id and message are required", actionType)
		}

		return config, nil
	case ActionLogActivity:
		var config LogActivityConfig
		if err := decodeStrict(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", actionType, err)
		}

		if config.Message == "" {
			return nil, fmt.Errorf("invalid %s config: message is required", actionType)
		}

		return config, nil
	case ActionAssignTo:
		var config AssignToConfig
		if err := decodeStrict(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", actionType, err)
		}

		if config.UserID == "" {
			return nil, fmt.Errorf("invalid %s config: user_id is required", actionType)
		}

		return config, nil
	case ActionAddTag:
		var config AddTagConfig
		if err := decodeStrict(raw, &config); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", actionType, err)
		}

		if config.Tag == "" {
			return nil, fmt.Errorf("invalid %s config: tag is required", actionType)
		}

		return config, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", actionType)
	}
}
