// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrEmptyOwnerID     = errors.New("owner ID cannot be empty")

	// Rule Validation Errors (400 Bad Request).
	ErrRuleNil             = errors.New("rule cannot be nil")
	ErrRuleNameRequired    = errors.New("rule name is required")
	ErrActionsRequired     = errors.New("rule must have at least one action")
	ErrInvalidTriggerType  = errors.New("invalid trigger type")
	ErrInvalidActionType   = errors.New("invalid action type")
	ErrInvalidCondition    = errors.New("invalid condition")
	ErrInvalidTriggerConf  = errors.New("invalid trigger configuration")
	ErrInvalidActionConfig = errors.New("invalid action configuration")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrEmptyOwnerID) ||
		errors.Is(err, ErrRuleNil) ||
		errors.Is(err, ErrRuleNameRequired) ||
		errors.Is(err, ErrActionsRequired) ||
		errors.Is(err, ErrInvalidTriggerType) ||
		errors.Is(err, ErrInvalidActionType) ||
		errors.Is(err, ErrInvalidCondition) ||
		errors.Is(err, ErrInvalidTriggerConf) ||
		errors.Is(err, ErrInvalidActionConfig)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
