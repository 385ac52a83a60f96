// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRuleNotFound indicates a workflow rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrExecutionNotFound indicates an execution record was not found.
	ErrExecutionNotFound = errors.New("execution record not found")

	// ErrExecutionAlreadyTerminal indicates a terminal record was completed twice.
	ErrExecutionAlreadyTerminal = errors.New("execution record already terminal")

	// ErrLedgerWrite indicates an execution record could not be created or
	// updated. A failed begin is fatal for that rule's execution: the engine
	// must not run unaudited side effects.
	ErrLedgerWrite = errors.New("ledger write failed")

	// ErrInvalidSortField indicates a listing requested a sort column outside
	// the allowlist.
	ErrInvalidSortField = errors.New("invalid sort field")
)

// RuleError wraps rule catalog errors with operation context.
type RuleError struct {
	Op     string
	RuleID string
	Err    error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s operation failed for rule %s: %v", e.Op, e.RuleID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

func (e *RuleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRuleError creates a rule catalog error with context.
func NewRuleError(op, ruleID string, err error) *RuleError {
	return &RuleError{Op: op, RuleID: ruleID, Err: err}
}

// ExecutionError wraps execution ledger errors with operation context.
type ExecutionError struct {
	Op       string
	RecordID string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.RecordID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates an execution ledger error with context.
func NewExecutionError(op, recordID string, err error) *ExecutionError {
	return &ExecutionError{Op: op, RecordID: recordID, Err: err}
}

// IsRuleNotFound checks if an error indicates a rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution record was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsLedgerWrite checks if an error indicates a ledger write failure.
func IsLedgerWrite(err error) bool {
	return errors.Is(err, ErrLedgerWrite)
}

// IsInvalidSortField checks if an error indicates a disallowed sort column.
func IsInvalidSortField(err error) bool {
	return errors.Is(err, ErrInvalidSortField)
}
