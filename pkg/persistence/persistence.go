// Package persistence provides the storage abstraction for the rule catalog and
// the execution ledger.
package persistence

import (
	"context"
	"time"

	"github.com/driftline/automaton/pkg/models"
)

// ListRulesOptions filters and pages rule catalog listings.
type ListRulesOptions struct {
	OwnerID     string
	TriggerType *models.TriggerType
	ActiveOnly  bool
	Limit       int
	Offset      int
	SortBy      string
	SortOrder   string
}

// RuleListResult carries one page of rules plus pagination metadata.
type RuleListResult struct {
	Rules       []*models.WorkflowRule
	TotalCount  int
	HasNextPage bool
}

// RuleRepository is the rule catalog: pure data access over workflow rules.
type RuleRepository interface {
	// ListActive returns every active rule for the given trigger type.
	ListActive(ctx context.Context, triggerType models.TriggerType) ([]*models.WorkflowRule, error)

	ListRules(ctx context.Context, opts ListRulesOptions) (*RuleListResult, error)
	GetByID(ctx context.Context, id string) (*models.WorkflowRule, error)
	Save(ctx context.Context, rule *models.WorkflowRule) error

	// Delete removes the rule and cascades to its execution records.
	Delete(ctx context.Context, id string) error

	SetActive(ctx context.Context, id string, active bool) error

	// RecordExecution bumps the rule's execution counter and last-executed
	// timestamp after a completed execution.
	RecordExecution(ctx context.Context, id string, at time.Time) error
}

// ClaimRejection says which idempotency guard refused a claim.
type ClaimRejection string

const (
	ClaimAccepted              ClaimRejection = ""
	ClaimRejectedCooldown      ClaimRejection = "cooldown"
	ClaimRejectedMaxExecutions ClaimRejection = "max_executions"
)

// Claim is the result of an atomic execution claim: either a freshly created
// running record, or the guard that rejected it.
type Claim struct {
	RecordID  string
	Rejection ClaimRejection
}

// Accepted reports whether the claim created a running execution record.
func (c *Claim) Accepted() bool {
	return c.Rejection == ClaimAccepted
}

// ExecutionRepository is the execution ledger: a durable append-then-update
// audit log of every rule firing attempt. It backs every idempotency decision.
type ExecutionRepository interface {
	// Claim atomically applies the cooldown and max-executions guards and, if
	// both pass, creates a running execution record. At most one execution can
	// be running for a given (rule, entity) at a time; losing a race surfaces
	// as a rejection, never as an error.
	Claim(ctx context.Context, rule *models.WorkflowRule, entityType, entityID string, now time.Time) (*Claim, error)

	// Begin creates a running record without guard checks. Used when the
	// caller has already performed the checks itself.
	Begin(ctx context.Context, ruleID, entityType, entityID string, now time.Time) (string, error)

	// Complete writes the terminal state exactly once.
	Complete(ctx context.Context, recordID string, status models.ExecutionStatus, result []models.ActionResult, at time.Time) error

	// CountCompleted counts completed records for the rule and entity. Failed
	// attempts do not consume the execution budget.
	CountCompleted(ctx context.Context, ruleID, entityID string) (int, error)

	// HasRecentStart reports whether any record for the rule and entity,
	// running or terminal, started after the given instant.
	HasRecentStart(ctx context.Context, ruleID, entityID string, since time.Time) (bool, error)

	GetByID(ctx context.Context, recordID string) (*models.ExecutionRecord, error)
	ListByRule(ctx context.Context, ruleID string, limit int) ([]*models.ExecutionRecord, error)
	DeleteByRule(ctx context.Context, ruleID string) error

	// PruneOlderThan removes terminal records whose execution started before
	// the cutoff and returns how many were removed. Running records are kept.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Persistence aggregates the repositories behind one storage backend.
type Persistence interface {
	RuleRepository() RuleRepository
	ExecutionRepository() ExecutionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
