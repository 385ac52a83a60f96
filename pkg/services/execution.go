package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/persistence"
)

// ErrExecutionNotFound is returned when an execution record is not found.
var ErrExecutionNotFound = persistence.ErrExecutionNotFound

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Execution serves read access to the execution ledger plus retention
// maintenance. The ledger is append-then-update only; nothing here mutates
// individual records.
type Execution struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

// NewExecution creates a new execution history service.
func NewExecution(p persistence.Persistence, logger *slog.Logger) *Execution {
	return &Execution{
		persistence: p,
		logger:      logger,
	}
}

// GetExecution fetches a single ledger record by ID.
func (s *Execution) GetExecution(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	return s.persistence.ExecutionRepository().GetByID(ctx, id)
}

// ListExecutions returns a rule's execution history, newest first. The rule
// must exist; an unknown rule surfaces as ErrRuleNotFound rather than an
// empty history.
func (s *Execution) ListExecutions(ctx context.Context, ruleID string, limit int) ([]*models.ExecutionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if _, err := s.persistence.RuleRepository().GetByID(ctx, ruleID); err != nil {
		return nil, err
	}

	records, err := s.persistence.ExecutionRepository().ListByRule(ctx, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return records, nil
}

// PruneHistory removes terminal ledger records older than the retention
// window. Running records are never pruned regardless of age.
func (s *Execution) PruneHistory(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, NewValidationError("PruneHistory", "INVALID_RETENTION",
			"retention must be positive", ErrInvalidRequest)
	}

	cutoff := time.Now().UTC().Add(-retention)

	pruned, err := s.persistence.ExecutionRepository().PruneOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune execution history: %w", err)
	}

	if pruned > 0 {
		s.logger.InfoContext(ctx, "Pruned execution history",
			"pruned", pruned, "cutoff", cutoff)
	}

	return pruned, nil
}
