package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/persistence"
)

// ExecutionRepository handles execution ledger database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Claim atomically applies the idempotency guards and creates a running record
// when both pass. A single conditional insert carries the cooldown and budget
// predicates, and the partial unique index on running records resolves races
// between concurrent claimants, so two processes can never both win.
func (r *ExecutionRepository) Claim(ctx context.Context, rule *models.WorkflowRule, entityType, entityID string, now time.Time) (*persistence.Claim, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate execution ID: %w", err)
	}

	var since *time.Time

	if window := rule.CooldownWindow(); window > 0 {
		s := now.Add(-window)
		since = &s
	}

	query := `
		INSERT INTO execution_records (id, rule_id, entity_type, entity_id, status, started_at)
		SELECT $1, $2, $3, $4, 'running', $5
		WHERE ($6::timestamptz IS NULL OR NOT EXISTS (
			SELECT 1 FROM execution_records
			WHERE rule_id = $2 AND entity_id = $4 AND started_at > $6
		))
		AND ($7::int IS NULL OR (
			SELECT COUNT(*) FROM execution_records
			WHERE rule_id = $2 AND entity_id = $4 AND status = 'completed'
		) < $7)
		ON CONFLICT (rule_id, entity_id) WHERE status = 'running' DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		id.String(),
		rule.ID,
		entityType,
		entityID,
		now,
		since,
		rule.MaxExecutionsPerEntity,
	)
	if err != nil {
		return nil, persistence.NewExecutionError("claim", id.String(), fmt.Errorf("%w: %w", persistence.ErrLedgerWrite, err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 1 {
		return &persistence.Claim{RecordID: id.String()}, nil
	}

	return r.classifyRejection(ctx, rule, entityID, since)
}

// classifyRejection decides which guard refused a claim that inserted nothing.
func (r *ExecutionRepository) classifyRejection(ctx context.Context, rule *models.WorkflowRule, entityID string, since *time.Time) (*persistence.Claim, error) {
	if since != nil {
		recent, err := r.HasRecentStart(ctx, rule.ID, entityID, *since)
		if err != nil {
			return nil, err
		}

		if recent {
			return &persistence.Claim{Rejection: persistence.ClaimRejectedCooldown}, nil
		}
	}

	if rule.HasExecutionBudget() {
		completed, err := r.CountCompleted(ctx, rule.ID, entityID)
		if err != nil {
			return nil, err
		}

		if completed >= *rule.MaxExecutionsPerEntity {
			return &persistence.Claim{Rejection: persistence.ClaimRejectedMaxExecutions}, nil
		}
	}

	// Neither guard matches on re-read: a concurrent claimant holds the
	// running record. Treat it as an ordinary cooldown loss.
	return &persistence.Claim{Rejection: persistence.ClaimRejectedCooldown}, nil
}

// Begin creates a running record without guard checks.
func (r *ExecutionRepository) Begin(ctx context.Context, ruleID, entityType, entityID string, now time.Time) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate execution ID: %w", err)
	}

	query := `
		INSERT INTO execution_records (id, rule_id, entity_type, entity_id, status, started_at)
		VALUES ($1, $2, $3, $4, 'running', $5)
	`

	_, err = r.db.ExecContext(ctx, query, id.String(), ruleID, entityType, entityID, now)
	if err != nil {
		return "", persistence.NewExecutionError("begin", id.String(), fmt.Errorf("%w: %w", persistence.ErrLedgerWrite, err))
	}

	return id.String(), nil
}

// Complete writes the terminal state exactly once.
func (r *ExecutionRepository) Complete(ctx context.Context, recordID string, status models.ExecutionStatus, result []models.ActionResult, at time.Time) error {
	if !status.Terminal() {
		return persistence.NewExecutionError("complete", recordID, fmt.Errorf("status %q is not terminal", status))
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal action results: %w", err)
	}

	query := `
		UPDATE execution_records
		SET status = $2, completed_at = $3, result = $4
		WHERE id = $1 AND status = 'running'
	`

	res, err := r.db.ExecContext(ctx, query, recordID, status, at, resultJSON)
	if err != nil {
		return persistence.NewExecutionError("complete", recordID, fmt.Errorf("%w: %w", persistence.ErrLedgerWrite, err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		_, err := r.GetByID(ctx, recordID)
		if err != nil {
			return err
		}

		return persistence.NewExecutionError("complete", recordID, persistence.ErrExecutionAlreadyTerminal)
	}

	return nil
}

// CountCompleted counts completed records for the rule and entity.
func (r *ExecutionRepository) CountCompleted(ctx context.Context, ruleID, entityID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM execution_records
		WHERE rule_id = $1 AND entity_id = $2 AND status = 'completed'
	`

	var count int

	err := r.db.QueryRowContext(ctx, query, ruleID, entityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed executions: %w", err)
	}

	return count, nil
}

// HasRecentStart reports whether any record for the rule and entity started
// after the given instant, regardless of how it ended.
func (r *ExecutionRepository) HasRecentStart(ctx context.Context, ruleID, entityID string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM execution_records
			WHERE rule_id = $1 AND entity_id = $2 AND started_at > $3
		)
	`

	var exists bool

	err := r.db.QueryRowContext(ctx, query, ruleID, entityID, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check recent starts: %w", err)
	}

	return exists, nil
}

// GetByID loads a single execution record.
func (r *ExecutionRepository) GetByID(ctx context.Context, recordID string) (*models.ExecutionRecord, error) {
	query := `
		SELECT id, rule_id, entity_type, entity_id, status, started_at, completed_at, result
		FROM execution_records
		WHERE id = $1
	`

	record, err := r.scanRecord(r.db.QueryRowContext(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("get", recordID, persistence.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to scan execution record: %w", err)
	}

	return record, nil
}

// ListByRule returns the rule's records, newest first.
func (r *ExecutionRepository) ListByRule(ctx context.Context, ruleID string, limit int) ([]*models.ExecutionRecord, error) {
	query := `
		SELECT id, rule_id, entity_type, entity_id, status, started_at, completed_at, result
		FROM execution_records
		WHERE rule_id = $1
		ORDER BY started_at DESC
	`

	args := []any{ruleID}

	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $2"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution records: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution record: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution records: %w", err)
	}

	return records, nil
}

// DeleteByRule removes every record for the rule.
func (r *ExecutionRepository) DeleteByRule(ctx context.Context, ruleID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM execution_records WHERE rule_id = $1", ruleID)
	if err != nil {
		return fmt.Errorf("failed to delete execution records: %w", err)
	}

	return nil
}

// PruneOlderThan removes terminal records whose execution started before the
// cutoff. Running records are kept.
func (r *ExecutionRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM execution_records
		WHERE status <> 'running' AND started_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune execution records: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

func (r *ExecutionRepository) scanRecord(scanner interface {
	Scan(dest ...any) error
}) (*models.ExecutionRecord, error) {
	var (
		record     models.ExecutionRecord
		resultJSON []byte
	)

	err := scanner.Scan(
		&record.ID,
		&record.RuleID,
		&record.EntityType,
		&record.EntityID,
		&record.Status,
		&record.StartedAt,
		&record.CompletedAt,
		&resultJSON,
	)
	if err != nil {
		return nil, err
	}

	if resultJSON != nil {
		err := json.Unmarshal(resultJSON, &record.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal action results: %w", err)
		}
	}

	return &record, nil
}
