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

// RuleRepository handles rule catalog database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

const ruleColumns = `
	id
  , owner_id
  , name
  , description
  , is_active
  , trigger_type
  , trigger_config
  , conditions
  , actions
  , cooldown_hours
  , max_executions_per_entity
  , execution_count
  , last_executed_at
  , created_at
  , updated_at
`

// ListActive returns every active rule for the given trigger type.
func (r *RuleRepository) ListActive(ctx context.Context, triggerType models.TriggerType) ([]*models.WorkflowRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM workflow_rules
		WHERE is_active AND trigger_type = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to query active rules: %w", err)
	}

	return r.collectRules(ctx, rows)
}

// ListRules returns one page of the rule catalog.
func (r *RuleRepository) ListRules(ctx context.Context, opts persistence.ListRulesOptions) (*persistence.RuleListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"name":       true,
	}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	order := "ASC"
	if opts.SortOrder == "desc" {
		order = "DESC"
	}

	where := "WHERE TRUE"

	args := make([]any, 0, 4)

	if opts.OwnerID != "" {
		args = append(args, opts.OwnerID)
		where += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}

	if opts.TriggerType != nil {
		args = append(args, *opts.TriggerType)
		where += fmt.Sprintf(" AND trigger_type = $%d", len(args))
	}

	if opts.ActiveOnly {
		where += " AND is_active"
	}

	var total int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflow_rules "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count rules: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(`
		SELECT `+ruleColumns+`
		FROM workflow_rules
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, opts.SortBy, order, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	rules, err := r.collectRules(ctx, rows)
	if err != nil {
		return nil, err
	}

	return &persistence.RuleListResult{
		Rules:       rules,
		TotalCount:  total,
		HasNextPage: opts.Offset+len(rules) < total,
	}, nil
}

// GetByID loads a single rule by its identifier.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM workflow_rules
		WHERE id = $1
	`

	rule, err := r.scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRuleError("get", id, persistence.ErrRuleNotFound)
		}

		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	return rule, nil
}

// Save upserts a rule, assigning an ID and timestamps on first save.
func (r *RuleRepository) Save(ctx context.Context, rule *models.WorkflowRule) error {
	now := time.Now().UTC()

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	if rule.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate rule ID: %w", err)
		}

		rule.ID = id.String()
	}

	triggerConfigJSON, err := json.Marshal(rule.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO workflow_rules (id, owner_id, name, description, is_active,
			trigger_type, trigger_config, conditions, actions, cooldown_hours,
			max_executions_per_entity, execution_count, last_executed_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			cooldown_hours = EXCLUDED.cooldown_hours,
			max_executions_per_entity = EXCLUDED.max_executions_per_entity,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.OwnerID,
		rule.Name,
		rule.Description,
		rule.IsActive,
		rule.TriggerType,
		triggerConfigJSON,
		conditionsJSON,
		actionsJSON,
		rule.CooldownHours,
		rule.MaxExecutionsPerEntity,
		rule.ExecutionCount,
		rule.LastExecutedAt,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	return nil
}

// Delete removes a rule. Execution records cascade through the foreign key.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflow_rules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewRuleError("delete", id, persistence.ErrRuleNotFound)
	}

	return nil
}

// SetActive toggles a rule without touching the rest of its definition.
func (r *RuleRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE workflow_rules SET is_active = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to set rule active flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewRuleError("set_active", id, persistence.ErrRuleNotFound)
	}

	return nil
}

// RecordExecution bumps the execution counter after a completed execution.
func (r *RuleRepository) RecordExecution(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE workflow_rules
		SET execution_count = execution_count + 1, last_executed_at = $2
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewRuleError("record_execution", id, persistence.ErrRuleNotFound)
	}

	return nil
}

func (r *RuleRepository) collectRules(ctx context.Context, rows *sql.Rows) ([]*models.WorkflowRule, error) {
	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.WorkflowRule, 0)

	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) scanRule(scanner interface {
	Scan(dest ...any) error
}) (*models.WorkflowRule, error) {
	var (
		rule                                          models.WorkflowRule
		triggerConfigJSON, conditionsJSON, actionsJSON []byte
	)

	err := scanner.Scan(
		&rule.ID,
		&rule.OwnerID,
		&rule.Name,
		&rule.Description,
		&rule.IsActive,
		&rule.TriggerType,
		&triggerConfigJSON,
		&conditionsJSON,
		&actionsJSON,
		&rule.CooldownHours,
		&rule.MaxExecutionsPerEntity,
		&rule.ExecutionCount,
		&rule.LastExecutedAt,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if triggerConfigJSON != nil {
		err := json.Unmarshal(triggerConfigJSON, &rule.TriggerConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}

	if conditionsJSON != nil {
		err := json.Unmarshal(conditionsJSON, &rule.Conditions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}

	if actionsJSON != nil {
		err := json.Unmarshal(actionsJSON, &rule.Actions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
		}
	}

	return &rule, nil
}
