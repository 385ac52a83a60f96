package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/persistence"
	"github.com/google/uuid"
)

// RuleRepository stores each rule as a JSON file under <root>/rules.
type RuleRepository struct {
	root       string
	executions *ExecutionRepository
}

// NewRuleRepository creates a new file-backed rule repository. The execution
// repository is needed so a rule delete cascades to its ledger rows.
func NewRuleRepository(root string, executions *ExecutionRepository) *RuleRepository {
	return &RuleRepository{root: root, executions: executions}
}

func (r *RuleRepository) rulesDir() string {
	return path.Join(r.root, "rules")
}

func (r *RuleRepository) rulePath(id string) string {
	return path.Join(r.rulesDir(), id+".json")
}

func (r *RuleRepository) loadAll(ctx context.Context) ([]*models.WorkflowRule, error) {
	if _, err := os.Stat(r.rulesDir()); os.IsNotExist(err) {
		return []*models.WorkflowRule{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(r.rulesDir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list rule files: %w", err)
	}

	rules := make([]*models.WorkflowRule, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		ruleID := file[:len(file)-5] // Remove .json extension

		rule, err := r.GetByID(ctx, ruleID)
		if err != nil {
			if persistence.IsRuleNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("failed to load rule %s: %w", ruleID, err)
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

// ListActive returns every active rule whose trigger type matches.
func (r *RuleRepository) ListActive(ctx context.Context, triggerType models.TriggerType) ([]*models.WorkflowRule, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowRule, 0)

	for _, rule := range all {
		if rule.IsActive && rule.TriggerType == triggerType {
			matched = append(matched, rule)
		}
	}

	return matched, nil
}

// ListRules returns paginated and filtered rules with in-memory operations.
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

	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowRule, 0, len(all))

	for _, rule := range all {
		if opts.OwnerID != "" && rule.OwnerID != opts.OwnerID {
			continue
		}

		if opts.TriggerType != nil && rule.TriggerType != *opts.TriggerType {
			continue
		}

		if opts.ActiveOnly && !rule.IsActive {
			continue
		}

		filtered = append(filtered, rule)
	}

	sort.Slice(filtered, func(i, j int) bool {
		var less bool

		switch opts.SortBy {
		case "name":
			less = filtered[i].Name < filtered[j].Name
		case "updated_at":
			less = filtered[i].UpdatedAt.Before(filtered[j].UpdatedAt)
		default:
			less = filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
		}

		if opts.SortOrder == "desc" {
			return !less
		}

		return less
	})

	total := len(filtered)

	start := opts.Offset
	if start > total {
		start = total
	}

	end := start + opts.Limit
	if end > total {
		end = total
	}

	return &persistence.RuleListResult{
		Rules:       filtered[start:end],
		TotalCount:  total,
		HasNextPage: end < total,
	}, nil
}

// GetByID loads a single rule by its identifier.
func (r *RuleRepository) GetByID(_ context.Context, id string) (*models.WorkflowRule, error) {
	data, err := os.ReadFile(r.rulePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRuleError("GetByID", id, persistence.ErrRuleNotFound)
		}

		return nil, persistence.NewRuleError("GetByID", id, err)
	}

	var rule models.WorkflowRule
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, persistence.NewRuleError("GetByID", id, fmt.Errorf("failed to unmarshal rule: %w", err))
	}

	return &rule, nil
}

// Save writes a rule to disk, assigning an ID and timestamps on first save.
func (r *RuleRepository) Save(_ context.Context, rule *models.WorkflowRule) error {
	now := time.Now().UTC()

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	if rule.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return persistence.NewRuleError("Save", "", fmt.Errorf("failed to generate rule ID: %w", err))
		}

		rule.ID = id.String()
	}

	if err := os.MkdirAll(r.rulesDir(), 0o755); err != nil {
		return persistence.NewRuleError("Save", rule.ID, fmt.Errorf("failed to create rules directory: %w", err))
	}

	data, err := json.MarshalIndent(rule, "", "  ")
	if err != nil {
		return persistence.NewRuleError("Save", rule.ID, fmt.Errorf("failed to marshal rule: %w", err))
	}

	if err := os.WriteFile(r.rulePath(rule.ID), data, 0o644); err != nil {
		return persistence.NewRuleError("Save", rule.ID, fmt.Errorf("failed to write rule file: %w", err))
	}

	return nil
}

// Delete removes the rule file and cascades to its execution records.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	err := os.Remove(r.rulePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewRuleError("Delete", id, persistence.ErrRuleNotFound)
		}

		return persistence.NewRuleError("Delete", id, err)
	}

	if err := r.executions.DeleteByRule(ctx, id); err != nil {
		return persistence.NewRuleError("Delete", id, fmt.Errorf("failed to cascade executions: %w", err))
	}

	return nil
}

// SetActive toggles a rule's active flag.
func (r *RuleRepository) SetActive(ctx context.Context, id string, active bool) error {
	rule, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	rule.IsActive = active

	return r.Save(ctx, rule)
}

// RecordExecution bumps executionCount and lastExecutedAt after a completed run.
func (r *RuleRepository) RecordExecution(ctx context.Context, id string, at time.Time) error {
	rule, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	rule.ExecutionCount++
	executedAt := at.UTC()
	rule.LastExecutedAt = &executedAt

	return r.Save(ctx, rule)
}
