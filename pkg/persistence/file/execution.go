package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/persistence"
	"github.com/google/uuid"
)

// ExecutionRepository stores each execution record as a JSON file under
// <root>/executions. A single mutex covers the claim path so the guard checks
// and the record insert happen atomically within this process.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

// NewExecutionRepository creates a new file-backed execution ledger.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (r *ExecutionRepository) executionsDir() string {
	return path.Join(r.root, "executions")
}

func (r *ExecutionRepository) recordPath(id string) string {
	return path.Join(r.executionsDir(), id+".json")
}

func (r *ExecutionRepository) loadAll() ([]*models.ExecutionRecord, error) {
	if _, err := os.Stat(r.executionsDir()); os.IsNotExist(err) {
		return []*models.ExecutionRecord{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(r.executionsDir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	records := make([]*models.ExecutionRecord, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		data, err := os.ReadFile(path.Join(r.executionsDir(), file))
		if err != nil {
			return nil, fmt.Errorf("failed to read execution file %s: %w", file, err)
		}

		var record models.ExecutionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution file %s: %w", file, err)
		}

		records = append(records, &record)
	}

	return records, nil
}

func (r *ExecutionRepository) write(record *models.ExecutionRecord) error {
	if err := os.MkdirAll(r.executionsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution record: %w", err)
	}

	if err := os.WriteFile(r.recordPath(record.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write execution file: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) insert(ruleID, entityType, entityID string, now time.Time) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate execution ID: %w", err)
	}

	record := &models.ExecutionRecord{
		ID:         id.String(),
		RuleID:     ruleID,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     models.ExecutionStatusRunning,
		StartedAt:  now.UTC(),
	}

	if err := r.write(record); err != nil {
		return "", err
	}

	return record.ID, nil
}

func (r *ExecutionRepository) hasRecentStart(records []*models.ExecutionRecord, ruleID, entityID string, since time.Time) bool {
	for _, record := range records {
		if record.RuleID == ruleID && record.EntityID == entityID && record.StartedAt.After(since) {
			return true
		}
	}

	return false
}

func (r *ExecutionRepository) countCompleted(records []*models.ExecutionRecord, ruleID, entityID string) int {
	count := 0

	for _, record := range records {
		if record.RuleID == ruleID && record.EntityID == entityID && record.Status == models.ExecutionStatusCompleted {
			count++
		}
	}

	return count
}

// Claim applies the cooldown and max-executions guards and creates a running
// record if both pass. The whole operation holds the repository lock.
func (r *ExecutionRepository) Claim(_ context.Context, rule *models.WorkflowRule, entityType, entityID string, now time.Time) (*persistence.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadAll()
	if err != nil {
		return nil, persistence.NewExecutionError("Claim", "", fmt.Errorf("%w: %w", persistence.ErrLedgerWrite, err))
	}

	if rule.CooldownHours > 0 {
		since := now.Add(-rule.CooldownWindow())
		if r.hasRecentStart(records, rule.ID, entityID, since) {
			return &persistence.Claim{Rejection: persistence.ClaimRejectedCooldown}, nil
		}
	}

	if rule.HasExecutionBudget() {
		if r.countCompleted(records, rule.ID, entityID) >= *rule.MaxExecutionsPerEntity {
			return &persistence.Claim{Rejection: persistence.ClaimRejectedMaxExecutions}, nil
		}
	}

	recordID, err := r.insert(rule.ID, entityType, entityID, now)
	if err != nil {
		return nil, persistence.NewExecutionError("Claim", "", fmt.Errorf("%w: %w", persistence.ErrLedgerWrite, err))
	}

	return &persistence.Claim{RecordID: recordID}, nil
}

// Begin creates a running record without guard checks.
func (r *ExecutionRepository) Begin(_ context.Context, ruleID, entityType, entityID string, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recordID, err := r.insert(ruleID, entityType, entityID, now)
	if err != nil {
		return "", persistence.NewExecutionError("Begin", "", fmt.Errorf("%w: %w", persistence.ErrLedgerWrite, err))
	}

	return recordID, nil
}

// Complete writes the terminal state exactly once.
func (r *ExecutionRepository) Complete(ctx context.Context, recordID string, status models.ExecutionStatus, result []models.ActionResult, at time.Time) error {
	if !status.Terminal() {
		return persistence.NewExecutionError("Complete", recordID,
			fmt.Errorf("%w: status %s is not terminal", persistence.ErrLedgerWrite, status))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, err := r.getByID(recordID)
	if err != nil {
		return err
	}

	if record.Status.Terminal() {
		return persistence.NewExecutionError("Complete", recordID, persistence.ErrExecutionAlreadyTerminal)
	}

	completedAt := at.UTC()
	record.Status = status
	record.CompletedAt = &completedAt
	record.Result = result

	if err := r.write(record); err != nil {
		return persistence.NewExecutionError("Complete", recordID, fmt.Errorf("%w: %w", persistence.ErrLedgerWrite, err))
	}

	return nil
}

// CountCompleted counts completed records for the rule and entity.
func (r *ExecutionRepository) CountCompleted(_ context.Context, ruleID, entityID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadAll()
	if err != nil {
		return 0, persistence.NewExecutionError("CountCompleted", "", err)
	}

	return r.countCompleted(records, ruleID, entityID), nil
}

// HasRecentStart reports whether any record started after the given instant.
func (r *ExecutionRepository) HasRecentStart(_ context.Context, ruleID, entityID string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadAll()
	if err != nil {
		return false, persistence.NewExecutionError("HasRecentStart", "", err)
	}

	return r.hasRecentStart(records, ruleID, entityID, since), nil
}

func (r *ExecutionRepository) getByID(recordID string) (*models.ExecutionRecord, error) {
	data, err := os.ReadFile(r.recordPath(recordID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewExecutionError("GetByID", recordID, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", recordID, err)
	}

	var record models.ExecutionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, persistence.NewExecutionError("GetByID", recordID, fmt.Errorf("failed to unmarshal record: %w", err))
	}

	return &record, nil
}

// GetByID loads a single execution record.
func (r *ExecutionRepository) GetByID(_ context.Context, recordID string) (*models.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.getByID(recordID)
}

// ListByRule returns the most recent records for a rule, newest first.
func (r *ExecutionRepository) ListByRule(_ context.Context, ruleID string, limit int) ([]*models.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadAll()
	if err != nil {
		return nil, persistence.NewExecutionError("ListByRule", "", err)
	}

	matched := make([]*models.ExecutionRecord, 0)

	for _, record := range records {
		if record.RuleID == ruleID {
			matched = append(matched, record)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// DeleteByRule removes every record belonging to a rule.
func (r *ExecutionRepository) DeleteByRule(_ context.Context, ruleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadAll()
	if err != nil {
		return persistence.NewExecutionError("DeleteByRule", "", err)
	}

	for _, record := range records {
		if record.RuleID != ruleID {
			continue
		}

		if err := os.Remove(r.recordPath(record.ID)); err != nil && !os.IsNotExist(err) {
			return persistence.NewExecutionError("DeleteByRule", record.ID, err)
		}
	}

	return nil
}

// PruneOlderThan removes terminal records that started before the cutoff.
func (r *ExecutionRepository) PruneOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadAll()
	if err != nil {
		return 0, persistence.NewExecutionError("PruneOlderThan", "", err)
	}

	pruned := 0

	for _, record := range records {
		if !record.Status.Terminal() || !record.StartedAt.Before(cutoff) {
			continue
		}

		if err := os.Remove(r.recordPath(record.ID)); err != nil && !os.IsNotExist(err) {
			return pruned, persistence.NewExecutionError("PruneOlderThan", record.ID, err)
		}

		pruned++
	}

	return pruned, nil
}
