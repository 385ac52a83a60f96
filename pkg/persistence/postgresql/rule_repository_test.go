package postgresql_test

import (
	"testing"
	"time"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleRepository_SaveAndGetByID(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RuleRepository()

	max := 3
	rule := createTestRule(func(r *models.WorkflowRule) {
		r.TriggerType = models.TriggerQuoteExpiring
		r.TriggerConfig = map[string]any{"days_before": float64(3)}
		r.CooldownHours = 24
		r.MaxExecutionsPerEntity = &max
	})

	require.NoError(t, repo.Save(ctx, rule))
	require.NotEmpty(t, rule.ID)

	loaded, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)

	assert.Equal(t, rule.Name, loaded.Name)
	assert.Equal(t, rule.OwnerID, loaded.OwnerID)
	assert.Equal(t, models.TriggerQuoteExpiring, loaded.TriggerType)
	assert.Equal(t, rule.TriggerConfig, loaded.TriggerConfig)
	assert.Equal(t, rule.Conditions, loaded.Conditions)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, models.ActionCreateTask, loaded.Actions[0].Type)
	assert.Equal(t, 24, loaded.CooldownHours)
	require.NotNil(t, loaded.MaxExecutionsPerEntity)
	assert.Equal(t, 3, *loaded.MaxExecutionsPerEntity)
	assert.Equal(t, 0, loaded.ExecutionCount)
	assert.Nil(t, loaded.LastExecutedAt)
}

func TestRuleRepository_SaveUpdatesExistingRule(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RuleRepository()

	rule := createTestRule()
	require.NoError(t, repo.Save(ctx, rule))

	rule.Name = "Renamed rule"
	rule.IsActive = false
	require.NoError(t, repo.Save(ctx, rule))

	loaded, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed rule", loaded.Name)
	assert.False(t, loaded.IsActive)
}

func TestRuleRepository_GetByID_NotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.RuleRepository().GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRuleRepository_ListActive(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RuleRepository()

	active := createTestRule()
	require.NoError(t, repo.Save(ctx, active))

	inactive := createTestRule(func(r *models.WorkflowRule) { r.IsActive = false })
	require.NoError(t, repo.Save(ctx, inactive))

	otherTrigger := createTestRule(func(r *models.WorkflowRule) { r.TriggerType = models.TriggerNoActivity })
	require.NoError(t, repo.Save(ctx, otherTrigger))

	rules, err := repo.ListActive(ctx, models.TriggerQuoteSent)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, active.ID, rules[0].ID)
}

func TestRuleRepository_ListRules(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RuleRepository()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(ctx, createTestRule()))
	}

	require.NoError(t, repo.Save(ctx, createTestRule(func(r *models.WorkflowRule) {
		r.OwnerID = "user-2"
		r.IsActive = false
	})))

	result, err := repo.ListRules(ctx, persistence.ListRulesOptions{OwnerID: "user-1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	assert.Len(t, result.Rules, 2)
	assert.True(t, result.HasNextPage)

	result, err = repo.ListRules(ctx, persistence.ListRulesOptions{ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)

	_, err = repo.ListRules(ctx, persistence.ListRulesOptions{SortBy: "owner_id"})
	assert.Error(t, err)
}

func TestRuleRepository_SetActive(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RuleRepository()

	rule := createTestRule()
	require.NoError(t, repo.Save(ctx, rule))

	require.NoError(t, repo.SetActive(ctx, rule.ID, false))

	loaded, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsActive)

	err = repo.SetActive(ctx, "00000000-0000-0000-0000-000000000000", true)
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRuleRepository_RecordExecution(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RuleRepository()

	rule := createTestRule()
	require.NoError(t, repo.Save(ctx, rule))

	executedAt := time.Now().UTC()
	require.NoError(t, repo.RecordExecution(ctx, rule.ID, executedAt))
	require.NoError(t, repo.RecordExecution(ctx, rule.ID, executedAt.Add(time.Minute)))

	loaded, err := repo.GetByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.ExecutionCount)
	require.NotNil(t, loaded.LastExecutedAt)
	assert.WithinDuration(t, executedAt.Add(time.Minute), *loaded.LastExecutedAt, time.Second)
}

func TestRuleRepository_DeleteCascadesToLedger(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	ruleRepo := p.RuleRepository()
	execRepo := p.ExecutionRepository()

	rule := createTestRule()
	require.NoError(t, ruleRepo.Save(ctx, rule))

	recordID, err := execRepo.Begin(ctx, rule.ID, "opportunity", "opp1", time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, ruleRepo.Delete(ctx, rule.ID))

	_, err = ruleRepo.GetByID(ctx, rule.ID)
	assert.True(t, persistence.IsRuleNotFound(err))

	_, err = execRepo.GetByID(ctx, recordID)
	assert.True(t, persistence.IsExecutionNotFound(err))
}
