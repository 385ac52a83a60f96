package file

import (
	"testing"
	"time"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRule(overrides ...func(*models.WorkflowRule)) *models.WorkflowRule {
	rule := &models.WorkflowRule{
		OwnerID:     "user-1",
		Name:        "High value quote follow-up",
		Description: "Create a follow-up task for big quotes",
		IsActive:    true,
		TriggerType: models.TriggerQuoteSent,
		Conditions: []models.Condition{
			{Field: models.FieldOpportunityValue, Operator: models.OperatorGreaterOrEqual, Value: 50000},
		},
		Actions: []models.Action{
			{Type: models.ActionCreateTask, Config: map[string]any{"title": "Follow up"}},
		},
	}

	for _, override := range overrides {
		override(rule)
	}

	return rule
}

func TestRuleRepository_SaveAndRoundTrip(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.RuleRepository()

	rule := testRule()
	require.NoError(t, repo.Save(t.Context(), rule))
	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())

	loaded, err := repo.GetByID(t.Context(), rule.ID)
	require.NoError(t, err)

	assert.Equal(t, rule.Name, loaded.Name)
	assert.Equal(t, rule.TriggerType, loaded.TriggerType)
	assert.Len(t, loaded.Conditions, 1)
	assert.Equal(t, models.FieldOpportunityValue, loaded.Conditions[0].Field)
	assert.Len(t, loaded.Actions, 1)
	assert.Equal(t, models.ActionCreateTask, loaded.Actions[0].Type)
	assert.Equal(t, 0, loaded.ExecutionCount)
	assert.Nil(t, loaded.LastExecutedAt)
}

func TestRuleRepository_GetByID_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.RuleRepository().GetByID(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRuleRepository_ListActive(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.RuleRepository()

	active := testRule()
	require.NoError(t, repo.Save(t.Context(), active))

	inactive := testRule(func(r *models.WorkflowRule) { r.IsActive = false })
	require.NoError(t, repo.Save(t.Context(), inactive))

	otherTrigger := testRule(func(r *models.WorkflowRule) { r.TriggerType = models.TriggerNoActivity })
	require.NoError(t, repo.Save(t.Context(), otherTrigger))

	rules, err := repo.ListActive(t.Context(), models.TriggerQuoteSent)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, active.ID, rules[0].ID)
}

func TestRuleRepository_ListRules_FilterAndPaginate(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.RuleRepository()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(t.Context(), testRule()))
	}

	other := testRule(func(r *models.WorkflowRule) { r.OwnerID = "user-2" })
	require.NoError(t, repo.Save(t.Context(), other))

	result, err := repo.ListRules(t.Context(), persistence.ListRulesOptions{OwnerID: "user-1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	assert.Len(t, result.Rules, 2)
	assert.True(t, result.HasNextPage)

	result, err = repo.ListRules(t.Context(), persistence.ListRulesOptions{OwnerID: "user-1", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, result.Rules, 1)
	assert.False(t, result.HasNextPage)

	_, err = repo.ListRules(t.Context(), persistence.ListRulesOptions{SortBy: "owner_id"})
	assert.Error(t, err)
}

func TestRuleRepository_SetActiveAndRecordExecution(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.RuleRepository()

	rule := testRule()
	require.NoError(t, repo.Save(t.Context(), rule))

	require.NoError(t, repo.SetActive(t.Context(), rule.ID, false))

	loaded, err := repo.GetByID(t.Context(), rule.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsActive)

	executedAt := time.Now().UTC()
	require.NoError(t, repo.RecordExecution(t.Context(), rule.ID, executedAt))

	loaded, err = repo.GetByID(t.Context(), rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.ExecutionCount)
	require.NotNil(t, loaded.LastExecutedAt)
	assert.WithinDuration(t, executedAt, *loaded.LastExecutedAt, time.Second)
}

func TestRuleRepository_DeleteCascades(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ruleRepo := p.RuleRepository()
	execRepo := p.ExecutionRepository()

	rule := testRule()
	require.NoError(t, ruleRepo.Save(t.Context(), rule))

	recordID, err := execRepo.Begin(t.Context(), rule.ID, "opportunity", "opp1", time.Now().UTC())
	require.NoError(t, err)
	require.NotEmpty(t, recordID)

	require.NoError(t, ruleRepo.Delete(t.Context(), rule.ID))

	_, err = ruleRepo.GetByID(t.Context(), rule.ID)
	assert.True(t, persistence.IsRuleNotFound(err))

	records, err := execRepo.ListByRule(t.Context(), rule.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExecutionRepository_ClaimCooldown(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	rule := testRule(func(r *models.WorkflowRule) { r.CooldownHours = 24 })
	rule.ID = "rule-1"

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	claim, err := repo.Claim(t.Context(), rule, "opportunity", "opp1", start)
	require.NoError(t, err)
	require.True(t, claim.Accepted())

	// One hour later the cooldown window still blocks, even though the first
	// execution is only running.
	claim, err = repo.Claim(t.Context(), rule, "opportunity", "opp1", start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, persistence.ClaimRejectedCooldown, claim.Rejection)

	// A different entity is unaffected.
	claim, err = repo.Claim(t.Context(), rule, "opportunity", "opp2", start.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, claim.Accepted())

	// 25 hours later the window has elapsed.
	claim, err = repo.Claim(t.Context(), rule, "opportunity", "opp1", start.Add(25*time.Hour))
	require.NoError(t, err)
	assert.True(t, claim.Accepted())
}

func TestExecutionRepository_ClaimMaxExecutions(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	max := 2
	rule := testRule(func(r *models.WorkflowRule) { r.MaxExecutionsPerEntity = &max })
	rule.ID = "rule-1"

	now := time.Now().UTC()

	// Two completed executions consume the budget.
	for i := 0; i < 2; i++ {
		claim, err := repo.Claim(t.Context(), rule, "opportunity", "opp1", now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.True(t, claim.Accepted())

		err = repo.Complete(t.Context(), claim.RecordID, models.ExecutionStatusCompleted, nil, now)
		require.NoError(t, err)
	}

	claim, err := repo.Claim(t.Context(), rule, "opportunity", "opp1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, persistence.ClaimRejectedMaxExecutions, claim.Rejection)
}

func TestExecutionRepository_FailedDoesNotConsumeBudget(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	max := 1
	rule := testRule(func(r *models.WorkflowRule) { r.MaxExecutionsPerEntity = &max })
	rule.ID = "rule-1"

	now := time.Now().UTC()

	claim, err := repo.Claim(t.Context(), rule, "opportunity", "opp1", now)
	require.NoError(t, err)
	require.True(t, claim.Accepted())
	require.NoError(t, repo.Complete(t.Context(), claim.RecordID, models.ExecutionStatusFailed, nil, now))

	// Failed attempt did not burn the budget.
	claim, err = repo.Claim(t.Context(), rule, "opportunity", "opp1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, claim.Accepted())
}

func TestExecutionRepository_CompleteTransitions(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	now := time.Now().UTC()

	recordID, err := repo.Begin(t.Context(), "rule-1", "opportunity", "opp1", now)
	require.NoError(t, err)

	record, err := repo.GetByID(t.Context(), recordID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, record.Status)
	assert.Nil(t, record.CompletedAt)

	result := []models.ActionResult{
		{ActionType: models.ActionCreateTask, Success: true},
		{ActionType: models.ActionSendEmail, Success: false, Error: "smtp unavailable"},
	}
	require.NoError(t, repo.Complete(t.Context(), recordID, models.ExecutionStatusFailed, result, now.Add(time.Second)))

	record, err = repo.GetByID(t.Context(), recordID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, record.Status)
	require.NotNil(t, record.CompletedAt)
	assert.Equal(t, result, record.Result)

	// A terminal record cannot be completed again.
	err = repo.Complete(t.Context(), recordID, models.ExecutionStatusCompleted, nil, now)
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrExecutionAlreadyTerminal)

	// Running is not a terminal status.
	otherID, err := repo.Begin(t.Context(), "rule-1", "opportunity", "opp2", now)
	require.NoError(t, err)
	err = repo.Complete(t.Context(), otherID, models.ExecutionStatusRunning, nil, now)
	assert.Error(t, err)
}

func TestExecutionRepository_ListByRule(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := repo.Begin(t.Context(), "rule-1", "opportunity", "opp1", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	_, err := repo.Begin(t.Context(), "rule-2", "opportunity", "opp1", base)
	require.NoError(t, err)

	records, err := repo.ListByRule(t.Context(), "rule-1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.True(t, records[0].StartedAt.After(records[1].StartedAt))
}

func TestExecutionRepository_PruneOlderThan(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.ExecutionRepository()

	old := time.Now().UTC().Add(-90 * 24 * time.Hour)
	recent := time.Now().UTC()

	oldTerminal, err := repo.Begin(t.Context(), "rule-1", "opportunity", "opp1", old)
	require.NoError(t, err)
	require.NoError(t, repo.Complete(t.Context(), oldTerminal, models.ExecutionStatusCompleted, nil, old))

	// Old but still running: kept.
	oldRunning, err := repo.Begin(t.Context(), "rule-1", "opportunity", "opp2", old)
	require.NoError(t, err)

	recentTerminal, err := repo.Begin(t.Context(), "rule-1", "opportunity", "opp3", recent)
	require.NoError(t, err)
	require.NoError(t, repo.Complete(t.Context(), recentTerminal, models.ExecutionStatusCompleted, nil, recent))

	pruned, err := repo.PruneOlderThan(t.Context(), recent.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	_, err = repo.GetByID(t.Context(), oldRunning)
	require.NoError(t, err)

	_, err = repo.GetByID(t.Context(), recentTerminal)
	require.NoError(t, err)

	_, err = repo.GetByID(t.Context(), oldTerminal)
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestPersistence_HealthCheck(t *testing.T) {
	dir := t.TempDir()
	p := NewPersistence(dir)
	require.NoError(t, p.HealthCheck(t.Context()))
	require.NoError(t, p.Close(t.Context()))

	missing := NewPersistence(dir + "/does-not-exist")
	assert.Error(t, missing.HealthCheck(t.Context()))
}
