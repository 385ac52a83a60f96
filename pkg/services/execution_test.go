package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/persistence"
	"github.com/driftline/automaton/pkg/persistence/file"
)

func TestExecution_ListExecutions(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	rules := NewRule(store, nil, testLogger())
	executions := NewExecution(store, testLogger())

	rule, err := rules.CreateRule(t.Context(), validCreateRequest())
	require.NoError(t, err)

	ledger := store.ExecutionRepository()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		startedAt := base.Add(time.Duration(i) * time.Minute)

		recordID, err := ledger.Begin(t.Context(), rule.ID, "opportunity", "opp1", startedAt)
		require.NoError(t, err)

		err = ledger.Complete(t.Context(), recordID, models.ExecutionStatusCompleted, nil, startedAt.Add(time.Second))
		require.NoError(t, err)
	}

	records, err := executions.ListExecutions(t.Context(), rule.ID, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.True(t, records[0].StartedAt.After(records[1].StartedAt))
	assert.True(t, records[1].StartedAt.After(records[2].StartedAt))

	limited, err := executions.ListExecutions(t.Context(), rule.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestExecution_ListExecutions_UnknownRule(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	executions := NewExecution(store, testLogger())

	_, err := executions.ListExecutions(t.Context(), "missing", 0)
	require.Error(t, err)
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestExecution_GetExecution(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	rules := NewRule(store, nil, testLogger())
	executions := NewExecution(store, testLogger())

	rule, err := rules.CreateRule(t.Context(), validCreateRequest())
	require.NoError(t, err)

	recordID, err := store.ExecutionRepository().Begin(t.Context(), rule.ID, "opportunity", "opp1", time.Now().UTC())
	require.NoError(t, err)

	record, err := executions.GetExecution(t.Context(), recordID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, record.Status)

	_, err = executions.GetExecution(t.Context(), "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecution_PruneHistory(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	rules := NewRule(store, nil, testLogger())
	executions := NewExecution(store, testLogger())

	rule, err := rules.CreateRule(t.Context(), validCreateRequest())
	require.NoError(t, err)

	ledger := store.ExecutionRepository()

	oldStart := time.Now().UTC().Add(-60 * 24 * time.Hour)
	oldID, err := ledger.Begin(t.Context(), rule.ID, "opportunity", "opp1", oldStart)
	require.NoError(t, err)
	require.NoError(t, ledger.Complete(t.Context(), oldID, models.ExecutionStatusCompleted, nil, oldStart.Add(time.Second)))

	freshID, err := ledger.Begin(t.Context(), rule.ID, "opportunity", "opp2", time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, ledger.Complete(t.Context(), freshID, models.ExecutionStatusCompleted, nil, time.Now().UTC()))

	pruned, err := executions.PruneHistory(t.Context(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	remaining, err := ledger.ListByRule(t.Context(), rule.ID, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, freshID, remaining[0].ID)
}

func TestExecution_PruneHistory_InvalidRetention(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	executions := NewExecution(store, testLogger())

	_, err := executions.PruneHistory(t.Context(), 0)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}
