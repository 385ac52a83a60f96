package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/driftline/automaton/pkg/models"
	"github.com/driftline/automaton/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{"execution_records", "workflow_rules", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("automaton_test"),
			postgres.WithUsername("automaton"),
			postgres.WithPassword("automaton"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	persistence, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = persistence.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return persistence, ctx, databaseURL
}

func createTestRule(overrides ...func(*models.WorkflowRule)) *models.WorkflowRule {
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

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))
}
