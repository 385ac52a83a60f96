package logactivity

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/automaton/pkg/models"
)

func TestHandler_Execute(t *testing.T) {
	factory := NewFactory()
	assert.Equal(t, models.ActionLogActivity, factory.ID())

	handler, err := factory.Create()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	entity := models.Entity{ID: "opp1", Type: "opportunity"}

	result, err := handler.Execute(t.Context(), map[string]any{
		"message": "Quote followed up",
		"level":   "warn",
	}, entity, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "Quote followed up"}, result)
}

func TestHandler_Execute_InvalidConfig(t *testing.T) {
	handler := &Handler{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name   string
		config map[string]any
	}{
		{name: "missing message", config: map[string]any{"level": "info"}},
		{name: "unknown key", config: map[string]any{"message": "hi", "color": "red"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Execute(t.Context(), tt.config, models.Entity{ID: "opp1", Type: "opportunity"}, nil, logger)
			assert.Error(t, err)
		})
	}
}
