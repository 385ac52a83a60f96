package registry

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/automaton/pkg/handlers/logactivity"
	"github.com/driftline/automaton/pkg/models"
)

func TestRegistry_RegisterAndCreate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	r := NewRegistry(logger)

	r.RegisterHandler(logactivity.NewFactory())

	handler, err := r.CreateHandler(models.ActionLogActivity)
	require.NoError(t, err)
	assert.NotNil(t, handler)

	assert.Contains(t, r.RegisteredTypes(), models.ActionLogActivity)
}

func TestRegistry_CreateUnregistered(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	r := NewRegistry(logger)

	_, err := r.CreateHandler(models.ActionSendEmail)
	assert.Error(t, err)
}
