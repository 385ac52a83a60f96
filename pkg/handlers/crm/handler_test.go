package crm_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/automaton/pkg/channels/gochannel"
	"github.com/driftline/automaton/pkg/eventbus"
	"github.com/driftline/automaton/pkg/events"
	"github.com/driftline/automaton/pkg/handlers/crm"
	"github.com/driftline/automaton/pkg/models"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestFactories_CoverCRMActionTypes(t *testing.T) {
	factories := crm.Factories(newTestBus(t))

	got := make(map[models.ActionType]bool)
	for _, factory := range factories {
		got[factory.ID()] = true
	}

	for _, actionType := range []models.ActionType{
		models.ActionCreateTask,
		models.ActionSendEmail,
		models.ActionUpdateStatus,
		models.ActionAssignTo,
		models.ActionAddTag,
	} {
		assert.True(t, got[actionType], "missing factory for %s", actionType)
	}
}

func TestHandler_Execute_PublishesActionRequest(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.ActionRequested, 1)

	err := bus.Handle(events.ActionRequestedEvent, func(_ context.Context, event any) error {
		request, ok := event.(*events.ActionRequested)
		require.True(t, ok)
		received <- request

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(t.Context()))

	handler, err := crm.NewFactory(models.ActionCreateTask, bus).Create()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	entity := models.Entity{ID: "opp1", Type: "opportunity"}

	result, err := handler.Execute(t.Context(), map[string]any{
		"title":       "Follow up with customer",
		"due_in_days": float64(3),
	}, entity, nil, logger)
	require.NoError(t, err)
	require.NotNil(t, result)

	select {
	case request := <-received:
		assert.Equal(t, models.ActionCreateTask, request.ActionType)
		assert.Equal(t, "opp1", request.EntityID)
		assert.Equal(t, "Follow up with customer", request.Payload["title"])
	case <-time.After(5 * time.Second):
		t.Fatal("action request was not delivered")
	}
}

func TestHandler_Execute_InvalidConfig(t *testing.T) {
	bus := newTestBus(t)

	handler, err := crm.NewFactory(models.ActionSendEmail, bus).Create()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// send_email requires both template and to.
	_, err = handler.Execute(t.Context(), map[string]any{"template": "quote_followup"}, models.Entity{ID: "opp1", Type: "opportunity"}, nil, logger)
	assert.Error(t, err)
}
