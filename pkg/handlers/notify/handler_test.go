package notify_test

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
	"github.com/driftline/automaton/pkg/handlers/notify"
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

func TestHandler_Execute_PublishesNotification(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.UserNotification, 1)

	err := bus.Handle(events.UserNotificationEvent, func(_ context.Context, event any) error {
		notification, ok := event.(*events.UserNotification)
		require.True(t, ok)
		received <- notification

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(t.Context()))

	factory := notify.NewFactory(bus)
	assert.Equal(t, models.ActionNotifyUser, factory.ID())

	handler, err := factory.Create()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	entity := models.Entity{ID: "opp1", Type: "opportunity"}

	result, err := handler.Execute(t.Context(), map[string]any{
		"user_id": "user-7",
		"message": "Big deal needs attention",
	}, entity, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"user_id": "user-7"}, result)

	select {
	case notification := <-received:
		assert.Equal(t, "user-7", notification.UserID)
		assert.Equal(t, "Big deal needs attention", notification.Message)
		assert.Equal(t, "opp1", notification.EntityID)
	case <-time.After(5 * time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestHandler_Execute_InvalidConfig(t *testing.T) {
	bus := newTestBus(t)

	handler, err := notify.NewFactory(bus).Create()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_, err = handler.Execute(t.Context(), map[string]any{"user_id": "user-7"}, models.Entity{ID: "opp1", Type: "opportunity"}, nil, logger)
	assert.Error(t, err)
}
