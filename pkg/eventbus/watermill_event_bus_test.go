package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/automaton/pkg/channels/gochannel"
	"github.com/driftline/automaton/pkg/eventbus"
	"github.com/driftline/automaton/pkg/events"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	received := make(chan *events.RuleSkipped, 1)

	err = bus.Handle(events.RuleSkippedEvent, func(_ context.Context, event any) error {
		skipped, ok := event.(*events.RuleSkipped)
		require.True(t, ok)
		received <- skipped

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(t.Context()))

	published := events.RuleSkipped{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.RuleSkippedEvent,
			Timestamp: time.Now().UTC(),
			RuleID:    "rule-1",
			EntityID:  "opp1",
		},
		Reason: "skipped_cooldown",
	}

	require.NoError(t, bus.Publish(t.Context(), "rule-1", published))

	select {
	case got := <-received:
		assert.Equal(t, published.RuleID, got.RuleID)
		assert.Equal(t, published.Reason, got.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
