package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/marina/internal/logging"
)

func TestPublishFillsDefaults(t *testing.T) {
	bus := NewBus(4)
	ctx := logging.WithUserID(logging.WithTraceID(context.Background(), "t-1"), "u-1")

	bus.Publish(ctx, Changed(EntityBoats, ActionCreated, "b1"))

	recent := bus.Recent(10)
	require.Len(t, recent, 1)
	ev := recent[0]
	assert.Equal(t, "boats.created", ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, "t-1", ev.TraceID)
	assert.Equal(t, "u-1", ev.UserID)
	assert.Contains(t, ev.String(), `"entityID":"b1"`)
}

func TestRingBufferWraps(t *testing.T) {
	bus := NewBus(3)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		bus.Publish(context.Background(), Changed(EntityUsers, ActionUpdated, id))
	}

	assert.Equal(t, 3, bus.Count())
	recent := bus.Recent(5)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"5", "4", "3"}, []string{recent[0].EntityID, recent[1].EntityID, recent[2].EntityID})
	assert.Len(t, bus.Recent(2), 2)
	assert.Empty(t, bus.Recent(0))
	assert.Empty(t, NewBus(0).Recent(1))
}

func TestSubscribeOrderAndUnsubscribe(t *testing.T) {
	bus := NewBus(10)
	var calls []string

	unsubA := bus.Subscribe(func(_ context.Context, ev EntityChanged) { calls = append(calls, "a:"+ev.Type) })
	bus.Subscribe(func(_ context.Context, ev EntityChanged) { calls = append(calls, "b:"+ev.Type) })

	bus.Publish(context.Background(), Changed(EntityBoats, ActionRemoved, "x"))
	unsubA()
	bus.Publish(context.Background(), Changed(EntityUsers, ActionCreated, "y"))

	assert.Equal(t, []string{"a:boats.removed", "b:boats.removed", "b:users.created"}, calls)
}

func TestLogChangesAndNoop(t *testing.T) {
	handler := LogChanges(logging.NewDiscard("test"))
	handler(context.Background(), Changed(EntityUsers, ActionCreated, "1"))
	Noop{}.Publish(context.Background(), Changed(EntityUsers, ActionCreated, "1"))
}
