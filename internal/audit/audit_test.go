package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueStampsAndStoreListsPerUser(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(0)
	q := NewQueue(4)

	require.NoError(t, q.Emit(ctx, Event{UserID: "u1", Action: ActionUserCreated}))
	require.NoError(t, q.Emit(ctx, Event{UserID: "u2", Action: ActionLoginFailed}))
	for range 2 {
		require.NoError(t, store.Append(ctx, <-q.Events()))
	}

	events, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionUserCreated, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero())

	events[0].Action = ActionLogout
	again, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ActionUserCreated, again[0].Action)
}

func TestInMemoryStoreKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(2)
	for _, subject := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(ctx, Event{UserID: "u1", Subject: subject}))
	}

	events, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Subject)
	assert.Equal(t, "c", events[1].Subject)
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Emit(context.Background(), Event{UserID: "u1"}))
	assert.ErrorIs(t, q.Emit(context.Background(), Event{UserID: "u1"}), ErrQueueFull)
}

func TestWorkerPersistsAndDrainsOnStop(t *testing.T) {
	store := NewInMemoryStore(0)
	q := NewQueue(8)
	w := NewWorker(store, q.Events())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, q.Emit(ctx, Event{UserID: "u1", Action: ActionLogout}))
	require.Eventually(t, func() bool {
		events, _ := store.ListByUser(context.Background(), "u1")
		return len(events) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, q.Emit(ctx, Event{UserID: "u1", Action: ActionLoginSucceeded}))
	cancel()
	require.NoError(t, <-done)

	events, err := store.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
