package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/innotech/hrbot/internal/models"
	"github.com/innotech/hrbot/internal/storage"
)

func TestPollerDeliversAndMarksRead(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	_, err := store.SendMessage(ctx, "", alice.ID, "for alice", models.SenderHR)
	require.NoError(t, err)
	_, err = store.SendMessage(ctx, "", "u2", "for bob", models.SenderHR)
	require.NoError(t, err)

	delivered := make(chan *models.Message, 10)
	poller := NewPoller(store, alice.ID, 10*time.Millisecond, func(msg *models.Message) {
		delivered <- msg
	}, zap.NewNop())
	poller.Start()
	defer poller.Stop()

	select {
	case msg := <-delivered:
		assert.Equal(t, alice.ID, msg.UserID)
		assert.Equal(t, "for alice", msg.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	// Delivered messages are marked read and never re-delivered.
	require.Eventually(t, func() bool {
		unread, err := store.UnreadForUser(ctx, alice.ID)
		return err == nil && len(unread) == 0
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case msg := <-delivered:
		t.Fatalf("unexpected second delivery: %q", msg.Message)
	case <-time.After(100 * time.Millisecond):
	}

	// Bob's message stays untouched.
	unread, err := store.UnreadForUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}

func TestPollerStopIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStorage()
	poller := NewPoller(store, alice.ID, time.Hour, func(*models.Message) {}, zap.NewNop())

	poller.Start()
	poller.Stop()
	poller.Stop()
}
