package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/innotech/hrbot/internal/models"
)

func newFileStore(t *testing.T, path string) *FileStorage {
	t.Helper()
	store, err := NewFileStorage(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFileStoragePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portal.json")

	store := newFileStore(t, path)
	req, err := store.SubmitRequest(ctx, RequestDraft{Type: models.RequestLeave, Message: "leave"}, alice)
	require.NoError(t, err)
	require.NoError(t, store.SaveScores(ctx, alice.ID, models.ScoreMap{"s1": 75}))
	require.NoError(t, store.AppendHistory(ctx, alice.ID, models.ChatEntry{ID: "e1", From: "bot", Text: "hi", Timestamp: time.Now()}))
	require.NoError(t, store.Close())

	reopened := newFileStore(t, path)
	got, err := reopened.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestLeave, got.Type)

	scores, err := reopened.Scores(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, scores["s1"])

	entries, err := reopened.History(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStorageStartsEmptyWithoutFile(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t, filepath.Join(t.TempDir(), "portal.json"))

	requests, err := store.Requests(ctx)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

// An external writer replaces local state wholesale; there is no merging.
func TestFileStorageExternalChange(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portal.json")

	store := newFileStore(t, path)
	changed := make(chan struct{}, 1)
	store.SetOnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	// A second session on the same file stands in for another tab.
	other := newFileStore(t, path)
	req, err := other.SubmitRequest(ctx, RequestDraft{Type: models.RequestIssue, Message: "from other tab"}, bob)
	require.NoError(t, err)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for external change notification")
	}

	got, err := store.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "from other tab", got.Message)
}

func TestFileStorageClearPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portal.json")

	store := newFileStore(t, path)
	_, err := store.SubmitRequest(ctx, RequestDraft{Type: models.RequestIssue, Message: "issue"}, alice)
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Close())

	reopened := newFileStore(t, path)
	requests, err := reopened.Requests(ctx)
	require.NoError(t, err)
	assert.Empty(t, requests)
}
