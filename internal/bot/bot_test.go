package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/innotech/hrbot/internal/assistant"
	"github.com/innotech/hrbot/internal/models"
	"github.com/innotech/hrbot/internal/storage"
)

var alice = models.Identity{ID: "u1", Email: "alice@company.com", Name: "Alice"}

type stubAssistant struct {
	reply   assistant.Reply
	err     error
	history []assistant.Turn
}

func (s *stubAssistant) Reply(ctx context.Context, history []assistant.Turn, userText string) (assistant.Reply, error) {
	s.history = append([]assistant.Turn(nil), history...)
	return s.reply, s.err
}

func newConversation(t *testing.T, asst assistant.Assistant) (*Conversation, storage.Storage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	return NewConversation(store, asst, alice, zap.NewNop()), store
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestWelcome(t *testing.T) {
	conv, store := newConversation(t, nil)
	ctx := context.Background()

	text := conv.Welcome(ctx)
	assert.Contains(t, text, "Hi Alice!")
	assert.Equal(t, StateIdle, conv.State())

	entries, err := store.History(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bot", entries[0].From)
}

func TestLeaveFlow(t *testing.T) {
	conv, store := newConversation(t, nil)
	ctx := context.Background()

	replies, err := conv.HandleIntent(ctx, IntentLeave)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, StateAwaitingLeaveDates, conv.State())

	replies, err = conv.HandleLeaveDates(ctx, date("2024-01-10"), date("2024-01-12"))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "submitted for 3 days")
	assert.Equal(t, StateIdle, conv.State())

	requests, err := store.Requests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, models.RequestLeave, req.Type)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.False(t, req.Escalated)
	assert.Equal(t, "Leave Request: 2024-01-10 to 2024-01-12 (3 days)", req.Message)
	require.NotNil(t, req.Dates)
	assert.Equal(t, date("2024-01-10"), req.Dates.Start)
}

func TestLeaveFlowInvalidRange(t *testing.T) {
	conv, store := newConversation(t, nil)
	ctx := context.Background()

	_, err := conv.HandleIntent(ctx, IntentLeave)
	require.NoError(t, err)

	replies, err := conv.HandleLeaveDates(ctx, date("2024-01-12"), date("2024-01-10"))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "end date cannot be before the start date")

	// Still waiting for dates; nothing was filed.
	assert.Equal(t, StateAwaitingLeaveDates, conv.State())
	requests, err := store.Requests(ctx)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestLeaveDays(t *testing.T) {
	days, err := LeaveDays(date("2024-01-10"), date("2024-01-12"))
	require.NoError(t, err)
	assert.Equal(t, 3, days)

	days, err = LeaveDays(date("2024-01-10"), date("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, days)

	_, err = LeaveDays(date("2024-01-12"), date("2024-01-10"))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestHarassmentReportIsAlwaysEscalated(t *testing.T) {
	conv, store := newConversation(t, nil)
	ctx := context.Background()

	_, err := conv.HandleIntent(ctx, IntentHarassment)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingFreeText, conv.State())

	replies, err := conv.HandleText(ctx, "incident details")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "escalated to HR immediately")
	assert.Equal(t, StateIdle, conv.State())

	requests, err := store.Requests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.RequestHarassment, requests[0].Type)
	assert.True(t, requests[0].Escalated)
}

func TestEscalateIntentFilesEscalatedRequest(t *testing.T) {
	conv, store := newConversation(t, nil)
	ctx := context.Background()

	_, err := conv.HandleIntent(ctx, IntentEscalate)
	require.NoError(t, err)
	_, err = conv.HandleText(ctx, "please help")
	require.NoError(t, err)

	requests, err := store.Requests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.RequestGeneral, requests[0].Type)
	assert.True(t, requests[0].Escalated)
}

func TestIssueWithoutAssistantGoesToFreeText(t *testing.T) {
	conv, store := newConversation(t, nil)
	ctx := context.Background()

	_, err := conv.HandleIntent(ctx, IntentIssue)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingFreeText, conv.State())

	_, err = conv.HandleText(ctx, "my badge stopped working")
	require.NoError(t, err)

	requests, err := store.Requests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.RequestIssue, requests[0].Type)
	assert.False(t, requests[0].Escalated)
}

func TestIdleTextFallsBackToCannedReply(t *testing.T) {
	conv, _ := newConversation(t, nil)
	ctx := context.Background()

	replies, err := conv.HandleText(ctx, "hello there")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "use the buttons in the sidebar")
	assert.Equal(t, StateIdle, conv.State())
}

func TestIdleTextPolicyKnowledgeBase(t *testing.T) {
	conv, _ := newConversation(t, nil)
	ctx := context.Background()

	tests := []struct {
		question string
		want     string
	}{
		{"what is the leave policy?", "Leave Policy"},
		{"remote work policy?", "Remote Work Policy"},
		{"policy on sick days", "Sick Leave"},
		{"what is the dress code policy?", "Leave, Remote Work, and Sick policies"},
	}
	for _, tt := range tests {
		replies, err := conv.HandleText(ctx, tt.question)
		require.NoError(t, err)
		require.Len(t, replies, 1, tt.question)
		assert.Contains(t, replies[0], tt.want, tt.question)
	}
}

func TestAssistantEscalationOffer(t *testing.T) {
	stub := &stubAssistant{reply: assistant.Reply{Text: "Try X.", ShouldEscalate: true}}
	conv, store := newConversation(t, stub)
	ctx := context.Background()

	_, err := conv.HandleIntent(ctx, IntentIssue)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingAssistant, conv.State())

	replies, err := conv.HandleText(ctx, "I have a serious conflict with my manager")
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "Try X.", replies[0])
	assert.Contains(t, replies[1], "escalate this ticket to HR now")
	assert.Equal(t, StateOfferingEscalation, conv.State())

	// Declining help files an escalated ticket with a system-authored summary.
	replies, err = conv.HandleConfirm(ctx, false)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "escalated this to HR immediately")
	assert.Equal(t, StateIdle, conv.State())

	requests, err := store.Requests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "Escalated: AI could not resolve issue.", requests[0].Message)
	assert.True(t, requests[0].Escalated)
}

func TestAssistantEscalationDeclined(t *testing.T) {
	stub := &stubAssistant{reply: assistant.Reply{Text: "Try X.", ShouldEscalate: true}}
	conv, store := newConversation(t, stub)
	ctx := context.Background()

	_, err := conv.HandleIntent(ctx, IntentIssue)
	require.NoError(t, err)
	_, err = conv.HandleText(ctx, "question")
	require.NoError(t, err)

	replies, err := conv.HandleConfirm(ctx, true)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "glad I could help")
	assert.Equal(t, StateIdle, conv.State())

	// Solved threads never file a ticket.
	requests, err := store.Requests(ctx)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestAssistantConversationContinues(t *testing.T) {
	stub := &stubAssistant{reply: assistant.Reply{Text: "Payroll closes on the 25th."}}
	conv, _ := newConversation(t, stub)
	ctx := context.Background()

	_, err := conv.HandleIntent(ctx, IntentIssue)
	require.NoError(t, err)

	replies, err := conv.HandleText(ctx, "when is payroll cutoff?")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, StateAwaitingAssistant, conv.State())
	assert.Empty(t, stub.history)

	// The second turn carries the first exchange as history.
	_, err = conv.HandleText(ctx, "and the insurance provider?")
	require.NoError(t, err)
	require.Len(t, stub.history, 2)
	assert.Equal(t, assistant.RoleUser, stub.history[0].Role)
	assert.Equal(t, "when is payroll cutoff?", stub.history[0].Text)
	assert.Equal(t, assistant.RoleAssistant, stub.history[1].Role)
}

func TestAssistantFailureIsSurfacedInline(t *testing.T) {
	stub := &stubAssistant{err: errors.New("dial tcp: connection refused")}
	conv, _ := newConversation(t, stub)
	ctx := context.Background()

	_, err := conv.HandleIntent(ctx, IntentIssue)
	require.NoError(t, err)

	replies, err := conv.HandleText(ctx, "hello?")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.True(t, strings.HasPrefix(replies[0], "Connection Error:"))
	assert.Contains(t, replies[0], "connection refused")
	// The user can retry without restarting the flow.
	assert.Equal(t, StateAwaitingAssistant, conv.State())
}

func TestEndChat(t *testing.T) {
	stub := &stubAssistant{reply: assistant.Reply{Text: "sure"}}
	conv, _ := newConversation(t, stub)
	ctx := context.Background()

	_, err := conv.HandleIntent(ctx, IntentIssue)
	require.NoError(t, err)

	replies, err := conv.EndChat(ctx)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Conversation ended")
	assert.Equal(t, StateIdle, conv.State())

	_, err = conv.EndChat(ctx)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEventsRejectedInWrongState(t *testing.T) {
	conv, _ := newConversation(t, nil)
	ctx := context.Background()

	_, err := conv.HandleConfirm(ctx, true)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = conv.HandleLeaveDates(ctx, date("2024-01-10"), date("2024-01-12"))
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = conv.HandleIntent(ctx, IntentLeave)
	require.NoError(t, err)
	_, err = conv.HandleIntent(ctx, IntentIssue)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = conv.HandleText(ctx, "typed while picking dates")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStoreFailureYieldsApology(t *testing.T) {
	conv := NewConversation(failingStore{}, nil, alice, zap.NewNop())
	ctx := context.Background()

	_, err := conv.HandleIntent(ctx, IntentIssue)
	require.NoError(t, err)

	replies, err := conv.HandleText(ctx, "my issue")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Sorry, I couldn't save your request")
	// Input is kept so the user can retry.
	assert.Equal(t, StateAwaitingFreeText, conv.State())
}

// failingStore errors on writes to exercise the apology path.
type failingStore struct {
	storage.Storage
}

func (failingStore) SubmitRequest(ctx context.Context, draft storage.RequestDraft, submitter models.Identity) (*models.Request, error) {
	return nil, errors.New("disk full")
}

func (failingStore) AppendHistory(ctx context.Context, userID string, entry models.ChatEntry) error {
	return nil
}
