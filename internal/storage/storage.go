package storage

import (
	"context"
	"errors"

	"github.com/innotech/hrbot/internal/models"
)

var (
	ErrNotFound          = errors.New("request not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEmptyMessage      = errors.New("message text is empty")
)

// RequestDraft is the caller-supplied part of a new request. ID, timestamp,
// status and submitter identity are assigned by the store.
type RequestDraft struct {
	Type      models.RequestType
	Message   string
	Dates     *models.DateRange
	Escalated bool
}

type RequestStore interface {
	// SubmitRequest creates a pending request. Harassment reports are
	// force-escalated regardless of the draft flag.
	SubmitRequest(ctx context.Context, draft RequestDraft, submitter models.Identity) (*models.Request, error)
	RequestByID(ctx context.Context, id string) (*models.Request, error)
	// Requests lists the full log, newest first.
	Requests(ctx context.Context) ([]*models.Request, error)
	// UpdateRequestStatus applies a status transition and notifies the
	// request owner. Approved and rejected are terminal; replied may be
	// re-entered with a follow-up. note is the HR reply text for
	// StatusReplied and ignored otherwise.
	UpdateRequestStatus(ctx context.Context, id string, status models.RequestStatus, note string) (*models.Request, error)
	Stats(ctx context.Context) (models.RequestStats, error)
}

type MessageStore interface {
	SendMessage(ctx context.Context, requestID, userID, text string, from models.MessageSender) (*models.Message, error)
	// UnreadForUser returns unread messages targeted at exactly userID.
	UnreadForUser(ctx context.Context, userID string) ([]*models.Message, error)
	// MarkRead is idempotent; unknown or already-read ids are no-ops.
	MarkRead(ctx context.Context, ids []string) error
}

type ScoreStore interface {
	Scores(ctx context.Context, userID string) (models.ScoreMap, error)
	SaveScores(ctx context.Context, userID string, scores models.ScoreMap) error
	Progress(ctx context.Context, userID string) (map[string]models.CourseProgress, error)
	SaveProgress(ctx context.Context, userID string, progress map[string]models.CourseProgress) error
}

type HistoryStore interface {
	AppendHistory(ctx context.Context, userID string, entry models.ChatEntry) error
	History(ctx context.Context, userID string) ([]models.ChatEntry, error)
}

type Storage interface {
	RequestStore
	MessageStore
	ScoreStore
	HistoryStore

	// Clear wipes every collection. Individual requests are never deleted.
	Clear(ctx context.Context) error
	Close() error
}
