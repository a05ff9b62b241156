package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/innotech/hrbot/internal/models"
)

// document is the whole persisted state. The file backend serializes it as a
// single JSON document, mirroring the original single key-value store.
type document struct {
	Revision int64                                       `json:"revision"`
	Requests []*models.Request                           `json:"requests"`
	Messages []*models.Message                           `json:"messages"`
	Scores   map[string]models.ScoreMap                  `json:"scores"`
	Progress map[string]map[string]models.CourseProgress `json:"course_progress"`
	History  map[string][]models.ChatEntry               `json:"chat_history"`
}

func newDocument() *document {
	return &document{
		Scores:   make(map[string]models.ScoreMap),
		Progress: make(map[string]map[string]models.CourseProgress),
		History:  make(map[string][]models.ChatEntry),
	}
}

// MemoryStorage keeps everything in process memory. It backs tests and the
// file store, which persists a snapshot after each mutation.
type MemoryStorage struct {
	mu  sync.RWMutex
	doc *document
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{doc: newDocument()}
}

// Request methods

func (s *MemoryStorage) SubmitRequest(ctx context.Context, draft RequestDraft, submitter models.Identity) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := &models.Request{
		ID:        uuid.New().String(),
		Type:      draft.Type,
		Message:   draft.Message,
		Dates:     draft.Dates,
		Escalated: draft.Escalated,
		Status:    models.StatusPending,
		Timestamp: time.Now(),
		UserID:    submitter.ID,
		UserName:  submitter.Name,
	}
	if req.Type == models.RequestHarassment {
		req.Escalated = true
	}

	// Newest first for listing; lookup is by id and order-independent.
	s.doc.Requests = append([]*models.Request{req}, s.doc.Requests...)

	out := *req
	return &out, nil
}

func (s *MemoryStorage) RequestByID(ctx context.Context, id string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, req := range s.doc.Requests {
		if req.ID == id {
			out := *req
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) Requests(ctx context.Context) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Request, 0, len(s.doc.Requests))
	for _, req := range s.doc.Requests {
		r := *req
		out = append(out, &r)
	}
	return out, nil
}

func (s *MemoryStorage) UpdateRequestStatus(ctx context.Context, id string, status models.RequestStatus, note string) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req *models.Request
	for _, r := range s.doc.Requests {
		if r.ID == id {
			req = r
			break
		}
	}
	if req == nil {
		return nil, ErrNotFound
	}
	if err := checkTransition(req.Status, status); err != nil {
		return nil, err
	}

	req.Status = status
	if text := notificationText(req.ID, status, note); text != "" {
		s.doc.Messages = append(s.doc.Messages, &models.Message{
			ID:        uuid.New().String(),
			RequestID: req.ID,
			UserID:    req.UserID,
			From:      models.SenderHR,
			Message:   text,
			Timestamp: time.Now(),
		})
	}

	out := *req
	return &out, nil
}

func (s *MemoryStorage) Stats(ctx context.Context) (models.RequestStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ComputeStats(s.doc.Requests), nil
}

// Message methods

func (s *MemoryStorage) SendMessage(ctx context.Context, requestID, userID, text string, from models.MessageSender) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &models.Message{
		ID:        uuid.New().String(),
		RequestID: requestID,
		UserID:    userID,
		From:      from,
		Message:   text,
		Timestamp: time.Now(),
	}
	s.doc.Messages = append(s.doc.Messages, msg)

	out := *msg
	return &out, nil
}

func (s *MemoryStorage) UnreadForUser(ctx context.Context, userID string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Message
	for _, msg := range s.doc.Messages {
		if msg.UserID == userID && !msg.Read {
			m := *msg
			out = append(out, &m)
		}
	}
	return out, nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	for _, msg := range s.doc.Messages {
		if wanted[msg.ID] {
			msg.Read = true
		}
	}
	return nil
}

// Score methods

func (s *MemoryStorage) Scores(ctx context.Context, userID string) (models.ScoreMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if scores, ok := s.doc.Scores[userID]; ok {
		return scores.Clone(), nil
	}
	return models.ScoreMap{}, nil
}

func (s *MemoryStorage) SaveScores(ctx context.Context, userID string, scores models.ScoreMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Scores[userID] = scores.Clone()
	return nil
}

func (s *MemoryStorage) Progress(ctx context.Context, userID string) (map[string]models.CourseProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.CourseProgress, len(s.doc.Progress[userID]))
	for k, v := range s.doc.Progress[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStorage) SaveProgress(ctx context.Context, userID string, progress map[string]models.CourseProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make(map[string]models.CourseProgress, len(progress))
	for k, v := range progress {
		cp[k] = v
	}
	s.doc.Progress[userID] = cp
	return nil
}

// History methods

func (s *MemoryStorage) AppendHistory(ctx context.Context, userID string, entry models.ChatEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.History[userID] = append(s.doc.History[userID], entry)
	return nil
}

func (s *MemoryStorage) History(ctx context.Context, userID string) ([]models.ChatEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.ChatEntry(nil), s.doc.History[userID]...), nil
}

func (s *MemoryStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rev := s.doc.Revision
	s.doc = newDocument()
	s.doc.Revision = rev
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func (s *MemoryStorage) snapshot() *document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := *s.doc
	return &cp
}

func (s *MemoryStorage) restore(doc *document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.Scores == nil {
		doc.Scores = make(map[string]models.ScoreMap)
	}
	if doc.Progress == nil {
		doc.Progress = make(map[string]map[string]models.CourseProgress)
	}
	if doc.History == nil {
		doc.History = make(map[string][]models.ChatEntry)
	}
	s.doc = doc
}

func (s *MemoryStorage) bumpRevision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Revision++
	return s.doc.Revision
}

func (s *MemoryStorage) revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.doc.Revision
}

// checkTransition enforces the request lifecycle: pending may move to
// approved, rejected or replied; replied accepts follow-up replies;
// approved and rejected are terminal.
func checkTransition(from, to models.RequestStatus) error {
	switch to {
	case models.StatusApproved, models.StatusRejected, models.StatusReplied:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == models.StatusPending {
		return nil
	}
	if from == models.StatusReplied && to == models.StatusReplied {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// notificationText is the automatic message enqueued for the request owner
// on a status change.
func notificationText(requestID string, status models.RequestStatus, note string) string {
	switch status {
	case models.StatusApproved:
		return fmt.Sprintf("Your request #%s has been APPROVED.", requestID)
	case models.StatusRejected:
		return fmt.Sprintf("Your request #%s has been REJECTED.", requestID)
	case models.StatusReplied:
		return fmt.Sprintf("HR Reply regarding request #%s: %s", requestID, note)
	}
	return ""
}
