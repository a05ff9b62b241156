package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/innotech/hrbot/internal/models"
)

// FileStorage persists the whole document as one JSON file, the moral
// equivalent of the browser's local key-value store: every mutation rewrites
// the full document, last writer wins. A watcher picks up writes made by
// other processes and replaces the in-memory state wholesale; there is no
// merging, matching the accepted cross-tab consistency limitation.
type FileStorage struct {
	mu       sync.Mutex
	mem      *MemoryStorage
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	done     chan struct{}
	closed   sync.Once
	logger   *zap.Logger
}

func NewFileStorage(path string, logger *zap.Logger) (*FileStorage, error) {
	s := &FileStorage{
		mem:    NewMemoryStorage(),
		path:   path,
		done:   make(chan struct{}),
		logger: logger,
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load store file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: editors and atomic renames replace the file node.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch store directory: %w", err)
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

// SetOnChange registers a callback invoked after an external write has
// replaced the local state. The new state is already visible when it fires.
func (s *FileStorage) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *FileStorage) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return err
	}
	s.mem.restore(doc)
	return nil
}

func (s *FileStorage) flush() error {
	rev := s.mem.bumpRevision()
	data, err := json.MarshalIndent(s.mem.snapshot(), "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename so watchers never observe a torn document.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}

	s.logger.Debug("flushed store file",
		zap.String("path", s.path),
		zap.Int64("revision", rev))
	return nil
}

func (s *FileStorage) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.reloadIfChanged()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("store watcher error", zap.Error(err))
		}
	}
}

// reloadIfChanged replaces local state when the on-disk revision differs
// from ours, so our own flushes don't echo back as external changes.
func (s *FileStorage) reloadIfChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Error("failed to re-read store file", zap.Error(err))
		return
	}
	doc := newDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		// Likely a torn concurrent write; the next event will retry.
		s.logger.Warn("ignoring unparsable store file", zap.Error(err))
		return
	}
	if doc.Revision == s.mem.revision() {
		return
	}

	s.mem.restore(doc)
	s.logger.Info("reloaded store after external change",
		zap.Int64("revision", doc.Revision))
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *FileStorage) SubmitRequest(ctx context.Context, draft RequestDraft, submitter models.Identity) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.mem.SubmitRequest(ctx, draft, submitter)
	if err != nil {
		return nil, err
	}
	return req, s.flush()
}

func (s *FileStorage) RequestByID(ctx context.Context, id string) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.RequestByID(ctx, id)
}

func (s *FileStorage) Requests(ctx context.Context) ([]*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.Requests(ctx)
}

func (s *FileStorage) UpdateRequestStatus(ctx context.Context, id string, status models.RequestStatus, note string) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := s.mem.UpdateRequestStatus(ctx, id, status, note)
	if err != nil {
		return nil, err
	}
	return req, s.flush()
}

func (s *FileStorage) Stats(ctx context.Context) (models.RequestStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.Stats(ctx)
}

func (s *FileStorage) SendMessage(ctx context.Context, requestID, userID, text string, from models.MessageSender) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.mem.SendMessage(ctx, requestID, userID, text, from)
	if err != nil {
		return nil, err
	}
	return msg, s.flush()
}

func (s *FileStorage) UnreadForUser(ctx context.Context, userID string) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.UnreadForUser(ctx, userID)
}

func (s *FileStorage) MarkRead(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.MarkRead(ctx, ids); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStorage) Scores(ctx context.Context, userID string) (models.ScoreMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.Scores(ctx, userID)
}

func (s *FileStorage) SaveScores(ctx context.Context, userID string, scores models.ScoreMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.SaveScores(ctx, userID, scores); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStorage) Progress(ctx context.Context, userID string) (map[string]models.CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.Progress(ctx, userID)
}

func (s *FileStorage) SaveProgress(ctx context.Context, userID string, progress map[string]models.CourseProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.SaveProgress(ctx, userID, progress); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStorage) AppendHistory(ctx context.Context, userID string, entry models.ChatEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.AppendHistory(ctx, userID, entry); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStorage) History(ctx context.Context, userID string) ([]models.ChatEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.History(ctx, userID)
}

func (s *FileStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.Clear(ctx); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStorage) Close() error {
	var err error
	s.closed.Do(func() {
		close(s.done)
		err = s.watcher.Close()
	})
	return err
}
