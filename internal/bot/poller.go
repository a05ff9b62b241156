package bot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/innotech/hrbot/internal/models"
	"github.com/innotech/hrbot/internal/storage"
)

// Poller periodically fetches unread HR messages for one user, hands them to
// the deliver callback and marks them read. It only reads and reconciles;
// the lifetime is tied to the conversation view via Start/Stop so no timer
// outlives its owner.
type Poller struct {
	store    storage.Storage
	userID   string
	interval time.Duration
	deliver  func(*models.Message)
	logger   *zap.Logger

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

func NewPoller(store storage.Storage, userID string, interval time.Duration, deliver func(*models.Message), logger *zap.Logger) *Poller {
	return &Poller{
		store:    store,
		userID:   userID,
		interval: interval,
		deliver:  deliver,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (p *Poller) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop cancels the poll loop and waits for it to exit. Safe to call more
// than once.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}

func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	ctx := context.Background()

	unread, err := p.store.UnreadForUser(ctx, p.userID)
	if err != nil {
		p.logger.Error("failed to fetch unread messages",
			zap.Error(err),
			zap.String("user_id", p.userID))
		return
	}
	if len(unread) == 0 {
		return
	}

	ids := make([]string, 0, len(unread))
	for _, msg := range unread {
		p.deliver(msg)
		ids = append(ids, msg.ID)
	}

	if err := p.store.MarkRead(ctx, ids); err != nil {
		p.logger.Error("failed to mark messages read",
			zap.Error(err),
			zap.String("user_id", p.userID))
	}
}
