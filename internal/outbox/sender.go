// Package outbox relays queued message events to an external broker.
package outbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/collab/internal/bus"
	"github.com/matheus3301/collab/internal/metrics"
	"github.com/matheus3301/collab/internal/store"
)

// Bus event kinds published by the sender.
const (
	EventPublished = "outbox.published"
	EventGaveUp    = "outbox.gave_up"
)

const batchSize = 100

// Publisher delivers one outbox entry to the broker.
type Publisher interface {
	Publish(ctx context.Context, e store.OutboxEntry) error
}

// Store is the outbox slice of the row store.
type Store interface {
	PendingOutbox(ctx context.Context, limit int) ([]store.OutboxEntry, error)
	MarkOutboxSent(ctx context.Context, id int64) error
	RecordOutboxFailure(ctx context.Context, e store.OutboxEntry, errMsg string, maxAttempts int) (bool, error)
}

// Sender drains the outbox on a fixed interval.
type Sender struct {
	db          Store
	pub         Publisher
	bus         *bus.Bus
	metrics     *metrics.Metrics
	logger      *zap.Logger
	interval    time.Duration
	maxAttempts int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSender creates a new outbox sender. A zero interval means 500ms.
func NewSender(db Store, pub Publisher, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger, interval time.Duration, maxAttempts int) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Sender{
		db:          db,
		pub:         pub,
		bus:         b,
		metrics:     m,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Start begins polling the outbox for pending entries.
func (s *Sender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop stops the sender loop and waits for the current batch to finish.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sender) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processPending publishes every queued entry once and returns how many
// were delivered.
func (s *Sender) processPending(ctx context.Context) int {
	pending, err := s.db.PendingOutbox(ctx, batchSize)
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return 0
	}

	sent := 0
	for _, entry := range pending {
		if ctx.Err() != nil {
			return sent
		}
		if err := s.pub.Publish(ctx, entry); err != nil {
			s.fail(ctx, entry, err)
			continue
		}
		if err := s.db.MarkOutboxSent(ctx, entry.ID); err != nil {
			// The entry stays queued and will be published again.
			s.logger.Error("failed to mark sent", zap.Error(err), zap.String("event_id", entry.EventID))
			continue
		}
		sent++
		s.metrics.OutboxPublished(metrics.ResultOK)
		s.logger.Debug("event published",
			zap.String("event_id", entry.EventID),
			zap.String("kind", entry.Kind),
			zap.String("chat_id", entry.ChatID),
		)
		s.publish(EventPublished, entry, "")
	}
	return sent
}

func (s *Sender) fail(ctx context.Context, entry store.OutboxEntry, pubErr error) {
	s.metrics.OutboxPublished(metrics.ResultError)
	gaveUp, err := s.db.RecordOutboxFailure(ctx, entry, pubErr.Error(), s.maxAttempts)
	if err != nil {
		s.logger.Error("failed to record outbox failure", zap.Error(err), zap.String("event_id", entry.EventID))
		return
	}
	if !gaveUp {
		s.logger.Warn("publish failed, will retry",
			zap.String("event_id", entry.EventID),
			zap.Int("attempt", entry.Attempts+1),
			zap.Error(pubErr),
		)
		return
	}
	s.metrics.OutboxPublished(metrics.ResultFailed)
	s.logger.Error("publish failed, giving up",
		zap.String("event_id", entry.EventID),
		zap.Int("attempts", entry.Attempts+1),
		zap.Error(pubErr),
	)
	s.publish(EventGaveUp, entry, pubErr.Error())
}

func (s *Sender) publish(kind string, entry store.OutboxEntry, errMsg string) {
	if s.bus == nil {
		return
	}
	payload := map[string]string{"event_id": entry.EventID, "chat_id": entry.ChatID}
	if errMsg != "" {
		payload["error"] = errMsg
	}
	s.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
