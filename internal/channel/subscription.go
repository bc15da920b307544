package channel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/matheus3301/collab/internal/bus"
	"github.com/matheus3301/collab/internal/metrics"
	"github.com/matheus3301/collab/internal/store"
)

// Any event triggers a full re-fetch, so events dropped on a full buffer lose
// nothing.
const feedBuffer = 16

// Subscription is a live view of one chat. Callbacks of one subscription
// never run concurrently.
type Subscription struct {
	chatID  string
	cancel  context.CancelFunc
	release func()
	once    sync.Once
	done    chan struct{}

	// mu is held by run across the stopped check and the callback, so an
	// Unsubscribe cannot slip in between the two.
	mu         sync.Mutex
	stopped    atomic.Bool
	inCallback atomic.Bool
}

// Subscribe delivers the chat's full ordered history to onChange, first
// synchronously before returning and then again after every change to the
// chat's messages. Bursts of changes are coalesced into one re-fetch. The
// subscription ends on Unsubscribe or when ctx is done.
func (c *Channel) Subscribe(ctx context.Context, chatID string, onChange func([]store.Message)) (*Subscription, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("%w: chat id is required", ErrInvalidMessage)
	}
	if onChange == nil {
		return nil, fmt.Errorf("subscribe: nil callback")
	}

	// Listen before the initial read so no change between the two is missed.
	events, release := c.feed.Subscribe(store.MessagesTopic(chatID), feedBuffer)

	msgs, err := c.fetch(ctx, chatID)
	if err != nil {
		release()
		c.logger.Error("initial fetch failed", zap.String("op", "subscribe"), zap.String("chat_id", chatID), zap.Error(err))
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	onChange(msgs)

	runCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		chatID:  chatID,
		cancel:  cancel,
		release: release,
		done:    make(chan struct{}),
	}
	c.metrics.SubscriptionOpened()
	go c.run(runCtx, s, events, onChange)
	return s, nil
}

func (c *Channel) run(ctx context.Context, s *Subscription, events <-chan bus.Event, onChange func([]store.Message)) {
	defer close(s.done)
	defer c.metrics.SubscriptionClosed()
	defer s.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-events:
		}

	drain:
		for {
			select {
			case <-events:
			default:
				break drain
			}
		}

		if s.stopped.Load() {
			return
		}
		msgs, err := c.fetch(ctx, s.chatID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.metrics.FeedRefreshed(metrics.ResultError)
			c.logger.Warn("refresh failed, keeping last snapshot", zap.String("chat_id", s.chatID), zap.Error(err))
			continue
		}
		c.metrics.FeedRefreshed(metrics.ResultOK)
		if !s.deliver(onChange, msgs) {
			return
		}
	}
}

// deliver runs onChange unless the subscription was stopped.
func (s *Subscription) deliver(onChange func([]store.Message), msgs []store.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped.Load() {
		return false
	}
	s.inCallback.Store(true)
	defer s.inCallback.Store(false)
	onChange(msgs)
	return true
}

// ChatID returns the observed chat.
func (s *Subscription) ChatID() string { return s.chatID }

// Unsubscribe stops the subscription. It is idempotent, may be called from
// inside the callback, and no callback starts after it returns.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.inCallback.Load() {
			// Called from the callback itself, or racing one already started.
			s.stopped.Store(true)
		} else {
			s.mu.Lock()
			s.stopped.Store(true)
			s.mu.Unlock()
		}
		s.cancel()
		s.release()
	})
}

// Done is closed once the subscription has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
