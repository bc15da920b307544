// Package channel appends messages to chats and keeps observers supplied
// with the full, ordered history of a chat.
package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/collab/internal/bus"
	"github.com/matheus3301/collab/internal/metrics"
	"github.com/matheus3301/collab/internal/store"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotParticipant = errors.New("user is not a participant of the chat")
)

// Store is the slice of the row store the channel needs. Writes must be
// announced on the feed; store.Live does both.
type Store interface {
	GetChat(ctx context.Context, id string) (*store.Chat, error)
	InsertMessage(ctx context.Context, m *store.Message) (*store.Message, error)
	TouchChat(ctx context.Context, id string, at int64) (bool, error)
	ListMessages(ctx context.Context, chatID string) ([]store.Message, error)
	MarkRead(ctx context.Context, chatID, readerID string) (int64, error)
}

// Feed delivers row change events by kind prefix.
type Feed interface {
	Subscribe(prefix string, bufSize int) (<-chan bus.Event, func())
}

// Channel implements send and observe for chats.
type Channel struct {
	store   Store
	feed    Feed
	logger  *zap.Logger
	timeout time.Duration
	metrics *metrics.Metrics
}

// New creates a channel. A zero timeout means 30s.
func New(st Store, feed Feed, logger *zap.Logger, timeout time.Duration, m *metrics.Metrics) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Channel{
		store:   st,
		feed:    feed,
		logger:  logger.Named("channel"),
		timeout: timeout,
		metrics: m,
	}
}

// Send appends a message to an existing chat. Content is stored trimmed.
// Validation failures return ErrInvalidMessage without touching the store.
// The chat activity time is bumped on a best-effort basis.
func (c *Channel) Send(ctx context.Context, chatID, senderID, content string) (*store.Message, error) {
	chatID = strings.TrimSpace(chatID)
	senderID = strings.TrimSpace(senderID)
	text := strings.TrimSpace(content)
	switch {
	case chatID == "":
		c.metrics.MessageSent(metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: chat id is required", ErrInvalidMessage)
	case senderID == "":
		c.metrics.MessageSent(metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: sender id is required", ErrInvalidMessage)
	case text == "":
		c.metrics.MessageSent(metrics.ResultInvalid)
		return nil, fmt.Errorf("%w: content is empty", ErrInvalidMessage)
	}
	log := c.logger.With(zap.String("chat_id", chatID), zap.String("sender_id", senderID))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chat, err := c.store.GetChat(ctx, chatID)
	if err != nil {
		c.metrics.MessageSent(metrics.ResultError)
		log.Error("chat lookup failed", zap.String("op", "send"), zap.Error(err))
		return nil, fmt.Errorf("send: lookup chat: %w", err)
	}
	if chat == nil {
		c.metrics.MessageSent(metrics.ResultInvalid)
		log.Warn("send to unknown chat")
		return nil, fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}

	msg, err := c.store.InsertMessage(ctx, &store.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   text,
		CreatedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		c.metrics.MessageSent(metrics.ResultError)
		log.Error("insert message failed", zap.String("op", "send"), zap.Error(err))
		return nil, fmt.Errorf("send: insert: %w", err)
	}

	if _, err := c.store.TouchChat(ctx, chatID, msg.CreatedAt); err != nil {
		log.Warn("chat activity update failed", zap.String("message_id", msg.ID), zap.Error(err))
	}

	c.metrics.MessageSent(metrics.ResultOK)
	log.Debug("message sent", zap.String("message_id", msg.ID))
	return msg, nil
}

// History returns the complete ordered history of a chat with sender
// details joined.
func (c *Channel) History(ctx context.Context, chatID string) ([]store.Message, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("%w: chat id is required", ErrInvalidMessage)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chat, err := c.store.GetChat(ctx, chatID)
	if err != nil {
		c.logger.Error("chat lookup failed", zap.String("op", "history"), zap.String("chat_id", chatID), zap.Error(err))
		return nil, fmt.Errorf("history: lookup chat: %w", err)
	}
	if chat == nil {
		return nil, fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}

	msgs, err := c.store.ListMessages(ctx, chatID)
	if err != nil {
		c.logger.Error("list messages failed", zap.String("op", "history"), zap.String("chat_id", chatID), zap.Error(err))
		return nil, fmt.Errorf("history: %w", err)
	}
	return msgs, nil
}

// MarkRead flags every message in the chat sent by the other participant as
// read and returns how many changed. Observers receive a refreshed snapshot.
func (c *Channel) MarkRead(ctx context.Context, chatID, readerID string) (int64, error) {
	chatID = strings.TrimSpace(chatID)
	readerID = strings.TrimSpace(readerID)
	if chatID == "" || readerID == "" {
		return 0, fmt.Errorf("%w: chat id and reader id are required", ErrInvalidMessage)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chat, err := c.store.GetChat(ctx, chatID)
	if err != nil {
		c.logger.Error("chat lookup failed", zap.String("op", "mark_read"), zap.String("chat_id", chatID), zap.Error(err))
		return 0, fmt.Errorf("mark read: lookup chat: %w", err)
	}
	if chat == nil {
		return 0, fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}
	if !chat.Has(readerID) {
		return 0, ErrNotParticipant
	}

	n, err := c.store.MarkRead(ctx, chatID, readerID)
	if err != nil {
		c.logger.Error("mark read failed", zap.String("chat_id", chatID), zap.String("reader_id", readerID), zap.Error(err))
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return n, nil
}

func (c *Channel) fetch(ctx context.Context, chatID string) ([]store.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.store.ListMessages(ctx, chatID)
}
