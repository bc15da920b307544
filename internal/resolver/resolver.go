// Package resolver maps an unordered pair of users to their single
// conversation, creating it on first contact.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/collab/internal/metrics"
	"github.com/matheus3301/collab/internal/store"
)

var (
	ErrMissingParticipant  = errors.New("participant id is required")
	ErrSameParticipant     = errors.New("participants must be distinct")
	ErrUnknownParticipants = errors.New("neither participant exists in the directory")
	ErrNotFound            = errors.New("chat not found")
)

// Store is the slice of the row store the resolver needs.
type Store interface {
	FindChat(ctx context.Context, a, b string) (*store.Chat, error)
	CreateChat(ctx context.Context, a, b string) (*store.Chat, bool, error)
	GetChat(ctx context.Context, id string) (*store.Chat, error)
	ListChats(ctx context.Context, userID string, limit int) ([]store.Chat, error)
	ExistingUserIDs(ctx context.Context, ids ...string) ([]string, error)
}

// Resolver implements get-or-create of two-party chats.
type Resolver struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration
	metrics *metrics.Metrics
}

// New creates a resolver. A zero timeout means 30s.
func New(st Store, logger *zap.Logger, timeout time.Duration, m *metrics.Metrics) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{store: st, logger: logger.Named("resolver"), timeout: timeout, metrics: m}
}

// GetOrCreate returns the ID of the chat between a and b, creating it when
// none exists. (a, b) and (b, a) always resolve to the same chat. A non-nil
// error means the conversation is unavailable and nothing may be sent.
func (r *Resolver) GetOrCreate(ctx context.Context, a, b string) (string, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return "", ErrMissingParticipant
	}
	if a == b {
		return "", ErrSameParticipant
	}
	a, b = store.Canonical(a, b)
	log := r.logger.With(zap.String("participant_a", a), zap.String("participant_b", b))

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	existing, err := r.store.FindChat(ctx, a, b)
	if err != nil {
		log.Error("chat lookup failed", zap.Error(err))
		return "", fmt.Errorf("find chat: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	found, err := r.store.ExistingUserIDs(ctx, a, b)
	if err != nil {
		log.Error("participant check failed", zap.Error(err))
		return "", fmt.Errorf("check participants: %w", err)
	}
	switch len(found) {
	case 0:
		log.Warn("refusing to create chat for unknown participants")
		return "", ErrUnknownParticipants
	case 1:
		missing := a
		if slices.Contains(found, a) {
			missing = b
		}
		log.Warn("participant missing from directory, creating chat anyway", zap.String("missing", missing))
	}

	c, created, err := r.store.CreateChat(ctx, a, b)
	if err != nil {
		log.Error("chat creation failed", zap.Error(err))
		return "", fmt.Errorf("create chat: %w", err)
	}
	if created {
		r.metrics.ChatCreated()
		log.Info("chat created", zap.String("chat_id", c.ID))
	} else {
		log.Debug("chat created concurrently, reusing", zap.String("chat_id", c.ID))
	}
	return c.ID, nil
}

// Get returns a chat by ID.
func (r *Resolver) Get(ctx context.Context, chatID string) (*store.Chat, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	c, err := r.store.GetChat(ctx, chatID)
	if err != nil {
		r.logger.Error("get chat failed", zap.String("chat_id", chatID), zap.Error(err))
		return nil, fmt.Errorf("get chat: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// List returns the chats userID takes part in, most recently active first.
func (r *Resolver) List(ctx context.Context, userID string, limit int) ([]store.Chat, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingParticipant
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	chats, err := r.store.ListChats(ctx, userID, limit)
	if err != nil {
		r.logger.Error("list chats failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	return chats, nil
}
