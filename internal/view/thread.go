// Package view holds client-side projections of daemon state.
package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/collab/internal/rpc"
)

// Thread is a read-only projection of one chat's messages. It is only ever
// replaced wholesale by a newer snapshot.
type Thread struct {
	mu       sync.RWMutex
	chatID   string
	seq      int64
	messages []rpc.Message

	refreshCh chan struct{}
}

func NewThread(chatID string) *Thread {
	return &Thread{
		chatID:    chatID,
		refreshCh: make(chan struct{}, 1),
	}
}

func (t *Thread) ChatID() string { return t.chatID }

// RefreshCh signals that the thread changed. Signals coalesce.
func (t *Thread) RefreshCh() <-chan struct{} {
	return t.refreshCh
}

// Apply replaces the thread with snap. Snapshots for another chat or older
// than the current one are ignored; Apply reports whether the thread changed.
func (t *Thread) Apply(snap *rpc.MessageSnapshot) bool {
	if snap == nil || snap.ChatID != t.chatID {
		return false
	}
	t.mu.Lock()
	if snap.Seq != 0 && snap.Seq <= t.seq {
		t.mu.Unlock()
		return false
	}
	t.seq = snap.Seq
	t.messages = slices.Clone(snap.Messages)
	t.mu.Unlock()

	select {
	case t.refreshCh <- struct{}{}:
	default:
	}
	return true
}

// Messages returns a copy of the current message list.
func (t *Thread) Messages() []rpc.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

func (t *Thread) Seq() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seq
}

// Unread counts messages not yet read by readerID, excluding its own.
func (t *Thread) Unread(readerID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, m := range t.messages {
		if !m.IsRead && m.SenderID != readerID {
			n++
		}
	}
	return n
}

// Follow applies snapshots from a WatchMessages stream until the stream ends
// or ctx is cancelled. onApply, if set, runs after every applied snapshot.
// Each stream numbers its snapshots from 1, so Follow restarts the sequence;
// the current messages stay until the new stream's first snapshot.
func (t *Thread) Follow(ctx context.Context, mc rpc.MessageClient, onApply func(*Thread)) error {
	stream, err := mc.WatchMessages(ctx, &rpc.WatchMessagesRequest{ChatID: t.chatID})
	if err != nil {
		return fmt.Errorf("watch %s: %w", t.chatID, err)
	}
	t.mu.Lock()
	t.seq = 0
	t.mu.Unlock()
	for {
		snap, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("watch %s: %w", t.chatID, err)
		}
		if t.Apply(snap) && onApply != nil {
			onApply(t)
		}
	}
}

// Render writes one line per message. Messages sent by viewerID are labelled
// "you".
func (t *Thread) Render(w io.Writer, viewerID string) error {
	for _, m := range t.Messages() {
		if err := RenderMessage(w, m, viewerID); err != nil {
			return err
		}
	}
	return nil
}

func RenderMessage(w io.Writer, m rpc.Message, viewerID string) error {
	who := m.SenderName
	switch {
	case viewerID != "" && m.SenderID == viewerID:
		who = "you"
	case who == "":
		who = m.SenderID
	}
	mark := " "
	if !m.IsRead {
		mark = "*"
	}
	ts := time.UnixMilli(m.CreatedAt).Format("2006-01-02 15:04")
	_, err := fmt.Fprintf(w, "%s %s %s: %s\n", mark, ts, Sanitize(who), Sanitize(m.Content))
	return err
}
