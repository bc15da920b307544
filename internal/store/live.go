package store

import (
	"context"
	"time"

	"github.com/matheus3301/collab/internal/bus"
)

// Tables and operations carried by row change events.
const (
	TableChats    = "chats"
	TableMessages = "messages"

	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"

	// RowPrefix matches every row change event.
	RowPrefix = "row."
)

// Change is the payload of a row change event. Origin identifies the process
// that wrote the row so bridges can drop their own echoes.
type Change struct {
	Table  string `json:"table"`
	Op     string `json:"op"`
	ChatID string `json:"chat_id"`
	RowID  string `json:"row_id"`
	Origin string `json:"origin"`
}

// Kind returns the bus event kind for the change.
func (c Change) Kind() string {
	return RowPrefix + c.Table + "." + c.ChatID + "." + c.Op
}

// MessagesTopic is the subscription prefix for message changes in one chat.
func MessagesTopic(chatID string) string {
	return RowPrefix + TableMessages + "." + chatID + "."
}

// Live is a DB whose writes announce row changes on the bus. Everything
// that must be observed by subscribers goes through it.
type Live struct {
	*DB
	bus    *bus.Bus
	origin string
}

// NewLive wraps db so writes publish on b. origin tags every change.
func NewLive(db *DB, b *bus.Bus, origin string) *Live {
	return &Live{DB: db, bus: b, origin: origin}
}

// Origin returns the tag put on locally produced changes.
func (l *Live) Origin() string { return l.origin }

// Subscribe registers a listener for change events whose kind starts with
// prefix.
func (l *Live) Subscribe(prefix string, bufSize int) (<-chan bus.Event, func()) {
	return l.bus.Subscribe(prefix, bufSize)
}

// CreateChat creates the chat and announces it when it is new.
func (l *Live) CreateChat(ctx context.Context, a, b string) (*Chat, bool, error) {
	c, created, err := l.DB.CreateChat(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	if created {
		l.emit(TableChats, OpInsert, c.ID, c.ID)
	}
	return c, created, nil
}

// TouchChat bumps the chat activity time and announces the update.
func (l *Live) TouchChat(ctx context.Context, id string, at int64) (bool, error) {
	changed, err := l.DB.TouchChat(ctx, id, at)
	if err != nil {
		return false, err
	}
	if changed {
		l.emit(TableChats, OpUpdate, id, id)
	}
	return changed, nil
}

// InsertMessage stores the message and announces the insert.
func (l *Live) InsertMessage(ctx context.Context, m *Message) (*Message, error) {
	out, err := l.DB.InsertMessage(ctx, m)
	if err != nil {
		return nil, err
	}
	l.emit(TableMessages, OpInsert, out.ChatID, out.ID)
	return out, nil
}

// MarkRead flags messages as read and announces the update if any changed.
func (l *Live) MarkRead(ctx context.Context, chatID, readerID string) (int64, error) {
	n, err := l.DB.MarkRead(ctx, chatID, readerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		l.emit(TableMessages, OpUpdate, chatID, "")
	}
	return n, nil
}

// Announce republishes a change produced elsewhere, keeping its origin.
func (l *Live) Announce(c Change) int {
	return l.bus.Publish(bus.Event{Kind: c.Kind(), Timestamp: time.Now(), Payload: c})
}

func (l *Live) emit(table, op, chatID, rowID string) {
	l.Announce(Change{Table: table, Op: op, ChatID: chatID, RowID: rowID, Origin: l.origin})
}
