package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Outbox event kinds.
const (
	EventMessageCreated = "message.created"
)

// InsertMessage stores a new message. The ID and read flag are assigned here;
// CreatedAt defaults to now. When the outbox is enabled the relay event is
// queued in the same transaction.
func (db *DB) InsertMessage(ctx context.Context, m *Message) (*Message, error) {
	out := Message{
		ID:        uuid.NewString(),
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if out.CreatedAt == 0 {
		out.CreatedAt = nowMillis()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, db.rebind(`
		INSERT INTO messages (id, chat_id, sender_id, content, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		out.ID, out.ChatID, out.SenderID, out.Content, false, out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if db.outbox {
		evt := MessageEvent{
			EventID:   uuid.NewString(),
			Kind:      EventMessageCreated,
			ChatID:    out.ChatID,
			MessageID: out.ID,
			SenderID:  out.SenderID,
			Content:   out.Content,
			CreatedAt: out.CreatedAt,
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, db.rebind(`
			INSERT INTO outbox (event_id, kind, chat_id, payload, status, attempts, error_message, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 0, '', ?, ?)`),
			evt.EventID, evt.Kind, evt.ChatID, string(payload), outboxQueued, out.CreatedAt, out.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("queue outbox: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages returns every message in a chat, oldest first, with the
// sender's username and avatar joined from the directory.
func (db *DB) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT m.id, m.chat_id, m.sender_id, m.content, m.is_read, m.created_at,
			COALESCE(u.username, ''), COALESCE(u.avatar, '')
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.chat_id = ?
		ORDER BY m.created_at ASC, m.seq ASC`), chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.IsRead, &m.CreatedAt, &m.SenderName, &m.SenderAvatar); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkRead flags every unread message in the chat not sent by readerID as
// read and returns how many rows changed.
func (db *DB) MarkRead(ctx context.Context, chatID, readerID string) (int64, error) {
	res, err := db.ExecContext(ctx, db.rebind(`
		UPDATE messages SET is_read = ?
		WHERE chat_id = ? AND sender_id <> ? AND is_read = ?`),
		true, chatID, readerID, false)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
