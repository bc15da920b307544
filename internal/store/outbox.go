package store

import (
	"context"
	"database/sql"
)

// Outbox entry states.
const (
	outboxQueued = "queued"
	outboxSent   = "sent"
	outboxFailed = "failed"
)

// PendingOutbox returns up to limit queued entries in insertion order.
func (db *DB) PendingOutbox(ctx context.Context, limit int) ([]OutboxEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT id, event_id, kind, chat_id, payload, status, attempts, error_message
		FROM outbox WHERE status = ? ORDER BY id ASC LIMIT ?`), outboxQueued, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.Kind, &e.ChatID, &e.Payload, &e.Status, &e.Attempts, &e.ErrorMessage); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkOutboxSent marks an entry as delivered.
func (db *DB) MarkOutboxSent(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, db.rebind(`UPDATE outbox SET status = ?, updated_at = ? WHERE id = ?`), outboxSent, nowMillis(), id)
	return err
}

// RecordOutboxFailure bumps the attempt counter of an entry. Once maxAttempts
// is reached the entry is marked failed and no longer returned by
// PendingOutbox. It reports whether the entry gave up.
func (db *DB) RecordOutboxFailure(ctx context.Context, e OutboxEntry, errMsg string, maxAttempts int) (bool, error) {
	attempts := e.Attempts + 1
	status := outboxQueued
	if maxAttempts > 0 && attempts >= maxAttempts {
		status = outboxFailed
	}
	_, err := db.ExecContext(ctx, db.rebind(`
		UPDATE outbox SET status = ?, attempts = ?, error_message = ?, updated_at = ?
		WHERE id = ?`), status, attempts, errMsg, nowMillis(), e.ID)
	if err != nil {
		return false, err
	}
	return status == outboxFailed, nil
}

// OutboxStatus returns the status of the entry with the given event ID, or
// an empty string if there is none.
func (db *DB) OutboxStatus(ctx context.Context, eventID string) (string, error) {
	var status string
	err := db.QueryRowContext(ctx, db.rebind(`SELECT status FROM outbox WHERE event_id = ?`), eventID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return status, nil
}
