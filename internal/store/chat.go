package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const chatColumns = `id, participant_a, participant_b, created_at, updated_at`

// Canonical returns the two participant IDs in sorted order.
func Canonical(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func scanChat(row rowScanner) (Chat, error) {
	var c Chat
	err := row.Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateChat inserts a chat for the unordered pair {a, b} unless one already
// exists, and returns the stored row. created is false when another writer
// got there first; the unique pair index makes this safe under concurrency.
func (db *DB) CreateChat(ctx context.Context, a, b string) (*Chat, bool, error) {
	pa, pb := Canonical(a, b)
	now := nowMillis()
	res, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO chats (`+chatColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(participant_a, participant_b) DO NOTHING`),
		uuid.NewString(), pa, pb, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("create chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	c, err := db.FindChat(ctx, pa, pb)
	if err != nil {
		return nil, false, err
	}
	if c == nil {
		return nil, false, fmt.Errorf("chat for %s/%s missing after insert", pa, pb)
	}
	return c, n == 1, nil
}

// FindChat returns the chat for the unordered pair {a, b}, or nil.
func (db *DB) FindChat(ctx context.Context, a, b string) (*Chat, error) {
	pa, pb := Canonical(a, b)
	c, err := scanChat(db.QueryRowContext(ctx, db.rebind(`
		SELECT `+chatColumns+` FROM chats
		WHERE participant_a = ? AND participant_b = ?`), pa, pb))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChat returns a single chat by ID, or nil.
func (db *DB) GetChat(ctx context.Context, id string) (*Chat, error) {
	c, err := scanChat(db.QueryRowContext(ctx, db.rebind(`SELECT `+chatColumns+` FROM chats WHERE id = ?`), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChats returns the chats userID takes part in, most recently active
// first.
func (db *DB) ListChats(ctx context.Context, userID string, limit int) ([]Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+chatColumns+` FROM chats
		WHERE participant_a = ? OR participant_b = ?
		ORDER BY updated_at DESC, id ASC
		LIMIT ?`), userID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// TouchChat moves the chat's updated_at forward to at. It reports whether the
// row changed.
func (db *DB) TouchChat(ctx context.Context, id string, at int64) (bool, error) {
	res, err := db.ExecContext(ctx, db.rebind(`UPDATE chats SET updated_at = ? WHERE id = ? AND updated_at < ?`), at, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
