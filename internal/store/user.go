package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const userColumns = `id, username, email, avatar, bio, role, is_visible, interests, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u         User
		interests string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Avatar, &u.Bio, &u.Role, &u.IsVisible, &interests, &u.CreatedAt); err != nil {
		return u, err
	}
	if interests != "" {
		if err := json.Unmarshal([]byte(interests), &u.Interests); err != nil {
			return u, fmt.Errorf("decode interests for %s: %w", u.ID, err)
		}
	}
	return u, nil
}

func encodeInterests(in []string) (string, error) {
	if in == nil {
		in = []string{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PutUser inserts or replaces a directory entry. An empty ID gets a fresh
// UUID and a zero CreatedAt gets the current time; created_at is never
// changed on update.
func (db *DB) PutUser(ctx context.Context, u *User) (*User, error) {
	in := *u
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt == 0 {
		in.CreatedAt = nowMillis()
	}
	interests, err := encodeInterests(in.Interests)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx, db.rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			email = excluded.email,
			avatar = excluded.avatar,
			bio = excluded.bio,
			role = excluded.role,
			is_visible = excluded.is_visible,
			interests = excluded.interests`),
		in.ID, in.Username, in.Email, in.Avatar, in.Bio, in.Role, in.IsVisible, interests, in.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("put user %s: %w", in.Username, err)
	}
	return db.GetUser(ctx, in.ID)
}

// InsertUserIfAbsent inserts u unless a user with the same ID or username
// already exists. It reports whether a row was written.
func (db *DB) InsertUserIfAbsent(ctx context.Context, u *User) (bool, error) {
	id := u.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := u.CreatedAt
	if createdAt == 0 {
		createdAt = nowMillis()
	}
	interests, err := encodeInterests(u.Interests)
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`),
		id, u.Username, u.Email, u.Avatar, u.Bio, u.Role, u.IsVisible, interests, createdAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetUser returns a user by ID, or nil if it does not exist.
func (db *DB) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, db.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListVisibleUsers returns every visible user except excludeID, newest first.
func (db *DB) ListVisibleUsers(ctx context.Context, excludeID string) ([]User, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+userColumns+`
		FROM users
		WHERE is_visible = ? AND id <> ?
		ORDER BY created_at DESC, username ASC`), true, excludeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ExistingUserIDs returns the subset of ids that exist in the directory.
func (db *DB) ExistingUserIDs(ctx context.Context, ids ...string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := db.QueryContext(ctx, db.rebind(`SELECT id FROM users WHERE id IN (`+placeholders(len(ids))+`)`), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var found []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found = append(found, id)
	}
	return found, rows.Err()
}
