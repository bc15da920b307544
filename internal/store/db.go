package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps the row store connection. Queries are written with '?'
// placeholders and rebound for PostgreSQL.
type DB struct {
	*sql.DB
	driver string
	outbox bool
}

// Option configures a DB.
type Option func(*DB)

// WithOutbox makes every message insert also queue a relay event in the
// same transaction.
func WithOutbox() Option {
	return func(db *DB) { db.outbox = true }
}

// Open connects to the row store. For sqlite, dsn is a file path or URI and
// WAL mode plus the recommended pragmas are appended to its query; for
// postgres it is a pgx DSN.
func Open(driver, dsn string, opts ...Option) (*DB, error) {
	var sqlDriver string
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
		sqlDriver = "sqlite3"
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres DSN is empty")
		}
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := &DB{DB: conn, driver: driver}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Driver returns the configured driver name.
func (db *DB) Driver() string { return db.driver }

// OutboxEnabled reports whether message inserts queue relay events.
func (db *DB) OutboxEnabled() bool { return db.outbox }

// Stats returns row counts for the status endpoint.
func (db *DB) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM chats),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM outbox WHERE status = ?)`), outboxQueued).
		Scan(&s.Users, &s.Chats, &s.Messages, &s.PendingOutbox)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
