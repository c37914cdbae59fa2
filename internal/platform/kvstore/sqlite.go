package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

const sqliteUpsert = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLiteStore persists values in a single sqlite table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// SQLiteOption customises SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteClock overrides the clock used for updated_at.
func WithSQLiteClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// OpenSQLite opens (creating when needed) the database at path. ":memory:" is accepted for tests.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("kvstore: sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open sqlite: %w", err)
	}
	// One connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kvstore: migrate sqlite: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey("get", key); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get", key)
	}
	if err != nil {
		return nil, unavailable("get", key, err)
	}
	return value, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey("set", key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, sqliteUpsert, key, value, s.now().UTC()); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := validateKey("delete", key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return unavailable("delete", key, err)
	}
	return nil
}

// Update implements Store inside one sqlite transaction.
func (s *SQLiteStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := validateKey("update", key); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("update", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	var current []byte
	exists := true
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return unavailable("update", key, err)
	}

	next, write, err := apply(fn, current, exists)
	if err != nil || !write {
		return err
	}
	if next == nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	} else {
		_, err = tx.ExecContext(ctx, sqliteUpsert, key, next, s.now().UTC())
	}
	if err != nil {
		return unavailable("update", key, err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("update", key, err)
	}
	return nil
}

// Keys implements Scanner. Keys compare bytewise, and 0xff never occurs in UTF-8, so
// [prefix, prefix+"\xff") holds exactly the keys that start with prefix.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string, limit int) ([]string, error) {
	query := `SELECT key FROM kv WHERE key >= ? AND key < ? ORDER BY key`
	args := []any{prefix, prefix + "\xff"}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("keys", prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, unavailable("keys", prefix, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("keys", prefix, err)
	}
	return keys, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
