// Package kvstore implements the wascc:keyvalue capability provider: a
// get/set/delete key-value surface backed by a real SQL driver, selectable
// at config time between an embedded SQLite file and a Postgres database.
//
// A single Store interface is implemented by one *sql.DB-backed struct
// whose queries are dialect-switched, plus a pair of constructors
// (NewSQLiteStore, NewPostgresStore) that both drive the same interface.
package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Store is the persistence surface Provider drives. Both backends
// implement the same get/set/delete/exists contract so the capability's
// HandleCall logic never branches on which database is behind it.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) (existed bool, err error)
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// sqlStore implements Store over database/sql, dialect-switched between
// sqlite and postgres the same way requestlog.SQLWriter switches its DDL
// and placeholder style.
type sqlStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed Store at
// dsn. An empty dsn defaults to "caphost-kvstore.db" in the working
// directory.
func NewSQLiteStore(dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "caphost-kvstore.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite kvstore: %w", err)
	}
	s := &sqlStore{db: db, dialect: "sqlite"}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore opens a Postgres-backed Store using dsn (a standard
// libpq connection string).
func NewPostgresStore(dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres kvstore: %w", err)
	}
	s := &sqlStore{db: db, dialect: "postgres"}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping %s kvstore: %w", s.dialect, err)
	}

	valueType := "BLOB"
	if s.dialect == "postgres" {
		valueType = "BYTEA"
	}
	ddl := `
CREATE TABLE IF NOT EXISTS capability_kv (
	key   TEXT PRIMARY KEY,
	value ` + valueType + ` NOT NULL
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize kvstore schema: %w", err)
	}
	return nil
}

func (s *sqlStore) bind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.bind("SELECT value FROM capability_kv WHERE key = ?"), key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get kvstore key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *sqlStore) Set(ctx context.Context, key string, value []byte) error {
	var query string
	switch s.dialect {
	case "postgres":
		query = "INSERT INTO capability_kv(key, value) VALUES($1, $2) ON CONFLICT(key) DO UPDATE SET value = EXCLUDED.value"
	default:
		query = "INSERT INTO capability_kv(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	}
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set kvstore key %q: %w", key, err)
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.bind("DELETE FROM capability_kv WHERE key = ?"), key)
	if err != nil {
		return false, fmt.Errorf("delete kvstore key %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete kvstore key %q: %w", key, err)
	}
	return n > 0, nil
}

func (s *sqlStore) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.bind("SELECT 1 FROM capability_kv WHERE key = ?"), key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check kvstore key %q: %w", key, err)
	}
	return true, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
