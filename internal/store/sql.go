package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"PerpIndexer/internal/entity"
)

// Dialect selects placeholder syntax and schema bootstrap.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// sqliteSchema mirrors migrations/000001_entities.up.sql. Postgres gets its
// schema from the migrator.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entities (
	kind       TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (kind, id)
)`

// SQL stores every entity as a JSON document in one (kind, id) keyed table.
type SQL struct {
	db      *sql.DB
	dialect Dialect

	loadQuery   string
	saveQuery   string
	deleteQuery string
}

// OpenPostgres connects to Postgres. The entities table must already exist.
func OpenPostgres(dsn string) (*SQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return NewSQL(db, DialectPostgres), nil
}

// OpenSQLite opens (or creates) a SQLite file and bootstraps the schema.
func OpenSQLite(path string) (*SQL, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// Single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return NewSQL(db, DialectSQLite), nil
}

// NewSQL wraps an open handle.
func NewSQL(db *sql.DB, dialect Dialect) *SQL {
	s := &SQL{db: db, dialect: dialect}
	s.loadQuery = s.bind(`SELECT data FROM entities WHERE kind = ? AND id = ?`)
	s.saveQuery = s.bind(`INSERT INTO entities (kind, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`)
	s.deleteQuery = s.bind(`DELETE FROM entities WHERE kind = ? AND id = ?`)
	return s
}

// bind rewrites ? placeholders to $n for Postgres.
func (s *SQL) bind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) Load(ctx context.Context, kind entity.Kind, key string, dst entity.Record) error {
	var data []byte
	err := s.db.QueryRowContext(ctx, s.loadQuery, kind.String(), key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select %s %q: %w", kind, key, err)
	}
	return decode(kind, key, data, dst)
}

func (s *SQL) Save(ctx context.Context, rec entity.Record) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}
	// Sent as text so Postgres can cast it to JSONB.
	if _, err := s.db.ExecContext(ctx, s.saveQuery,
		rec.Kind().String(), rec.Key(), string(data), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("upsert %s %q: %w", rec.Kind(), rec.Key(), err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, kind entity.Kind, key string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, kind.String(), key); err != nil {
		return fmt.Errorf("delete %s %q: %w", kind, key, err)
	}
	return nil
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for schema migrations.
func (s *SQL) DB() *sql.DB {
	return s.db
}
