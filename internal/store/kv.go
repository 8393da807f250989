package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/prefixdb"

	"PerpIndexer/internal/entity"
)

// KV stores records in a luxfi/database, one prefixed table per kind.
type KV struct {
	db     database.Database
	tables map[entity.Kind]database.Database

	mu     sync.RWMutex
	closed bool
}

// NewMemory creates an in-memory KV store.
func NewMemory() *KV {
	return newKV(memdb.New())
}

// OpenKV opens (or creates) a BadgerDB-backed store at path.
func OpenKV(path string) (*KV, error) {
	db, err := badgerdb.New(path, nil, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open badgerdb: %w", err)
	}
	return newKV(db), nil
}

func newKV(db database.Database) *KV {
	s := &KV{
		db:     db,
		tables: make(map[entity.Kind]database.Database, len(entity.Kinds)),
	}
	for _, kind := range entity.Kinds {
		s.tables[kind] = prefixdb.New([]byte(kind.String()+":"), db)
	}
	return s
}

func (s *KV) table(kind entity.Kind) (database.Database, error) {
	t, ok := s.tables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	return t, nil
}

func (s *KV) Load(ctx context.Context, kind entity.Kind, key string, dst entity.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return database.ErrClosed
	}

	t, err := s.table(kind)
	if err != nil {
		return err
	}
	data, err := t.Get([]byte(key))
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s %q: %w", kind, key, err)
	}
	return decode(kind, key, data, dst)
}

func (s *KV) Save(ctx context.Context, rec entity.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return database.ErrClosed
	}

	t, err := s.table(rec.Kind())
	if err != nil {
		return err
	}
	data, err := encode(rec)
	if err != nil {
		return err
	}
	if err := t.Put([]byte(rec.Key()), data); err != nil {
		return fmt.Errorf("put %s %q: %w", rec.Kind(), rec.Key(), err)
	}
	return nil
}

func (s *KV) Delete(ctx context.Context, kind entity.Kind, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return database.ErrClosed
	}

	t, err := s.table(kind)
	if err != nil {
		return err
	}
	if err := t.Delete([]byte(key)); err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("delete %s %q: %w", kind, key, err)
	}
	return nil
}

func (s *KV) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return database.ErrClosed
	}
	_, err := s.db.HealthCheck(ctx)
	return err
}

func (s *KV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
