// Package store is the keyed entity store consumed by the core: load by key,
// save a record, delete by key. Record creation with defaults lives in the
// repository; the store only ever sees fully formed records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"PerpIndexer/internal/entity"
)

// ErrNotFound is returned by Load when no record exists for the key.
var ErrNotFound = errors.New("store: not found")

// Store is the four-operation keyed store. create is expressed by the
// repository as Save of a default record.
type Store interface {
	// Load decodes the record stored under (kind, key) into dst.
	Load(ctx context.Context, kind entity.Kind, key string, dst entity.Record) error
	// Save upserts rec under (rec.Kind(), rec.Key()).
	Save(ctx context.Context, rec entity.Record) error
	// Delete removes (kind, key). Deleting an absent key is not an error.
	Delete(ctx context.Context, kind entity.Kind, key string) error
}

// Backend is a Store that owns a connection.
type Backend interface {
	Store
	Ping(ctx context.Context) error
	Close() error
}

func encode(rec entity.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s %q: %w", rec.Kind(), rec.Key(), err)
	}
	return data, nil
}

func decode(kind entity.Kind, key string, data []byte, dst entity.Record) error {
	if dst.Kind() != kind {
		return fmt.Errorf("decode %s %q into %s", kind, key, dst.Kind())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s %q: %w", kind, key, err)
	}
	return nil
}
