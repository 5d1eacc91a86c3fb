// Package statestore adapts a kv backend to the state.View the engine
// runs on. The engine's sandboxes buffer each request; what reaches this
// adapter is already a committed state transition, written through record
// by record.
package statestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/TopCodeBeast/subswap/internal/core/state"
	"github.com/TopCodeBeast/subswap/internal/core/state/keys"
	"github.com/TopCodeBeast/subswap/internal/storage/kv"
	"github.com/TopCodeBeast/subswap/internal/storage/kv/bbolt"
	"github.com/TopCodeBeast/subswap/internal/storage/kv/memory"
	"github.com/TopCodeBeast/subswap/internal/storage/kv/pebble"
)

// Store is a persistent state.View.
type Store struct {
	db  kv.DB
	ctx context.Context
}

var _ state.View = (*Store)(nil)

// Open opens a store on the named backend: "memory", "pebble" or "bbolt".
// cacheSize > 0 wraps the backend with an LRU read cache.
func Open(backend, path string, cacheSize int) (*Store, error) {
	var (
		db  kv.DB
		err error
	)
	switch backend {
	case "memory":
		db = memory.New()
	case "pebble":
		db, err = pebble.Open(path)
	case "bbolt":
		db, err = bbolt.Open(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	if cacheSize > 0 {
		db, err = kv.NewCached(db, cacheSize)
		if err != nil {
			return nil, err
		}
	}
	return NewStore(db), nil
}

// NewStore wraps an already-open backend.
func NewStore(db kv.DB) *Store {
	return &Store{db: db, ctx: context.Background()}
}

// Read implements state.View.
func (s *Store) Read(k keys.Key) ([]byte, error) {
	val, err := s.db.Read(s.ctx, k[:])
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

// Exists implements state.View.
func (s *Store) Exists(k keys.Key) (bool, error) {
	val, err := s.Read(k)
	if err != nil {
		return false, err
	}
	return val != nil, nil
}

// Insert implements state.View.
func (s *Store) Insert(k keys.Key, data []byte) error {
	return s.db.Write(s.ctx, k[:], data)
}

// Update implements state.View.
func (s *Store) Update(k keys.Key, data []byte) error {
	return s.db.Write(s.ctx, k[:], data)
}

// Erase implements state.View.
func (s *Store) Erase(k keys.Key) error {
	return s.db.Delete(s.ctx, k[:])
}

// ForEach implements state.View. Backend iterators return keys in
// ascending order already.
func (s *Store) ForEach(fn func(k keys.Key, data []byte) bool) error {
	it, err := s.db.Iterator(s.ctx, nil, nil)
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		kb := it.Key()
		if len(kb) != len(keys.Key{}) {
			return fmt.Errorf("malformed state key of %d bytes", len(kb))
		}
		var k keys.Key
		copy(k[:], kb)
		if !fn(k, it.Value()) {
			break
		}
	}
	return it.Error()
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.db.Close()
}
