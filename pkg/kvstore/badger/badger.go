// Package badger provides the BadgerDB-backed key-value engine.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/rsksmart/bitcoinj/pkg/kvstore"
)

// Store implements kvstore.KVStore on a Badger database directory.
type Store struct {
	db  *badger.DB
	dir string
}

// Open opens or creates a Badger database at dir. Badger's own logging is
// disabled; callers log at the store layer.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &Store{db: db, dir: dir}, nil
}

// Put stores a key-value pair.
func (s *Store) Put(ctx context.Context, key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, kvstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Has reports whether key has a value.
func (s *Store) Has(ctx context.Context, key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Clear drops all keys.
func (s *Store) Clear(ctx context.Context) error {
	return s.db.DropAll()
}

// Close closes the database, leaving its files on disk.
func (s *Store) Close() error {
	return s.db.Close()
}

// Destroy closes the database and removes its directory.
func (s *Store) Destroy() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, badger.ErrDBClosed) {
		return err
	}
	return os.RemoveAll(s.dir)
}
