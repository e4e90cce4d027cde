// Package leveldb provides the goleveldb-backed key-value engine. It is the
// default durable engine for block storage.
package leveldb

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/rsksmart/bitcoinj/pkg/kvstore"
)

// Store implements kvstore.KVStore on a LevelDB database directory.
type Store struct {
	db   *leveldb.DB
	path string
}

// Open opens or creates a LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Put stores a key-value pair.
func (s *Store) Put(ctx context.Context, key, value []byte) error {
	return s.db.Put(key, value, nil)
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	value, err := s.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, kvstore.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// Has reports whether key has a value.
func (s *Store) Has(ctx context.Context, key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	return s.db.Delete(key, nil)
}

// Clear removes every key in one batch write.
func (s *Store) Clear(ctx context.Context) error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterate keys: %w", err)
	}
	return s.db.Write(batch, nil)
}

// Close closes the database, leaving its files on disk.
func (s *Store) Close() error {
	return s.db.Close()
}

// Destroy closes the database and removes its directory.
func (s *Store) Destroy() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, leveldb.ErrClosed) {
		return err
	}
	return os.RemoveAll(s.path)
}
