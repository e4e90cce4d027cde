// Package bbolt provides the bbolt-backed key-value engine, a single-file
// alternative to the directory-based engines.
package bbolt

import (
	"context"
	"fmt"
	"os"

	"go.etcd.io/bbolt"

	"github.com/rsksmart/bitcoinj/pkg/kvstore"
)

var bucketName = []byte("records")

// Store implements kvstore.KVStore on a bbolt database file.
type Store struct {
	db   *bbolt.DB
	path string
}

// Open opens or creates a bbolt database file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bbolt at %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Put stores a key-value pair.
func (s *Store) Put(ctx context.Context, key, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
}

// Get retrieves a value by key. The returned slice is a copy; bbolt's own
// buffers are only valid inside the transaction.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return kvstore.ErrNotFound
		}
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Has reports whether key has a value.
func (s *Store) Has(ctx context.Context, key []byte) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketName).Get(key) != nil
		return nil
	})
	return found, err
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
}

// Clear drops and recreates the bucket.
func (s *Store) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketName)
		return err
	})
}

// Close closes the database, leaving the file on disk.
func (s *Store) Close() error {
	return s.db.Close()
}

// Destroy closes the database and removes the file.
func (s *Store) Destroy() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	return os.Remove(s.path)
}
