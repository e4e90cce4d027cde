// Package memory provides a map-backed key-value engine for tests and
// throwaway chains.
package memory

import (
	"context"
	"sync"

	"github.com/rsksmart/bitcoinj/pkg/kvstore"
)

// Store implements kvstore.KVStore in process memory.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Put stores a copy of the key-value pair.
func (s *Store) Put(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

// Get retrieves a copy of the value for key.
func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[string(key)]
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Has reports whether key has a value.
func (s *Store) Has(ctx context.Context, key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[string(key)]
	return ok, nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
	return nil
}

// Close is a no-op; the data stays reachable until Destroy.
func (s *Store) Close() error {
	return nil
}

// Destroy discards all entries.
func (s *Store) Destroy() error {
	return s.Clear(context.Background())
}
