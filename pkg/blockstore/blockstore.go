// Package blockstore persists stored blocks and the chain head pointer on a
// pluggable key-value engine.
//
// Records are keyed by block hash and hold the compact encodings from
// storedblock; the layout of each value is recovered from its byte length, so
// databases written before the wide layout existed keep reading correctly.
// One reserved key tracks the chain head. The store adds no locking beyond
// the engine's single-key atomicity: callers keep mutations single-writer.
package blockstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/rsksmart/bitcoinj/pkg/kvstore"
	"github.com/rsksmart/bitcoinj/pkg/storedblock"
)

// chainHeadKey is reserved; no block hash collides with it since hashes are
// 32 bytes.
var chainHeadKey = []byte("chainhead")

var (
	// ErrNotFound reports a probe for a hash with no record. Routine for
	// callers walking unknown branches.
	ErrNotFound = errors.New("block not found")

	// ErrChainHeadNotSet reports an uninitialized store.
	ErrChainHeadNotSet = errors.New("chain head not set")

	// ErrCorrupt reports stored bytes that cannot be a block record, or a
	// chain head pointing at a missing record.
	ErrCorrupt = errors.New("block store corrupt")

	// ErrClosed reports an operation on a closed store.
	ErrClosed = errors.New("block store closed")
)

const defaultCacheSize = 2048

// Metrics observes store operations.
type Metrics interface {
	Observe(operation string, err error, started time.Time)
}

type nopMetrics struct{}

func (nopMetrics) Observe(string, error, time.Time) {}

// Config carries the optional store settings.
type Config struct {
	// CacheSize is the block cache capacity. Zero selects the default,
	// negative disables caching.
	CacheSize int
	// Metrics receives per-operation observations when set.
	Metrics Metrics
}

// Store is a durable block-hash to record mapping plus the chain head
// pointer. Blocks handed to Put or returned by Get are treated as immutable;
// the read cache shares them between callers.
type Store struct {
	kv      kvstore.KVStore
	logger  *zap.Logger
	metrics Metrics
	cache   *lru.Cache[chainhash.Hash, *storedblock.StoredBlock]
	closed  atomic.Bool
}

// New wraps a key-value engine in a block store.
func New(kv kvstore.KVStore, logger *zap.Logger, cfg Config) (*Store, error) {
	if kv == nil {
		return nil, errors.New("kv engine is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	s := &Store{kv: kv, logger: logger, metrics: metrics}
	size := cfg.CacheSize
	if size == 0 {
		size = defaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New[chainhash.Hash, *storedblock.StoredBlock](size)
		if err != nil {
			return nil, fmt.Errorf("create block cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Put writes the block's record under its hash, overwriting any previous
// record. The encoding width follows the block's chain work; the chain head
// is not touched.
func (s *Store) Put(ctx context.Context, b *storedblock.StoredBlock) (err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("put", err, started) }()

	if s.closed.Load() {
		return ErrClosed
	}
	return s.writeBlock(ctx, b)
}

// Get returns the record stored under hash. Missing hashes fail with
// ErrNotFound, values of unknown length with ErrCorrupt.
func (s *Store) Get(ctx context.Context, hash chainhash.Hash) (b *storedblock.StoredBlock, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("get", err, started) }()

	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.readBlock(ctx, hash)
}

// SetChainHead makes b the chain head, writing its record first if the store
// does not hold it yet.
func (s *Store) SetChainHead(ctx context.Context, b *storedblock.StoredBlock) (err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("set_chain_head", err, started) }()

	if s.closed.Load() {
		return ErrClosed
	}

	hash := b.Hash()
	ok, err := s.kv.Has(ctx, hash[:])
	if err != nil {
		return fmt.Errorf("probe block %s: %w", hash, err)
	}
	if !ok {
		if err = s.writeBlock(ctx, b); err != nil {
			return err
		}
	}
	if err = s.kv.Put(ctx, chainHeadKey, hash[:]); err != nil {
		return fmt.Errorf("write chain head: %w", err)
	}
	return nil
}

// GetChainHead returns the block the chain head points at. A store that never
// had a head set fails with ErrChainHeadNotSet; a head whose record is
// missing fails with ErrCorrupt.
func (s *Store) GetChainHead(ctx context.Context) (b *storedblock.StoredBlock, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("get_chain_head", err, started) }()

	if s.closed.Load() {
		return nil, ErrClosed
	}

	value, err := s.kv.Get(ctx, chainHeadKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrChainHeadNotSet
	}
	if err != nil {
		return nil, fmt.Errorf("read chain head: %w", err)
	}
	hash, err := chainhash.NewHash(value)
	if err != nil {
		return nil, fmt.Errorf("%w: chain head value: %v", ErrCorrupt, err)
	}

	b, err = s.readBlock(ctx, *hash)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: chain head %s has no record", ErrCorrupt, hash)
	}
	return b, err
}

// Reset clears every record and the chain head, leaving an empty store.
func (s *Store) Reset(ctx context.Context) (err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("reset", err, started) }()

	if s.closed.Load() {
		return ErrClosed
	}
	if err = s.kv.Clear(ctx); err != nil {
		return fmt.Errorf("clear engine: %w", err)
	}
	if s.cache != nil {
		s.cache.Purge()
	}
	s.logger.Info("block store reset")
	return nil
}

// Close releases the engine and the cache. Data stays on disk. Further
// operations fail with ErrClosed; closing twice is a no-op.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.cache != nil {
		s.cache.Purge()
	}
	return s.kv.Close()
}

// Destroy closes the store and removes the underlying storage permanently.
func (s *Store) Destroy() error {
	s.closed.Store(true)
	if s.cache != nil {
		s.cache.Purge()
	}
	return s.kv.Destroy()
}

func (s *Store) writeBlock(ctx context.Context, b *storedblock.StoredBlock) error {
	value, err := storedblock.Encode(b)
	if err != nil {
		return fmt.Errorf("encode block: %w", err)
	}
	hash := b.Hash()
	if err := s.kv.Put(ctx, hash[:], value); err != nil {
		return fmt.Errorf("write block %s: %w", hash, err)
	}
	if s.cache != nil {
		s.cache.Add(hash, b)
	}
	return nil
}

func (s *Store) readBlock(ctx context.Context, hash chainhash.Hash) (*storedblock.StoredBlock, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(hash); ok {
			return cached, nil
		}
	}

	value, err := s.kv.Get(ctx, hash[:])
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("read block %s: %w", hash, err)
	}

	b, err := storedblock.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("%w: block %s: %v", ErrCorrupt, hash, err)
	}
	if s.cache != nil {
		s.cache.Add(hash, b)
	}
	return b, nil
}
