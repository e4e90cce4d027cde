// Package builder assembles checkpoint sets by walking a node's chain from
// genesis to its tip.
package builder

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"

	"github.com/rsksmart/bitcoinj/internal/clock"
	"github.com/rsksmart/bitcoinj/pkg/checkpoint"
	"github.com/rsksmart/bitcoinj/pkg/storedblock"
	"github.com/rsksmart/bitcoinj/pkg/workerpool"
)

type Service struct {
	logger      *zap.Logger
	params      *chaincfg.Params
	metrics     BuilderMetrics
	source      HeaderSource
	windowSize  int
	workerCount int
	maxRetries  int
	backoff     clock.Backoff
	now         func() time.Time
}

func NewService(
	source HeaderSource,
	metrics BuilderMetrics,
	params *chaincfg.Params,
	logger *zap.Logger,
) (*Service, error) {
	if source == nil {
		return nil, errors.New("header source is required")
	}
	if metrics == nil {
		return nil, errors.New("builder metrics is required")
	}
	if params == nil {
		return nil, errors.New("network params are required")
	}
	if params.TargetTimePerBlock <= 0 || params.TargetTimespan < params.TargetTimePerBlock {
		return nil, fmt.Errorf("network %s has no usable retarget interval", params.Name)
	}

	return &Service{
		logger:      logger.With(zap.String("network", params.Name)),
		params:      params,
		metrics:     metrics,
		source:      source,
		windowSize:  defaultWindowSize,
		workerCount: defaultWorkerCount,
		maxRetries:  defaultMaxRetries,
		backoff:     clock.Backoff{Initial: retryBackoffInitial, Max: retryBackoffMax},
		now:         time.Now,
	}, nil
}

// Build walks the chain from genesis to the node's tip and collects one
// checkpoint per retarget boundary whose header is at least a day older
// than the build time. Genesis itself is never checkpointed.
func (s *Service) Build(ctx context.Context) (*checkpoint.Set, error) {
	tip, err := withRetry(ctx, s, "tip height", s.source.TipHeight)
	if err != nil {
		return nil, fmt.Errorf("resolve tip height: %w", err)
	}

	interval := s.checkpointInterval()
	cutoff := s.now().Add(-minCheckpointAge)
	set := checkpoint.NewSet()

	s.logger.Info("building checkpoints",
		zap.Uint32("tip_height", tip),
		zap.Uint32("interval", interval),
		zap.Time("cutoff", cutoff))

	var (
		prevHash chainhash.Hash
		work     = new(big.Int)
	)
	start := uint32(0)
	for {
		end := tip
		if window := uint32(s.windowSize); tip-start >= window {
			end = start + window - 1
		}

		headers, err := s.fetchWindow(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetch headers %d..%d: %w", start, end, err)
		}

		for i, header := range headers {
			height := start + uint32(i)
			if err := s.verifyLink(height, header, prevHash); err != nil {
				return nil, err
			}
			work.Add(work, blockchain.CalcWork(header.Bits))
			prevHash = header.BlockHash()

			if height > 0 && height%interval == 0 && !header.Timestamp.After(cutoff) {
				b := storedblock.New(*header, work, height)
				if err := set.Append(b); err != nil {
					return nil, fmt.Errorf("append checkpoint at height %d: %w", height, err)
				}
				s.metrics.ObserveCheckpoint()
				s.logger.Info("checkpoint collected",
					zap.Uint32("height", height),
					zap.Stringer("hash", b.Hash()),
					zap.Time("time", header.Timestamp))
			}
		}
		s.metrics.ObserveProgress(end)

		if end == tip {
			break
		}
		start = end + 1
	}

	s.logger.Info("chain walk complete",
		zap.Uint32("tip_height", tip),
		zap.Int("checkpoints", set.Len()))
	return set, nil
}

// checkpointInterval is the network's retarget interval, 2016 on mainnet.
func (s *Service) checkpointInterval() uint32 {
	return uint32(s.params.TargetTimespan / s.params.TargetTimePerBlock)
}

func (s *Service) verifyLink(height uint32, header *wire.BlockHeader, prevHash chainhash.Hash) error {
	if height == 0 {
		if got := header.BlockHash(); !s.params.GenesisHash.IsEqual(&got) {
			return fmt.Errorf("genesis header %s does not match %s genesis %s", got, s.params.Name, s.params.GenesisHash)
		}
		return nil
	}
	if !header.PrevBlock.IsEqual(&prevHash) {
		return fmt.Errorf("header at height %d links to %s, want %s", height, header.PrevBlock, prevHash)
	}
	return nil
}

func (s *Service) fetchWindow(ctx context.Context, start, end uint32) ([]*wire.BlockHeader, error) {
	heights := make([]uint32, 0, end-start+1)
	for h := start; h <= end; h++ {
		heights = append(heights, h)
	}

	return withRetry(ctx, s, "fetch window", func(ctx context.Context) ([]*wire.BlockHeader, error) {
		started := time.Now()
		headers, err := workerpool.Collect(ctx, s.workerCount, heights, s.source.Header)
		s.metrics.ObserveFetchWindow(err, len(headers), started)
		return headers, err
	})
}

// withRetry runs op with backoff between attempts until it succeeds, the
// attempts run out, or the context ends.
func withRetry[T any](ctx context.Context, s *Service, call string, op func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("source call failed, backing off",
				zap.String("call", call),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			if err := s.backoff.Wait(ctx, attempt-1); err != nil {
				return zero, err
			}
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, err
		}
	}
	return zero, lastErr
}
