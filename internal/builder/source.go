package builder

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"go.uber.org/ratelimit"

	"github.com/rsksmart/bitcoinj/pkg/safe"
)

// RPCSource adapts a node RPC client to a HeaderSource, pacing calls with a
// shared rate limiter.
type RPCSource struct {
	client  NodeClient
	limiter ratelimit.Limiter
}

// NewRPCSource wraps client, capping it at rps calls per second across all
// workers. Zero or negative rps leaves the client unpaced.
func NewRPCSource(client NodeClient, rps int) *RPCSource {
	limiter := ratelimit.NewUnlimited()
	if rps > 0 {
		limiter = ratelimit.New(rps)
	}
	return &RPCSource{client: client, limiter: limiter}
}

// TipHeight returns the node's best block height.
func (s *RPCSource) TipHeight(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.limiter.Take()
	count, err := s.client.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("get block count: %w", err)
	}
	tip, err := safe.Uint32(count)
	if err != nil {
		return 0, fmt.Errorf("block count: %w", err)
	}
	return tip, nil
}

// Header returns the header at height, resolving the hash first.
func (s *RPCSource) Header(ctx context.Context, height uint32) (*wire.BlockHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.limiter.Take()
	hash, err := s.client.GetBlockHash(int64(height))
	if err != nil {
		return nil, fmt.Errorf("get block hash %d: %w", height, err)
	}
	s.limiter.Take()
	header, err := s.client.GetBlockHeader(hash)
	if err != nil {
		return nil, fmt.Errorf("get block header %s: %w", hash, err)
	}
	return header, nil
}
