package builder

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// HeaderSource serves a chain's headers by height.
	HeaderSource interface {
		TipHeight(ctx context.Context) (uint32, error)
		Header(ctx context.Context, height uint32) (*wire.BlockHeader, error)
	}

	// NodeClient is the slice of the node RPC client the source needs.
	NodeClient interface {
		GetBlockCount() (int64, error)
		GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
		GetBlockHeader(blockHash *chainhash.Hash) (*wire.BlockHeader, error)
	}

	BuilderMetrics interface {
		ObserveFetchWindow(err error, headers int, started time.Time)
		ObserveProgress(height uint32)
		ObserveCheckpoint()
	}
)
