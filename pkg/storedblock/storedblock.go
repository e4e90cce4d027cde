// Package storedblock implements the compact block record encodings shared by
// checkpoint files and the block store.
package storedblock

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// StoredBlock is a block header annotated with its position in the chain: the
// cumulative proof of work up to and including the block, and its height.
type StoredBlock struct {
	Header    wire.BlockHeader
	ChainWork *big.Int
	Height    uint32
}

// New builds a StoredBlock. The chain work is copied so callers may reuse
// their accumulator.
func New(header wire.BlockHeader, chainWork *big.Int, height uint32) *StoredBlock {
	return &StoredBlock{
		Header:    header,
		ChainWork: new(big.Int).Set(chainWork),
		Height:    height,
	}
}

// Hash returns the block identity, the double SHA-256 of the 80-byte header.
func (b *StoredBlock) Hash() chainhash.Hash {
	return b.Header.BlockHash()
}

// Equal reports whether two records describe the same block at the same chain
// position.
func (b *StoredBlock) Equal(other *StoredBlock) bool {
	if b == nil || other == nil {
		return b == other
	}
	if b.Height != other.Height {
		return false
	}
	if b.ChainWork.Cmp(other.ChainWork) != 0 {
		return false
	}
	bh, oh := b.Hash(), other.Hash()
	return bh.IsEqual(&oh)
}

func (b *StoredBlock) String() string {
	return fmt.Sprintf("block %s height=%d work=%s", b.Hash(), b.Height, b.ChainWork)
}
