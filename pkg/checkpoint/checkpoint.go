// Package checkpoint reads and writes trusted checkpoint files and answers
// bootstrap lookups over them.
//
// Two file variants exist. The binary variant frames fixed 96-byte legacy
// records and cannot carry chain work past the 96-bit ceiling; the textual
// variant base64-encodes one record per line and lets each line pick its own
// width. Both cover the checkpoint data with a SHA-256 digest that callers
// compare against a value they trust out of band.
package checkpoint

import (
	"errors"
	"fmt"

	"github.com/rsksmart/bitcoinj/pkg/storedblock"
)

const (
	binaryMagic  = "CHECKPOINTS 1"
	textualMagic = "TXT CHECKPOINTS 1"

	// signatureLen is the size of one reserved signature entry in the binary
	// variant. Current files carry none.
	signatureLen = 65
)

var (
	// ErrStreamNotFound reports a nil or empty checkpoint stream.
	ErrStreamNotFound = errors.New("checkpoint stream not found")

	// ErrUnrecognizedFormat reports a stream that starts with neither magic.
	ErrUnrecognizedFormat = errors.New("unrecognized checkpoint format")

	// ErrNoCheckpoints reports a well-formed file with zero entries.
	ErrNoCheckpoints = errors.New("checkpoint file is empty")

	// ErrSizeMismatch reports a binary file whose byte count disagrees with
	// its record count.
	ErrSizeMismatch = errors.New("checkpoint data size mismatch")

	// ErrNoCheckpointBefore reports a lookup time earlier than every
	// checkpoint in the set.
	ErrNoCheckpointBefore = errors.New("no checkpoint at or before requested time")
)

// Set is an ordered checkpoint collection under construction. Entries are
// appended in strictly ascending height order, then written out with
// WriteBinary or WriteTextual.
type Set struct {
	blocks []*storedblock.StoredBlock
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{}
}

// Append adds a checkpoint. Heights must strictly increase.
func (s *Set) Append(b *storedblock.StoredBlock) error {
	if n := len(s.blocks); n > 0 && b.Height <= s.blocks[n-1].Height {
		return fmt.Errorf("checkpoint heights must ascend: %d after %d",
			b.Height, s.blocks[n-1].Height)
	}
	s.blocks = append(s.blocks, b)
	return nil
}

// Len returns the number of checkpoints.
func (s *Set) Len() int {
	return len(s.blocks)
}

// At returns the checkpoint at index i in height order.
func (s *Set) At(i int) *storedblock.StoredBlock {
	return s.blocks[i]
}

// Blocks returns the checkpoints in height order. The slice is a copy.
func (s *Set) Blocks() []*storedblock.StoredBlock {
	out := make([]*storedblock.StoredBlock, len(s.blocks))
	copy(out, s.blocks)
	return out
}
