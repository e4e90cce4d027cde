package checkpoint

import (
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/rsksmart/bitcoinj/pkg/safe"
	"github.com/rsksmart/bitcoinj/pkg/storedblock"
)

// WriteBinary writes the set in the binary variant and returns the SHA-256
// digest of the covered region (record count plus records), the value callers
// publish for integrity comparison. The variant frames legacy records only:
// a checkpoint whose chain work needs the wide layout fails the write.
func (s *Set) WriteBinary(w io.Writer) ([sha256.Size]byte, error) {
	var digest [sha256.Size]byte
	if s.Len() == 0 {
		return digest, ErrNoCheckpoints
	}
	count, err := safe.Uint32(s.Len())
	if err != nil {
		return digest, fmt.Errorf("checkpoint count: %w", err)
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(binaryMagic); err != nil {
		return digest, fmt.Errorf("write magic: %w", err)
	}
	var sigCount [4]byte
	if _, err := bw.Write(sigCount[:]); err != nil {
		return digest, fmt.Errorf("write signature count: %w", err)
	}

	h := sha256.New()
	covered := io.MultiWriter(bw, h)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], count)
	if _, err := covered.Write(countBuf[:]); err != nil {
		return digest, fmt.Errorf("write record count: %w", err)
	}
	for _, b := range s.blocks {
		record, err := storedblock.EncodeLegacy(b)
		if err != nil {
			return digest, fmt.Errorf("checkpoint %d: %w", b.Height, err)
		}
		if _, err := covered.Write(record); err != nil {
			return digest, fmt.Errorf("write checkpoint %d: %w", b.Height, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return digest, fmt.Errorf("flush: %w", err)
	}

	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// WriteTextual writes the set in the line-oriented variant. Each record picks
// the narrowest layout for its chain work, so sets past the 96-bit work
// ceiling are representable here and not in the binary variant.
func (s *Set) WriteTextual(w io.Writer) error {
	if s.Len() == 0 {
		return ErrNoCheckpoints
	}

	bw := bufio.NewWriter(w)
	lines := []string{textualMagic, "0", strconv.Itoa(s.Len())}
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, b := range s.blocks {
		record, err := storedblock.Encode(b)
		if err != nil {
			return fmt.Errorf("checkpoint %d: %w", b.Height, err)
		}
		if _, err := bw.WriteString(base64.RawStdEncoding.EncodeToString(record) + "\n"); err != nil {
			return fmt.Errorf("write checkpoint %d: %w", b.Height, err)
		}
	}
	return bw.Flush()
}
