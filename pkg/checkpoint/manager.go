package checkpoint

import (
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rsksmart/bitcoinj/pkg/safe"
	"github.com/rsksmart/bitcoinj/pkg/storedblock"
)

// Manager is a verified, immutable checkpoint set loaded from one stream.
// Construction is atomic: any parse failure yields no manager. After
// construction the manager is read-only and safe for concurrent lookups.
type Manager struct {
	checkpoints []*storedblock.StoredBlock
	dataHash    [sha256.Size]byte
}

// NewManager parses a checkpoint stream, detecting the variant from its
// first byte. Nil or empty streams fail with ErrStreamNotFound, unknown
// prefixes with ErrUnrecognizedFormat, zero-entry files with
// ErrNoCheckpoints. Entries must ascend by height with non-decreasing header
// times; any malformed record fails the whole load.
func NewManager(r io.Reader) (*Manager, error) {
	if r == nil {
		return nil, ErrStreamNotFound
	}
	br := bufio.NewReader(r)
	first, err := br.Peek(1)
	if errors.Is(err, io.EOF) {
		return nil, ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	var (
		blocks []*storedblock.StoredBlock
		digest [sha256.Size]byte
	)
	switch first[0] {
	case binaryMagic[0]:
		blocks, digest, err = readBinary(br)
	case textualMagic[0]:
		blocks, digest, err = readTextual(br)
	default:
		return nil, fmt.Errorf("%w: leading byte %#x", ErrUnrecognizedFormat, first[0])
	}
	if err != nil {
		return nil, err
	}

	for i := 1; i < len(blocks); i++ {
		if blocks[i].Height <= blocks[i-1].Height {
			return nil, fmt.Errorf("checkpoint heights must ascend: %d after %d",
				blocks[i].Height, blocks[i-1].Height)
		}
		if blocks[i].Header.Timestamp.Before(blocks[i-1].Header.Timestamp) {
			return nil, fmt.Errorf("checkpoint times must not decrease: height %d is earlier than height %d",
				blocks[i].Height, blocks[i-1].Height)
		}
	}
	return &Manager{checkpoints: blocks, dataHash: digest}, nil
}

func readBinary(br *bufio.Reader) ([]*storedblock.StoredBlock, [sha256.Size]byte, error) {
	var digest [sha256.Size]byte

	magic := make([]byte, len(binaryMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, digest, fmt.Errorf("%w: short prefix", ErrUnrecognizedFormat)
	}
	if string(magic) != binaryMagic {
		return nil, digest, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, magic)
	}

	var sigCount uint32
	if err := binary.Read(br, binary.BigEndian, &sigCount); err != nil {
		return nil, digest, fmt.Errorf("read signature count: %w", err)
	}
	if sigCount > 0 {
		if _, err := io.CopyN(io.Discard, br, int64(sigCount)*signatureLen); err != nil {
			return nil, digest, fmt.Errorf("skip %d signatures: %w", sigCount, err)
		}
	}

	// Everything from the record count on is covered by the digest.
	h := sha256.New()
	covered := io.TeeReader(br, h)

	var count uint32
	if err := binary.Read(covered, binary.BigEndian, &count); err != nil {
		return nil, digest, fmt.Errorf("read record count: %w", err)
	}
	if count == 0 {
		return nil, digest, ErrNoCheckpoints
	}
	n, err := safe.Int(count)
	if err != nil {
		return nil, digest, fmt.Errorf("record count: %w", err)
	}

	var blocks []*storedblock.StoredBlock
	record := make([]byte, storedblock.SizeLegacy)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(covered, record); err != nil {
			return nil, digest, fmt.Errorf("%w: %d records promised, stream ended inside record %d",
				ErrSizeMismatch, n, i)
		}
		b, err := storedblock.DecodeLegacy(record)
		if err != nil {
			return nil, digest, fmt.Errorf("record %d: %w", i, err)
		}
		blocks = append(blocks, b)
	}

	var trailing [1]byte
	if _, err := io.ReadFull(covered, trailing[:]); !errors.Is(err, io.EOF) {
		return nil, digest, fmt.Errorf("%w: data past %d records", ErrSizeMismatch, n)
	}

	copy(digest[:], h.Sum(nil))
	return blocks, digest, nil
}

func readTextual(br *bufio.Reader) ([]*storedblock.StoredBlock, [sha256.Size]byte, error) {
	var digest [sha256.Size]byte
	scanner := bufio.NewScanner(br)

	line, err := scanLine(scanner)
	if err != nil {
		return nil, digest, fmt.Errorf("%w: short prefix", ErrUnrecognizedFormat)
	}
	if line != textualMagic {
		return nil, digest, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, line)
	}

	line, err = scanLine(scanner)
	if err != nil {
		return nil, digest, fmt.Errorf("read signature count: %w", err)
	}
	sigCount, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || sigCount < 0 {
		return nil, digest, fmt.Errorf("signature count %q: %v", line, err)
	}
	for i := 0; i < sigCount; i++ {
		if _, err := scanLine(scanner); err != nil {
			return nil, digest, fmt.Errorf("skip signature %d: %w", i, err)
		}
	}

	line, err = scanLine(scanner)
	if err != nil {
		return nil, digest, fmt.Errorf("read record count: %w", err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || count < 0 {
		return nil, digest, fmt.Errorf("record count %q: %v", line, err)
	}
	if count == 0 {
		return nil, digest, ErrNoCheckpoints
	}

	// The digest covers the same bytes as the binary variant: the count as a
	// big-endian word, then each raw record. An all-legacy set therefore
	// digests identically in both variants.
	countWord, err := safe.Uint32(count)
	if err != nil {
		return nil, digest, fmt.Errorf("record count: %w", err)
	}
	h := sha256.New()
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], countWord)
	h.Write(countBuf[:])

	var blocks []*storedblock.StoredBlock
	for i := 0; i < count; i++ {
		line, err := scanLine(scanner)
		if err != nil {
			return nil, digest, fmt.Errorf("%d records promised, stream ended at record %d: %w", count, i, err)
		}
		raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(line), "="))
		if err != nil {
			return nil, digest, fmt.Errorf("record %d: %w", i, err)
		}
		h.Write(raw)
		b, err := storedblock.Decode(raw)
		if err != nil {
			return nil, digest, fmt.Errorf("record %d: %w", i, err)
		}
		blocks = append(blocks, b)
	}

	copy(digest[:], h.Sum(nil))
	return blocks, digest, nil
}

func scanLine(scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return scanner.Text(), nil
}

// NumCheckpoints returns the number of loaded checkpoints.
func (m *Manager) NumCheckpoints() int {
	return len(m.checkpoints)
}

// DataHash returns the SHA-256 digest of the checkpoint data as read. The
// manager never enforces an expected value; callers compare it against the
// digest they trust.
func (m *Manager) DataHash() [sha256.Size]byte {
	return m.dataHash
}

// Checkpoints returns the loaded checkpoints in height order. The slice is a
// copy.
func (m *Manager) Checkpoints() []*storedblock.StoredBlock {
	out := make([]*storedblock.StoredBlock, len(m.checkpoints))
	copy(out, m.checkpoints)
	return out
}

// CheckpointBefore returns the highest checkpoint whose header time is at or
// before t. Entries sharing a header time resolve to the later one. A time
// earlier than every checkpoint fails with ErrNoCheckpointBefore.
func (m *Manager) CheckpointBefore(t time.Time) (*storedblock.StoredBlock, error) {
	target := t.Unix()
	idx := sort.Search(len(m.checkpoints), func(i int) bool {
		return m.checkpoints[i].Header.Timestamp.Unix() > target
	})
	if idx == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckpointBefore, t.UTC().Format(time.RFC3339))
	}
	return m.checkpoints[idx-1], nil
}
