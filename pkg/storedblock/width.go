package storedblock

import (
	"fmt"
	"math/big"
)

// Record sizes for the two fixed layouts: an 80-byte header, the chain work
// as a big-endian unsigned integer (12 or 32 bytes, zero padded), and a
// 4-byte big-endian height.
const (
	headerLen = 80
	heightLen = 4

	// SizeLegacy is the encoded size of a record with 12-byte chain work.
	SizeLegacy = headerLen + legacyWorkLen + heightLen

	// SizeV2 is the encoded size of a record with 32-byte chain work.
	SizeV2 = headerLen + wideWorkLen + heightLen

	legacyWorkLen = 12
	wideWorkLen   = 32
)

// Width identifies which of the two record layouts a value uses. It is never
// stored on disk: readers derive it from the record's exact byte length, which
// is what keeps databases written before the wide layout existed readable.
type Width int

const (
	// WidthLegacy is the original layout with 12-byte chain work.
	WidthLegacy Width = iota
	// WidthWide is the layout with 32-byte chain work.
	WidthWide
)

func (w Width) String() string {
	switch w {
	case WidthLegacy:
		return "legacy"
	case WidthWide:
		return "wide"
	default:
		return fmt.Sprintf("width(%d)", int(w))
	}
}

// RecordSize returns the fixed encoded size of a record of this width.
func (w Width) RecordSize() int {
	if w == WidthWide {
		return SizeV2
	}
	return SizeLegacy
}

func (w Width) workLen() int {
	if w == WidthWide {
		return wideWorkLen
	}
	return legacyWorkLen
}

// WidthFor selects the narrowest width able to carry the given chain work:
// legacy up to 2^96-1, wide beyond.
func WidthFor(chainWork *big.Int) Width {
	if chainWork.BitLen() > legacyWorkLen*8 {
		return WidthWide
	}
	return WidthLegacy
}

// WidthForSize maps an encoded record length to its width. Exactly 96 bytes
// is legacy, exactly 116 is wide, anything else fails with
// ErrInvalidRecordLength.
func WidthForSize(n int) (Width, error) {
	switch n {
	case SizeLegacy:
		return WidthLegacy, nil
	case SizeV2:
		return WidthWide, nil
	default:
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidRecordLength, n)
	}
}
