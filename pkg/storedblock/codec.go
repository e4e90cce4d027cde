package storedblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrChainWorkTooLarge reports a chain work value that does not fit the
	// requested layout width.
	ErrChainWorkTooLarge = errors.New("chain work too large for record width")

	// ErrInvalidRecordLength reports an encoded record whose byte length
	// matches neither known layout.
	ErrInvalidRecordLength = errors.New("record length matches no known layout")
)

// Encode serializes the record using the narrowest layout that fits its
// chain work.
func Encode(b *StoredBlock) ([]byte, error) {
	return EncodeWidth(b, WidthFor(b.ChainWork))
}

// EncodeLegacy serializes the record in the 96-byte legacy layout.
func EncodeLegacy(b *StoredBlock) ([]byte, error) {
	return EncodeWidth(b, WidthLegacy)
}

// EncodeV2 serializes the record in the 116-byte wide layout.
func EncodeV2(b *StoredBlock) ([]byte, error) {
	return EncodeWidth(b, WidthWide)
}

// EncodeWidth serializes the record in the requested layout. The chain work
// must be an unsigned integer that fits the layout's work field.
func EncodeWidth(b *StoredBlock, width Width) ([]byte, error) {
	if b.ChainWork == nil || b.ChainWork.Sign() < 0 {
		return nil, fmt.Errorf("chain work %v is not an unsigned integer", b.ChainWork)
	}
	workLen := width.workLen()
	if b.ChainWork.BitLen() > workLen*8 {
		return nil, fmt.Errorf("%w: %s layout holds %d bytes, work needs %d",
			ErrChainWorkTooLarge, width, workLen, (b.ChainWork.BitLen()+7)/8)
	}

	buf := bytes.NewBuffer(make([]byte, 0, width.RecordSize()))
	if err := b.Header.Serialize(buf); err != nil {
		return nil, fmt.Errorf("serialize header: %w", err)
	}
	work := make([]byte, workLen)
	b.ChainWork.FillBytes(work)
	buf.Write(work)

	var height [heightLen]byte
	binary.BigEndian.PutUint32(height[:], b.Height)
	buf.Write(height[:])
	return buf.Bytes(), nil
}

// Decode deserializes a record, selecting the layout from the byte length.
func Decode(data []byte) (*StoredBlock, error) {
	width, err := WidthForSize(len(data))
	if err != nil {
		return nil, err
	}
	return DecodeWidth(data, width)
}

// DecodeLegacy deserializes a record known to use the legacy layout.
func DecodeLegacy(data []byte) (*StoredBlock, error) {
	return DecodeWidth(data, WidthLegacy)
}

// DecodeV2 deserializes a record known to use the wide layout.
func DecodeV2(data []byte) (*StoredBlock, error) {
	return DecodeWidth(data, WidthWide)
}

// DecodeWidth deserializes a record in the given layout. The input length
// must match the layout exactly; the caller learns the layout from record
// framing, not from the bytes themselves.
func DecodeWidth(data []byte, width Width) (*StoredBlock, error) {
	if len(data) != width.RecordSize() {
		return nil, fmt.Errorf("%w: got %d bytes, %s layout is %d",
			ErrInvalidRecordLength, len(data), width, width.RecordSize())
	}
	var b StoredBlock
	if err := b.Header.Deserialize(bytes.NewReader(data[:headerLen])); err != nil {
		return nil, fmt.Errorf("deserialize header: %w", err)
	}
	workLen := width.workLen()
	b.ChainWork = new(big.Int).SetBytes(data[headerLen : headerLen+workLen])
	b.Height = binary.BigEndian.Uint32(data[headerLen+workLen:])
	return &b, nil
}
