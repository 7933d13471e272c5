package compress

import (
	"encoding/binary"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

// LZ4 stream layout:
//
//	flag(1) rawLen(uvarint) body
//
// flag is lz4Stored when the block compressor could not shrink the input and
// body holds the raw bytes, lz4Block otherwise.
const (
	lz4Stored byte = 0x0
	lz4Block  byte = 0x1

	// lz4MaxOutput bounds the raw length accepted from a stream header.
	lz4MaxOutput = 1 << 30
)

var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Codec delegates to the LZ4 block format.
type LZ4Codec struct{}

var _ Codec = LZ4Codec{}

// NewLZ4Codec creates an LZ4 codec.
func NewLZ4Codec() LZ4Codec {
	return LZ4Codec{}
}

// Algorithm implements Codec.
func (LZ4Codec) Algorithm() format.Algorithm {
	return format.AlgorithmLZ4
}

// Compress implements Compressor.
func (LZ4Codec) Compress(data []byte) ([]byte, error) {
	hdr := make([]byte, 1, 1+binary.MaxVarintLen64)
	hdr = binary.AppendUvarint(hdr, uint64(len(data)))

	dst := make([]byte, len(hdr)+lz4.CompressBlockBound(len(data)))
	copy(dst, hdr)

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[len(hdr):])
	if err != nil {
		return nil, errs.Wrap(errs.KindUnknown, "lz4 compress", err)
	}
	// n == 0 means the block is incompressible.
	if n == 0 || n >= len(data) {
		dst[0] = lz4Stored
		return append(dst[:len(hdr)], data...), nil
	}
	dst[0] = lz4Block

	return dst[:len(hdr)+n], nil
}

// Decompress implements Decompressor.
func (LZ4Codec) Decompress(data []byte) ([]byte, error) {
	const op = "lz4 decompress"

	if len(data) < 2 {
		return nil, errs.New(errs.KindTruncated, op, "stream is %d bytes", len(data))
	}
	rawLen, n := binary.Uvarint(data[1:])
	if n <= 0 {
		return nil, errs.New(errs.KindInvalidHeader, op, "bad raw length varint")
	}
	if rawLen > lz4MaxOutput {
		return nil, errs.New(errs.KindInvalidHeader, op, "raw length %d exceeds limit", rawLen)
	}
	body := data[1+n:]

	switch data[0] {
	case lz4Stored:
		if uint64(len(body)) != rawLen {
			return nil, errs.New(errs.KindTruncated, op, "stored body is %d bytes, want %d", len(body), rawLen)
		}

		return append([]byte{}, body...), nil

	case lz4Block:
		out := make([]byte, rawLen)
		m, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, errs.Wrap(errs.KindCorrupted, op, err)
		}
		if uint64(m) != rawLen {
			return nil, errs.New(errs.KindCorrupted, op, "decoded %d bytes, want %d", m, rawLen)
		}

		return out, nil

	default:
		return nil, errs.New(errs.KindInvalidHeader, op, "unknown flag 0x%02X", data[0])
	}
}
