package compress

import (
	"bytes"
	"errors"

	"github.com/klauspost/compress/huff0"

	"github.com/arloliu/patpack/endian"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/hash"
	"github.com/arloliu/patpack/internal/pool"
)

// Hierarchical stream layout:
//
//	header   magic(1) version(1) blockSize(u32) blockCount(u32)
//	block    mode(1) rawLen(u32) tokenLen(u32) payloadLen(u32) payload
//
// Blocks are encoded in two passes. The fine pass tries, per block, the raw
// bytes, the hybrid token stream, and the hybrid token stream entropy-coded
// with huff0, keeping the smallest. The coarse pass replaces a block that is
// byte-identical to an earlier block with a reference to that block.
const (
	HierarchicalMagic   byte = 0xB7
	HierarchicalVersion byte = 0x01

	DefaultHierarchicalBlockSize = 64 * 1024

	hierHeaderSize      = 10
	hierBlockHeaderSize = 13
	blockRefSize        = 4
)

type blockMode uint8

const (
	blockRaw        blockMode = 0x0
	blockHybrid     blockMode = 0x1
	blockHybridHuff blockMode = 0x2
	blockRef        blockMode = 0x3
)

// HierarchicalCodec is the multi-pass fallback codec. Its output never
// exceeds the raw input by more than the fixed framing.
type HierarchicalCodec struct {
	hybrid    *HybridCodec
	blockSize int
}

var _ Codec = (*HierarchicalCodec)(nil)

// NewHierarchicalCodec creates a hierarchical codec that uses hybrid for its
// fine pass.
func NewHierarchicalCodec(hybrid *HybridCodec, blockSize int) (*HierarchicalCodec, error) {
	if hybrid == nil {
		return nil, errs.New(errs.KindConfigError, "hierarchical codec", "hybrid codec is required")
	}
	if blockSize <= 0 {
		return nil, errs.New(errs.KindConfigError, "hierarchical codec", "block size must be positive, got %d", blockSize)
	}

	return &HierarchicalCodec{hybrid: hybrid, blockSize: blockSize}, nil
}

// Algorithm implements Codec.
func (c *HierarchicalCodec) Algorithm() format.Algorithm {
	return format.AlgorithmHierarchical
}

// Compress implements Compressor.
func (c *HierarchicalCodec) Compress(data []byte) ([]byte, error) {
	engine := endian.GetLittleEndianEngine()
	blockCount := (len(data) + c.blockSize - 1) / c.blockSize

	buf := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(buf)
	buf.Grow(hierHeaderSize + len(data) + blockCount*hierBlockHeaderSize)

	buf.B = append(buf.B, HierarchicalMagic, HierarchicalVersion)
	buf.B = engine.AppendUint32(buf.B, uint32(c.blockSize)) //nolint: gosec
	buf.B = engine.AppendUint32(buf.B, uint32(blockCount))  //nolint: gosec

	// Coarse pass index: checksum -> block indexes with that checksum.
	seen := make(map[uint64][]int, blockCount)

	for i := range blockCount {
		block := data[i*c.blockSize : min(len(data), (i+1)*c.blockSize)]
		sum := hash.Checksum(block)

		// A reference costs a 4-byte payload, so it only pays off for
		// longer blocks.
		if ref, ok := findIdentical(seen[sum], data, block, c.blockSize); ok && len(block) > blockRefSize {
			buf.B = appendBlockHeader(buf.B, blockRef, len(block), 0, blockRefSize)
			buf.B = engine.AppendUint32(buf.B, uint32(ref)) //nolint: gosec
			seen[sum] = append(seen[sum], i)

			continue
		}
		seen[sum] = append(seen[sum], i)

		if err := c.appendFineBlock(buf, block); err != nil {
			return nil, err
		}
	}

	return buf.Clone(), nil
}

func findIdentical(candidates []int, data, block []byte, blockSize int) (int, bool) {
	for _, idx := range candidates {
		prev := data[idx*blockSize : min(len(data), (idx+1)*blockSize)]
		if bytes.Equal(prev, block) {
			return idx, true
		}
	}

	return 0, false
}

// appendFineBlock encodes block with the smallest of the fine-pass modes.
func (c *HierarchicalCodec) appendFineBlock(buf *pool.ByteBuffer, block []byte) error {
	tokens, err := c.hybrid.Compress(block)
	if err != nil {
		return err
	}

	mode, payload := blockRaw, block
	if len(tokens) < len(payload) {
		mode, payload = blockHybrid, tokens
	}

	if len(tokens) > 0 && len(tokens) <= huff0.BlockSizeMax {
		entropy, _, herr := huff0.Compress1X(tokens, &huff0.Scratch{Reuse: huff0.ReusePolicyNone})
		switch {
		case herr == nil:
			if len(entropy) < len(payload) {
				// entropy aliases the scratch buffer, which is discarded here.
				mode, payload = blockHybridHuff, entropy
			}
		case errors.Is(herr, huff0.ErrIncompressible), errors.Is(herr, huff0.ErrUseRLE):
		default:
			return errs.Wrap(errs.KindUnknown, "hierarchical compress", herr)
		}
	}

	tokenLen := 0
	if mode == blockHybridHuff {
		tokenLen = len(tokens)
	}
	buf.B = appendBlockHeader(buf.B, mode, len(block), tokenLen, len(payload))
	buf.B = append(buf.B, payload...)

	return nil
}

func appendBlockHeader(dst []byte, mode blockMode, rawLen, tokenLen, payloadLen int) []byte {
	engine := endian.GetLittleEndianEngine()
	dst = append(dst, byte(mode))
	dst = engine.AppendUint32(dst, uint32(rawLen))     //nolint: gosec
	dst = engine.AppendUint32(dst, uint32(tokenLen))   //nolint: gosec
	dst = engine.AppendUint32(dst, uint32(payloadLen)) //nolint: gosec

	return dst
}

// Decompress implements Decompressor.
func (c *HierarchicalCodec) Decompress(data []byte) ([]byte, error) {
	const op = "hierarchical decompress"

	engine := endian.GetLittleEndianEngine()
	if len(data) < hierHeaderSize {
		return nil, errs.New(errs.KindTruncated, op, "stream is %d bytes, header needs %d", len(data), hierHeaderSize)
	}
	if data[0] != HierarchicalMagic {
		return nil, errs.New(errs.KindInvalidHeader, op, "magic 0x%02X, want 0x%02X", data[0], HierarchicalMagic)
	}
	if data[1] != HierarchicalVersion {
		return nil, errs.New(errs.KindInvalidHeader, op, "unsupported version %d", data[1])
	}

	blockSize := int(engine.Uint32(data[2:6]))
	blockCount := int(engine.Uint32(data[6:10]))
	if blockCount > 0 && blockSize == 0 {
		return nil, errs.New(errs.KindInvalidHeader, op, "zero block size with %d blocks", blockCount)
	}
	// Every block carries at least its header.
	if blockCount > (len(data)-hierHeaderSize)/hierBlockHeaderSize {
		return nil, errs.New(errs.KindTruncated, op, "%d blocks cannot fit in %d bytes", blockCount, len(data))
	}

	out := make([]byte, 0, min(blockCount*blockSize, len(data)*4))
	starts := make([]int, 0, blockCount)
	pos := hierHeaderSize

	for i := range blockCount {
		if pos+hierBlockHeaderSize > len(data) {
			return nil, errs.New(errs.KindTruncated, op, "block %d header", i)
		}
		mode := blockMode(data[pos])
		rawLen := int(engine.Uint32(data[pos+1 : pos+5]))
		tokenLen := int(engine.Uint32(data[pos+5 : pos+9]))
		payloadLen := int(engine.Uint32(data[pos+9 : pos+13]))
		pos += hierBlockHeaderSize

		if rawLen > blockSize {
			return nil, errs.New(errs.KindInvalidHeader, op, "block %d raw length %d exceeds block size %d", i, rawLen, blockSize)
		}
		if payloadLen > len(data)-pos {
			return nil, errs.New(errs.KindTruncated, op, "block %d payload needs %d bytes, have %d", i, payloadLen, len(data)-pos)
		}
		payload := data[pos : pos+payloadLen]
		pos += payloadLen

		block, err := decodeBlock(mode, payload, rawLen, tokenLen, out, starts, blockSize)
		if err != nil {
			return nil, errs.Wrap(errs.KindOf(err), op, err)
		}
		if len(block) != rawLen {
			return nil, errs.New(errs.KindCorrupted, op, "block %d decoded to %d bytes, header says %d", i, len(block), rawLen)
		}

		starts = append(starts, len(out))
		out = append(out, block...)
	}

	if pos != len(data) {
		return nil, errs.New(errs.KindInvalidHeader, op, "%d trailing bytes", len(data)-pos)
	}

	return out, nil
}

func decodeBlock(mode blockMode, payload []byte, rawLen, tokenLen int, out []byte, starts []int, blockSize int) ([]byte, error) {
	switch mode {
	case blockRaw:
		return payload, nil

	case blockHybrid:
		return decodeHybrid(payload, hybridSizeHint(len(payload), rawLen))

	case blockHybridHuff:
		if tokenLen > huff0.BlockSizeMax {
			return nil, errs.New(errs.KindInvalidHeader, "huff0 decode", "token length %d exceeds %d", tokenLen, huff0.BlockSizeMax)
		}
		scratch, remain, err := huff0.ReadTable(payload, nil)
		if err != nil {
			return nil, errs.Wrap(errs.KindCorrupted, "huff0 table", err)
		}
		tokens, err := scratch.Decoder().Decompress1X(make([]byte, 0, tokenLen), remain)
		if err != nil {
			return nil, errs.Wrap(errs.KindCorrupted, "huff0 decode", err)
		}
		if len(tokens) != tokenLen {
			return nil, errs.New(errs.KindCorrupted, "huff0 decode", "got %d token bytes, want %d", len(tokens), tokenLen)
		}

		return decodeHybrid(tokens, hybridSizeHint(len(tokens), rawLen))

	case blockRef:
		if len(payload) != blockRefSize {
			return nil, errs.New(errs.KindInvalidHeader, "block reference", "payload is %d bytes, want %d", len(payload), blockRefSize)
		}
		ref := int(endian.GetLittleEndianEngine().Uint32(payload))
		if ref >= len(starts) {
			return nil, errs.New(errs.KindInvalidOffset, "block reference", "block %d not yet decoded", ref)
		}
		end := len(out)
		if ref+1 < len(starts) {
			end = starts[ref+1]
		}

		return out[starts[ref]:min(end, starts[ref]+blockSize)], nil

	default:
		return nil, errs.New(errs.KindInvalidHeader, "block", "unknown mode %d", mode)
	}
}

// hybridSizeHint bounds the output preallocation by what n stream bytes can
// actually produce, so a forged rawLen cannot force a huge allocation.
func hybridSizeHint(n, rawLen int) int {
	return min(rawLen, n*maxHybridExpansion)
}
