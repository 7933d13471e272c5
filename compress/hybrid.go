package compress

import (
	"github.com/arloliu/patpack/endian"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/options"
	"github.com/arloliu/patpack/internal/pool"
)

// Hybrid stream records.
//
//	run      0xFF, byte, count(u8)               count in [1,255] copies of byte
//	escape   0xFF, byte, 0x00                    one literal byte (used for 0xFE/0xFF)
//	match    0xFE, offset(u16 LE), length(u8)    copy length bytes from offset back
//	literal  any other byte
const (
	RunMarker   byte = 0xFF
	MatchMarker byte = 0xFE

	runRecordSize   = 3
	matchRecordSize = 4
)

// Reference parameters of the hybrid codec.
const (
	DefaultWindowSize    = 65536
	DefaultLookAhead     = 16384
	DefaultMinMatch      = 4
	DefaultMaxChainDepth = 1024

	// maxOffset is the largest offset a match record can carry.
	maxOffset = 1<<16 - 1
	// maxRecordLength is the largest run or match length of a single record.
	maxRecordLength = 255
	// minRunLength is the shortest run encoded as a run record.
	minRunLength = 3
	// earlyCutoff stops the match search once a match this long is found.
	earlyCutoff = 64

	hashBits  = 16
	hashSize  = 1 << hashBits
	chainSize = 1 << 16 // must cover maxOffset
	chainMask = chainSize - 1
)

// HybridCodec is the general-purpose RLE + LZ77 codec.
//
// Compression scans left to right. At each position a run of at least three
// identical bytes becomes a run record; otherwise the longest backward match
// inside the window becomes a match record when it reaches the minimum match
// length; otherwise one literal is emitted. Literal 0xFE and 0xFF bytes are
// escaped as zero-count run records so the stream is unambiguous.
type HybridCodec struct {
	windowSize    int
	lookAhead     int
	minMatch      int
	maxChainDepth int
}

var _ Codec = (*HybridCodec)(nil)

// HybridOption configures a HybridCodec.
type HybridOption = options.Option[*HybridCodec]

// WithWindowSize sets the look-back window. Offsets are limited to 65535 by
// the record format, so larger windows are clamped.
func WithWindowSize(size int) HybridOption {
	return options.New(func(c *HybridCodec) error {
		if size <= 0 {
			return errs.New(errs.KindConfigError, "hybrid codec", "window size must be positive, got %d", size)
		}
		c.windowSize = min(size, maxOffset)

		return nil
	})
}

// WithLookAhead sets the maximum number of bytes examined ahead of the
// current position.
func WithLookAhead(size int) HybridOption {
	return options.New(func(c *HybridCodec) error {
		if size <= 0 {
			return errs.New(errs.KindConfigError, "hybrid codec", "look-ahead must be positive, got %d", size)
		}
		c.lookAhead = size

		return nil
	})
}

// WithMinMatch sets the shortest match emitted as a match record.
func WithMinMatch(n int) HybridOption {
	return options.New(func(c *HybridCodec) error {
		if n < minRunLength || n > maxRecordLength {
			return errs.New(errs.KindConfigError, "hybrid codec", "min match must be in [%d,%d], got %d",
				minRunLength, maxRecordLength, n)
		}
		c.minMatch = n

		return nil
	})
}

// WithMaxChainDepth bounds the number of candidates visited per position.
func WithMaxChainDepth(n int) HybridOption {
	return options.New(func(c *HybridCodec) error {
		if n <= 0 {
			return errs.New(errs.KindConfigError, "hybrid codec", "chain depth must be positive, got %d", n)
		}
		c.maxChainDepth = n

		return nil
	})
}

// NewHybridCodec creates a hybrid codec with reference parameters adjusted
// by opts.
func NewHybridCodec(opts ...HybridOption) (*HybridCodec, error) {
	c := &HybridCodec{
		windowSize:    min(DefaultWindowSize, maxOffset),
		lookAhead:     DefaultLookAhead,
		minMatch:      DefaultMinMatch,
		maxChainDepth: DefaultMaxChainDepth,
	}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	return c, nil
}

// Algorithm implements Codec.
func (c *HybridCodec) Algorithm() format.Algorithm {
	return format.AlgorithmHybrid
}

// matchFinder indexes positions by a hash of their first three bytes.
// prev is a ring over the window; an entry is only read for candidates still
// inside the window, so overwritten slots are never followed. The tables
// come from a pool and are returned by release.
type matchFinder struct {
	chain *pool.HashChain
	head  []int32
	prev  []int32
}

func newMatchFinder() *matchFinder {
	hc := pool.GetHashChain(hashSize, chainSize)

	return &matchFinder{chain: hc, head: hc.Head, prev: hc.Prev}
}

func (mf *matchFinder) release() {
	pool.PutHashChain(mf.chain)
	mf.chain, mf.head, mf.prev = nil, nil, nil
}

func hash3(b []byte) uint32 {
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	return (v * 2654435761) >> (32 - hashBits)
}

func (mf *matchFinder) insert(src []byte, pos int) {
	if pos+3 > len(src) {
		return
	}
	h := hash3(src[pos:])
	mf.prev[pos&chainMask] = mf.head[h]
	mf.head[h] = int32(pos) //nolint: gosec
}

// Compress implements Compressor.
func (c *HybridCodec) Compress(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return []byte{}, nil
	}

	buf := pool.GetCodecBuffer()
	defer pool.PutCodecBuffer(buf)
	buf.Grow(n + n/8)

	engine := endian.GetLittleEndianEngine()
	mf := newMatchFinder()
	defer mf.release()

	pos := 0
	for pos < n {
		if run := runLength(data, pos); run >= minRunLength {
			buf.B = append(buf.B, RunMarker, data[pos], byte(run))
			for i := pos; i < pos+run; i++ {
				mf.insert(data, i)
			}
			pos += run

			continue
		}

		offset, length := c.findMatch(data, pos, mf)
		if length >= c.minMatch {
			buf.B = append(buf.B, MatchMarker)
			buf.B = engine.AppendUint16(buf.B, uint16(offset)) //nolint: gosec
			buf.B = append(buf.B, byte(length))
			for i := pos; i < pos+length; i++ {
				mf.insert(data, i)
			}
			pos += length

			continue
		}

		b := data[pos]
		if b == RunMarker || b == MatchMarker {
			buf.B = append(buf.B, RunMarker, b, 0)
		} else {
			buf.B = append(buf.B, b)
		}
		mf.insert(data, pos)
		pos++
	}

	return buf.Clone(), nil
}

// runLength returns the number of bytes equal to data[pos] starting at pos,
// capped at one record.
func runLength(data []byte, pos int) int {
	b := data[pos]
	end := min(len(data), pos+maxRecordLength)
	i := pos + 1
	for i < end && data[i] == b {
		i++
	}

	return i - pos
}

// findMatch returns the longest match for data[pos:] in the window. Among
// equal lengths the nearest candidate wins because the chain is walked from
// the most recent position backwards and only strictly longer matches replace
// the current best.
func (c *HybridCodec) findMatch(data []byte, pos int, mf *matchFinder) (offset, length int) {
	maxLen := min(c.lookAhead, maxRecordLength, len(data)-pos)
	if maxLen < c.minMatch || pos+3 > len(data) {
		return 0, 0
	}

	limit := max(0, pos-c.windowSize)
	cand := int(mf.head[hash3(data[pos:])])
	target := data[pos : pos+maxLen]

	for depth := 0; cand >= limit && depth < c.maxChainDepth; depth++ {
		if length == 0 || data[cand+length] == target[length] {
			l := commonPrefix(data[cand:], target)
			if l > length {
				length = l
				offset = pos - cand
				if l >= earlyCutoff || l == maxLen {
					break
				}
			}
		}

		next := int(mf.prev[cand&chainMask])
		if next >= cand {
			break
		}
		cand = next
	}

	return offset, length
}

func commonPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}

	return i
}

// Decompress implements Decompressor.
func (c *HybridCodec) Decompress(data []byte) ([]byte, error) {
	return decodeHybrid(data, len(data)*2)
}

// maxHybridExpansion bounds the output of a hybrid stream per input byte: a
// 3-byte run record yields at most 255 bytes.
const maxHybridExpansion = maxRecordLength / runRecordSize

// decodeHybrid replays a hybrid record stream. sizeHint pre-sizes the output.
func decodeHybrid(data []byte, sizeHint int) ([]byte, error) {
	const op = "hybrid decompress"

	engine := endian.GetLittleEndianEngine()
	out := make([]byte, 0, sizeHint)

	for i := 0; i < len(data); {
		switch data[i] {
		case RunMarker:
			if i+runRecordSize > len(data) {
				return nil, errs.New(errs.KindTruncated, op, "run record at %d needs %d bytes, have %d",
					i, runRecordSize, len(data)-i)
			}
			b, count := data[i+1], int(data[i+2])
			if count == 0 {
				out = append(out, b)
			} else {
				for range count {
					out = append(out, b)
				}
			}
			i += runRecordSize

		case MatchMarker:
			if i+matchRecordSize > len(data) {
				return nil, errs.New(errs.KindTruncated, op, "match record at %d needs %d bytes, have %d",
					i, matchRecordSize, len(data)-i)
			}
			offset := int(engine.Uint16(data[i+1 : i+3]))
			length := int(data[i+3])
			if offset == 0 || offset > len(out) {
				return nil, errs.New(errs.KindInvalidOffset, op, "match record at %d references offset %d with %d bytes produced",
					i, offset, len(out))
			}
			// Byte-by-byte copy: offset may be smaller than length.
			start := len(out) - offset
			for k := range length {
				out = append(out, out[start+k])
			}
			i += matchRecordSize

		default:
			out = append(out, data[i])
			i++
		}
	}

	return out, nil
}
