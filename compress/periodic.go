package compress

import (
	"bytes"
	"math"

	"github.com/arloliu/patpack/endian"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

// Periodic stream layout:
//
//	byte 0        PeriodicMagic
//	bytes 1..4    repetition count, little-endian u32
//	bytes 5..     the unit
//
// With the reference 251-byte unit the stream is exactly 256 bytes.
const (
	PeriodicMagic       byte = 0xAA
	PeriodicHeaderSize       = 5
	DefaultPeriodicUnit      = 251

	// DefaultPeriodicMaxOutput bounds the size Decompress will materialize.
	DefaultPeriodicMaxOutput = 1 << 32
)

// PeriodicCodec encodes inputs that are an exact whole number of copies of a
// fixed-size unit. It never compresses partially: any other input is
// rejected with a pattern-mismatch error.
type PeriodicCodec struct {
	unit      int
	maxOutput int
}

var _ Codec = (*PeriodicCodec)(nil)

// NewPeriodicCodec creates a periodic codec for the given unit size.
func NewPeriodicCodec(unit int) (*PeriodicCodec, error) {
	if unit <= 0 {
		return nil, errs.New(errs.KindConfigError, "periodic codec", "unit size must be positive, got %d", unit)
	}

	return &PeriodicCodec{unit: unit, maxOutput: DefaultPeriodicMaxOutput}, nil
}

// Algorithm implements Codec.
func (c *PeriodicCodec) Algorithm() format.Algorithm {
	return format.AlgorithmPeriodic
}

// Unit returns the configured unit size.
func (c *PeriodicCodec) Unit() int {
	return c.unit
}

// EncodedSize returns the fixed stream size, independent of input length.
func (c *PeriodicCodec) EncodedSize() int {
	return PeriodicHeaderSize + c.unit
}

// IsPeriodic reports whether data consists of n >= 1 identical unit-sized
// chunks.
func IsPeriodic(data []byte, unit int) bool {
	if unit <= 0 || len(data) == 0 || len(data)%unit != 0 {
		return false
	}

	// data[i] == data[i-unit] for every i >= unit.
	return bytes.Equal(data[unit:], data[:len(data)-unit])
}

// Compress implements Compressor. Nothing is written unless the whole input
// satisfies the precondition.
func (c *PeriodicCodec) Compress(data []byte) ([]byte, error) {
	const op = "periodic compress"

	if len(data) == 0 || len(data)%c.unit != 0 {
		return nil, errs.New(errs.KindPatternMismatch, op, "length %d is not a positive multiple of unit %d",
			len(data), c.unit)
	}
	if !IsPeriodic(data, c.unit) {
		return nil, errs.New(errs.KindPatternMismatch, op, "%d-byte chunks are not identical", c.unit)
	}

	count := len(data) / c.unit
	if uint64(count) > math.MaxUint32 {
		return nil, errs.New(errs.KindPatternMismatch, op, "repetition count %d exceeds u32", count)
	}

	engine := endian.GetLittleEndianEngine()
	out := make([]byte, 0, c.EncodedSize())
	out = append(out, PeriodicMagic)
	out = engine.AppendUint32(out, uint32(count)) //nolint: gosec
	out = append(out, data[:c.unit]...)

	return out, nil
}

// Decompress implements Decompressor.
func (c *PeriodicCodec) Decompress(data []byte) ([]byte, error) {
	const op = "periodic decompress"

	if len(data) < c.EncodedSize() {
		return nil, errs.New(errs.KindTruncated, op, "stream is %d bytes, header needs %d", len(data), c.EncodedSize())
	}
	if data[0] != PeriodicMagic {
		return nil, errs.New(errs.KindInvalidHeader, op, "magic 0x%02X, want 0x%02X", data[0], PeriodicMagic)
	}
	if len(data) != c.EncodedSize() {
		return nil, errs.New(errs.KindInvalidHeader, op, "stream is %d bytes, want exactly %d", len(data), c.EncodedSize())
	}

	count := int(endian.GetLittleEndianEngine().Uint32(data[1:PeriodicHeaderSize]))
	if count == 0 {
		return nil, errs.New(errs.KindInvalidHeader, op, "repetition count is zero")
	}
	if count > c.maxOutput/c.unit {
		return nil, errs.New(errs.KindCorrupted, op, "output of %d x %d bytes exceeds limit %d", count, c.unit, c.maxOutput)
	}

	return bytes.Repeat(data[PeriodicHeaderSize:], count), nil
}
