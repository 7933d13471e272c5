package section

import (
	"github.com/arloliu/patpack/endian"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

// Flag is the packed option byte of a Header.
type Flag uint8

// Has reports whether every bit of mask is set.
func (f Flag) Has(mask Flag) bool {
	return f&mask == mask
}

// Header is the fixed-size envelope that prefixes every artifact.
type Header struct {
	// Flags describes how the payload is framed.
	Flags Flag
	// Algorithm identifies the codec that produced the payload. Chunked
	// containers record AlgorithmNone; each chunk carries its own header.
	Algorithm format.Algorithm
	// FEC identifies the FEC envelope type when FlagFEC is set.
	FEC format.FECType
	// OriginalSize is the length of the uncompressed input.
	OriginalSize uint64
	// Checksum is the xxhash64 of the uncompressed input.
	Checksum uint64
}

// NewHeader creates a header for a payload produced by algo.
func NewHeader(algo format.Algorithm, originalSize int, checksum uint64) Header {
	return Header{
		Algorithm:    algo,
		OriginalSize: uint64(originalSize), //nolint: gosec
		Checksum:     checksum,
	}
}

// IsFEC reports whether the payload is FEC-wrapped.
func (h Header) IsFEC() bool {
	return h.Flags.Has(FlagFEC)
}

// IsChunked reports whether the payload is a chunked container.
func (h Header) IsChunked() bool {
	return h.Flags.Has(FlagChunked)
}

// WithFEC marks the payload as wrapped by the given FEC type.
func (h *Header) WithFEC(t format.FECType) {
	h.FEC = t
	if t == format.FECNone {
		h.Flags &^= FlagFEC
		return
	}
	h.Flags |= FlagFEC
}

// WithChunked marks the payload as a chunked container.
func (h *Header) WithChunked() {
	h.Flags |= FlagChunked
	h.Algorithm = format.AlgorithmNone
}

// Bytes serializes the header.
func (h Header) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, HeaderSize))
}

// AppendTo appends the serialized header to dst.
func (h Header) AppendTo(dst []byte) []byte {
	engine := endian.GetLittleEndianEngine()

	dst = engine.AppendUint16(dst, Magic)
	dst = append(dst, Version, byte(h.Flags), byte(h.Algorithm), byte(h.FEC), 0, 0)
	dst = engine.AppendUint64(dst, h.OriginalSize)
	dst = engine.AppendUint64(dst, h.Checksum)

	return dst
}

// Validate checks the header fields for consistency.
func (h Header) Validate() error {
	const op = "artifact header"

	if h.Flags&reservedFlagMask != 0 {
		return errs.New(errs.KindInvalidHeader, op, "reserved flag bits set: 0x%02X", uint8(h.Flags))
	}
	if !h.Algorithm.IsValid() {
		return errs.New(errs.KindInvalidHeader, op, "unknown algorithm %d", uint8(h.Algorithm))
	}
	if h.IsChunked() && h.Algorithm != format.AlgorithmNone {
		return errs.New(errs.KindInvalidHeader, op, "chunked container records algorithm %s", h.Algorithm)
	}
	if h.IsFEC() != (h.FEC != format.FECNone) {
		return errs.New(errs.KindInvalidHeader, op, "FEC flag does not match FEC type %s", h.FEC)
	}
	if !h.FEC.IsValid() {
		return errs.New(errs.KindInvalidHeader, op, "unknown FEC type %d", uint8(h.FEC))
	}

	return nil
}

// ParseHeader parses a header from the start of data and validates it. The
// payload begins at data[HeaderSize:].
func ParseHeader(data []byte) (Header, error) {
	const op = "artifact header"

	if len(data) < HeaderSize {
		return Header{}, errs.New(errs.KindTruncated, op, "need %d bytes, have %d", HeaderSize, len(data))
	}

	engine := endian.GetLittleEndianEngine()
	if magic := engine.Uint16(data[0:2]); magic != Magic {
		return Header{}, errs.New(errs.KindInvalidHeader, op, "magic 0x%04X, want 0x%04X", magic, Magic)
	}
	if data[2] != Version {
		return Header{}, errs.New(errs.KindInvalidHeader, op, "unsupported version %d", data[2])
	}
	if data[6] != 0 || data[7] != 0 {
		return Header{}, errs.New(errs.KindInvalidHeader, op, "reserved bytes are not zero")
	}

	h := Header{
		Flags:        Flag(data[3]),
		Algorithm:    format.Algorithm(data[4]),
		FEC:          format.FECType(data[5]),
		OriginalSize: engine.Uint64(data[8:16]),
		Checksum:     engine.Uint64(data[16:24]),
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}

	return h, nil
}
