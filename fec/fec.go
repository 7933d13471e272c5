// Package fec wraps payloads with Reed-Solomon parity so that lost or
// damaged shards can be rebuilt on decode.
//
// Envelope layout (little-endian):
//
//	magic(2) version(1) dataShards(1) parityShards(1) reserved(1)
//	originalLen(u64) shardSize(u32)
//	shardChecksum(u64) x (dataShards + parityShards)
//	headerChecksum(u64)
//	shard 0 .. shard n-1, each shardSize bytes
//
// Every shard carries an xxHash64 checksum in the header; a shard whose
// checksum does not match, or that is cut off by truncation, is treated as
// an erasure. Up to parityShards erasures are repaired.
package fec

import (
	"math"
	"sync"

	"github.com/klauspost/reedsolomon"

	"github.com/arloliu/patpack/endian"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/internal/hash"
)

const (
	Magic   uint16 = 0xFEC5
	Version uint8  = 1

	DefaultDataShards = 8
	DefaultRedundancy = 1.5

	// MaxShards is the Reed-Solomon limit over GF(2^8).
	MaxShards = 256

	fixedHeaderSize = 18
	checksumSize    = 8
)

// ParityShards returns the number of parity shards for dataShards at the
// given redundancy factor: ceil(dataShards * (redundancy - 1)), at least 1.
func ParityShards(dataShards int, redundancy float64) int {
	parity := int(math.Ceil(float64(dataShards)*(redundancy-1) - 1e-9))

	return max(1, parity)
}

// Report describes what Decode had to repair.
type Report struct {
	DataShards   int
	ParityShards int
	// Damaged is the number of shards that failed verification or were cut
	// off. Damaged data shards are rebuilt from parity.
	Damaged int
}

// Codec adds Reed-Solomon parity to payloads. It is safe for concurrent use.
type Codec struct {
	dataShards   int
	parityShards int
	enc          reedsolomon.Encoder
}

// New creates a Codec splitting payloads into dataShards shards with parity
// sized by redundancy (>= 1.0).
func New(dataShards int, redundancy float64) (*Codec, error) {
	const op = "fec"

	if dataShards <= 0 || dataShards >= MaxShards {
		return nil, errs.New(errs.KindConfigError, op, "data shards must be in [1,%d), got %d", MaxShards, dataShards)
	}
	if math.IsNaN(redundancy) || math.IsInf(redundancy, 0) || redundancy < 1.0 {
		return nil, errs.New(errs.KindConfigError, op, "redundancy factor must be >= 1.0, got %v", redundancy)
	}

	parity := ParityShards(dataShards, redundancy)
	if dataShards+parity > MaxShards {
		return nil, errs.New(errs.KindConfigError, op, "%d data + %d parity shards exceed %d", dataShards, parity, MaxShards)
	}

	enc, err := encoderFor(dataShards, parity)
	if err != nil {
		return nil, err
	}

	return &Codec{dataShards: dataShards, parityShards: parity, enc: enc}, nil
}

// DataShards returns the number of data shards.
func (c *Codec) DataShards() int { return c.dataShards }

// ParityShards returns the number of parity shards.
func (c *Codec) ParityShards() int { return c.parityShards }

var encoders sync.Map // [2]int{data, parity} -> reedsolomon.Encoder

func encoderFor(data, parity int) (reedsolomon.Encoder, error) {
	key := [2]int{data, parity}
	if enc, ok := encoders.Load(key); ok {
		return enc.(reedsolomon.Encoder), nil
	}

	enc, err := reedsolomon.New(data, parity)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigError, "fec", err)
	}
	actual, _ := encoders.LoadOrStore(key, enc)

	return actual.(reedsolomon.Encoder), nil
}

func headerSize(shards int) int {
	return fixedHeaderSize + shards*checksumSize + checksumSize
}

// Encode returns the FEC envelope of payload.
func (c *Codec) Encode(payload []byte) ([]byte, error) {
	engine := endian.GetLittleEndianEngine()
	total := c.dataShards + c.parityShards
	shardSize := max(1, (len(payload)+c.dataShards-1)/c.dataShards)
	if uint64(shardSize) > math.MaxUint32 {
		return nil, errs.New(errs.KindConfigError, "fec encode", "shard size %d exceeds u32", shardSize)
	}

	hdrLen := headerSize(total)
	out := make([]byte, hdrLen+total*shardSize)

	body := out[hdrLen:]
	copy(body, payload)
	shards := make([][]byte, total)
	for i := range shards {
		shards[i] = body[i*shardSize : (i+1)*shardSize : (i+1)*shardSize]
	}

	if err := c.enc.Encode(shards); err != nil {
		return nil, errs.Wrap(errs.KindUnknown, "fec encode", err)
	}

	engine.PutUint16(out[0:2], Magic)
	out[2] = Version
	out[3] = byte(c.dataShards)
	out[4] = byte(c.parityShards)
	engine.PutUint64(out[6:14], uint64(len(payload)))
	engine.PutUint32(out[14:18], uint32(shardSize)) //nolint: gosec

	pos := fixedHeaderSize
	for _, s := range shards {
		engine.PutUint64(out[pos:pos+checksumSize], hash.Checksum(s))
		pos += checksumSize
	}
	engine.PutUint64(out[pos:pos+checksumSize], hash.Checksum(out[:pos]))

	return out, nil
}

// Decode decodes an envelope. Envelopes are self-describing, so this is
// the package-level Decode.
func (c *Codec) Decode(data []byte) ([]byte, error) {
	out, _, err := DecodeReport(data)
	return out, err
}

// Decode verifies an envelope produced by any Codec and returns the original
// payload, rebuilding damaged shards when possible.
func Decode(data []byte) ([]byte, error) {
	out, _, err := DecodeReport(data)
	return out, err
}

// DecodeReport is Decode that also reports how many shards were damaged.
// Present shards are never written to, so data is not modified.
func DecodeReport(data []byte) ([]byte, Report, error) {
	const op = "fec decode"

	engine := endian.GetLittleEndianEngine()
	if len(data) < fixedHeaderSize {
		return nil, Report{}, errs.New(errs.KindTruncated, op, "envelope is %d bytes, header needs %d", len(data), fixedHeaderSize)
	}
	if m := engine.Uint16(data[0:2]); m != Magic {
		return nil, Report{}, errs.New(errs.KindInvalidHeader, op, "magic 0x%04X, want 0x%04X", m, Magic)
	}
	if data[2] != Version {
		return nil, Report{}, errs.New(errs.KindInvalidHeader, op, "unsupported version %d", data[2])
	}

	k, r := int(data[3]), int(data[4])
	if k == 0 || r == 0 || k+r > MaxShards {
		return nil, Report{}, errs.New(errs.KindInvalidHeader, op, "invalid shard counts %d+%d", k, r)
	}
	rep := Report{DataShards: k, ParityShards: r}

	total := k + r
	hdrLen := headerSize(total)
	if len(data) < hdrLen {
		return nil, rep, errs.New(errs.KindTruncated, op, "envelope is %d bytes, header needs %d", len(data), hdrLen)
	}
	tablePos := fixedHeaderSize
	sumPos := hdrLen - checksumSize
	if engine.Uint64(data[sumPos:hdrLen]) != hash.Checksum(data[:sumPos]) {
		return nil, rep, errs.New(errs.KindCorrupted, op, "header checksum mismatch")
	}

	originalLen := engine.Uint64(data[6:14])
	shardSize := int(engine.Uint32(data[14:18]))
	if shardSize == 0 || originalLen > uint64(k)*uint64(shardSize) {
		return nil, rep, errs.New(errs.KindInvalidHeader, op, "original length %d does not fit %d shards of %d bytes",
			originalLen, k, shardSize)
	}

	body := data[hdrLen:]
	if len(body) > total*shardSize {
		return nil, rep, errs.New(errs.KindInvalidHeader, op, "%d trailing bytes", len(body)-total*shardSize)
	}

	shards := make([][]byte, total)
	missing := 0
	for i := range shards {
		start, end := i*shardSize, (i+1)*shardSize
		want := engine.Uint64(data[tablePos+i*checksumSize:])
		if end > len(body) || hash.Checksum(body[start:end]) != want {
			missing++
			continue
		}
		shards[i] = body[start:end:end]
	}

	rep.Damaged = missing
	if missing > r {
		return nil, rep, errs.New(errs.KindCorrupted, op, "%d of %d shards damaged, at most %d recoverable", missing, total, r)
	}
	if missing > 0 {
		enc, err := encoderFor(k, r)
		if err != nil {
			return nil, rep, err
		}
		if err := enc.ReconstructData(shards); err != nil {
			return nil, rep, errs.Wrap(errs.KindCorrupted, op, err)
		}
	}

	out := make([]byte, 0, originalLen)
	for i := 0; i < k && uint64(len(out)) < originalLen; i++ {
		need := min(uint64(shardSize), originalLen-uint64(len(out)))
		out = append(out, shards[i][:need]...)
	}

	return out, rep, nil
}
