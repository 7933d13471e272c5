// Package chunker splits large inputs into content-defined chunks and
// deduplicates them by BLAKE3 hash.
//
// Boundaries come from a GearHash rolling hash, so an insertion early in
// the input only moves the boundaries near it; identical regions of two
// inputs produce identical chunks.
package chunker

import (
	"encoding/hex"
	"math/bits"

	"github.com/zeebo/blake3"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/internal/options"
)

const (
	DefaultMinSize = 16 * 1024
	DefaultAvgSize = 64 * 1024
	DefaultMaxSize = 256 * 1024

	// gearWindow is the number of bytes that influence the hash: each byte
	// is shifted out of the 64-bit state after 64 steps.
	gearWindow = 64
)

// Hash is a 32-byte BLAKE3 digest of a chunk's uncompressed bytes.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// chunkDomainKey separates chunk hashes from any other BLAKE3 use.
var chunkDomainKey = [32]byte{
	'p', 'a', 't', 'p', 'a', 'c', 'k', '.', 'c', 'h', 'u', 'n', 'k',
}

// HashChunk returns the keyed BLAKE3 hash of data.
func HashChunk(data []byte) Hash {
	h, err := blake3.NewKeyed(chunkDomainKey[:])
	if err != nil {
		panic("chunker: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write(data)

	var out Hash
	copy(out[:], h.Sum(nil))

	return out
}

// Chunk is one contiguous range of the input.
type Chunk struct {
	// Offset is the position of the chunk in the input.
	Offset int
	// Data aliases the input buffer.
	Data []byte
	// Hash is HashChunk(Data).
	Hash Hash
}

// Chunker holds the size parameters. It is immutable and safe for
// concurrent use.
type Chunker struct {
	minSize int
	avgSize int
	maxSize int
	mask    uint64
}

// Option configures a Chunker.
type Option = options.Option[*Chunker]

// WithSizes sets the minimum, target average, and maximum chunk sizes.
// avg is rounded down to a power of two.
func WithSizes(minSize, avgSize, maxSize int) Option {
	return options.New(func(c *Chunker) error {
		if minSize <= 0 || minSize > avgSize || avgSize > maxSize {
			return errs.New(errs.KindConfigError, "chunker", "need 0 < min <= avg <= max, got %d/%d/%d",
				minSize, avgSize, maxSize)
		}
		c.minSize, c.avgSize, c.maxSize = minSize, avgSize, maxSize

		return nil
	})
}

// New creates a Chunker.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		minSize: DefaultMinSize,
		avgSize: DefaultAvgSize,
		maxSize: DefaultMaxSize,
	}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	// A boundary fires when the top maskBits bits of the hash are zero,
	// which happens once every 2^maskBits bytes on average.
	maskBits := bits.Len(uint(c.avgSize)) - 1
	c.mask = ^uint64(0) << (64 - maskBits)
	if maskBits == 0 {
		c.mask = 0
	}

	return c, nil
}

// MinSize returns the minimum chunk size.
func (c *Chunker) MinSize() int { return c.minSize }

// AvgSize returns the target average chunk size.
func (c *Chunker) AvgSize() int { return c.avgSize }

// MaxSize returns the maximum chunk size.
func (c *Chunker) MaxSize() int { return c.maxSize }

// Split returns the chunks of data in order. Their Data fields alias data.
// Empty input yields no chunks.
func (c *Chunker) Split(data []byte) []Chunk {
	chunks := make([]Chunk, 0, len(data)/c.avgSize+1)

	for pos := 0; pos < len(data); {
		end := pos + c.boundary(data[pos:])
		chunks = append(chunks, Chunk{
			Offset: pos,
			Data:   data[pos:end],
			Hash:   HashChunk(data[pos:end]),
		})
		pos = end
	}

	return chunks
}

// boundary returns the length of the first chunk of data.
func (c *Chunker) boundary(data []byte) int {
	if len(data) <= c.minSize {
		return len(data)
	}

	limit := min(len(data), c.maxSize)

	// Bytes more than gearWindow before minSize have left the hash state by
	// the time a boundary is allowed, so hashing starts there.
	var h uint64
	for pos := max(0, c.minSize-gearWindow); pos < limit; pos++ {
		h = (h << 1) + gearTable[data[pos]]
		if pos+1 >= c.minSize && h&c.mask == 0 {
			return pos + 1
		}
	}

	return limit
}

// gearTable holds one pseudo-random 64-bit value per byte. It is generated
// from a fixed splitmix64 seed, so boundaries are stable across builds.
var gearTable = func() [256]uint64 {
	var t [256]uint64
	state := uint64(0x70617470616b6765) // "patpakge"
	for i := range t {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		t[i] = z ^ (z >> 31)
	}

	return t
}()
