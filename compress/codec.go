package compress

import (
	"slices"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

// Compressor compresses a complete in-memory buffer.
type Compressor interface {
	// Compress returns the compressed form of data.
	//
	// Memory management:
	//   - Returned slice is newly allocated and owned by the caller
	//   - Input slice is not modified
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor.
//
// Implementations validate their framing and stop at the first violated
// invariant; no partial output is returned alongside an error.
type Decompressor interface {
	// Decompress returns the original bytes encoded in data.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions and identifies its wire format.
//
// All codecs in this package are stateless after construction and safe for
// concurrent use.
type Codec interface {
	Compressor
	Decompressor

	// Algorithm returns the identifier recorded in artifact headers.
	Algorithm() format.Algorithm
}

// CompressionStats describes one compression run.
type CompressionStats struct {
	// Algorithm identifies the codec used
	Algorithm format.Algorithm

	// OriginalSize is the size of input data before compression
	OriginalSize int64

	// CompressedSize is the size of data after compression
	CompressedSize int64

	// CompressionTimeNs is the time taken to compress the data
	CompressionTimeNs int64
}

// CompressionRatio returns compressed size / original size.
//
// Values below 1.0 indicate a size reduction. Returns 0 for empty input.
func (s CompressionStats) CompressionRatio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// Ratio returns original size / compressed size, the "x times smaller"
// figure reported by strategies. Returns 0 when either size is zero.
func (s CompressionStats) Ratio() float64 {
	if s.OriginalSize == 0 || s.CompressedSize == 0 {
		return 0.0
	}

	return float64(s.OriginalSize) / float64(s.CompressedSize)
}

// SpaceSavings returns the space savings as a percentage.
func (s CompressionStats) SpaceSavings() float64 {
	return (1.0 - s.CompressionRatio()) * 100.0
}

// Registry maps algorithm identifiers to codecs.
//
// A Registry is populated before use and read-only afterwards; lookups are
// safe from any number of goroutines as long as no Register call runs
// concurrently.
type Registry struct {
	codecs map[format.Algorithm]Codec
}

// NewRegistry creates a registry holding the given codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[format.Algorithm]Codec, len(codecs))}
	for _, c := range codecs {
		r.Register(c)
	}

	return r
}

// Register adds or replaces the codec for c.Algorithm().
func (r *Registry) Register(c Codec) {
	r.codecs[c.Algorithm()] = c
}

// Get returns the codec registered for algo.
func (r *Registry) Get(algo format.Algorithm) (Codec, error) {
	if c, ok := r.codecs[algo]; ok {
		return c, nil
	}

	return nil, errs.New(errs.KindUnsupported, "codec registry", "no codec for algorithm %s", algo)
}

// Algorithms returns the registered identifiers in ascending order.
func (r *Registry) Algorithms() []format.Algorithm {
	algos := make([]format.Algorithm, 0, len(r.codecs))
	for a := range r.codecs {
		algos = append(algos, a)
	}
	slices.Sort(algos)

	return algos
}

// Params holds the tunables used to build the default codec set.
type Params struct {
	// PeriodicUnit is the unit size of the periodic codec.
	PeriodicUnit int
	// Level is the generic compression level forwarded to codecs that have one.
	Level int
	// Hybrid holds options for the RLE+LZ77 hybrid codec.
	Hybrid []HybridOption
	// HierarchicalBlockSize is the block size of the hierarchical codec.
	HierarchicalBlockSize int
}

// DefaultParams returns the reference parameters.
func DefaultParams() Params {
	return Params{
		PeriodicUnit:          DefaultPeriodicUnit,
		Level:                 DefaultBrotliQuality,
		HierarchicalBlockSize: DefaultHierarchicalBlockSize,
	}
}

// NewDefaultRegistry builds a registry with every built-in codec configured
// from p.
func NewDefaultRegistry(p Params) (*Registry, error) {
	hybrid, err := NewHybridCodec(p.Hybrid...)
	if err != nil {
		return nil, err
	}

	periodic, err := NewPeriodicCodec(p.PeriodicUnit)
	if err != nil {
		return nil, err
	}

	hier, err := NewHierarchicalCodec(hybrid, p.HierarchicalBlockSize)
	if err != nil {
		return nil, err
	}

	return NewRegistry(
		NewNoOpCodec(),
		hybrid,
		periodic,
		hier,
		NewDictionaryCodec(p.Level),
		NewZstdCodec(),
		NewLZ4Codec(),
		NewS2Codec(),
		NewSnappyCodec(),
	), nil
}

var builtinRegistry = mustRegistry(DefaultParams())

func mustRegistry(p Params) *Registry {
	r, err := NewDefaultRegistry(p)
	if err != nil {
		panic("compress: default registry initialization failed: " + err.Error())
	}

	return r
}

// GetCodec retrieves a built-in codec with reference parameters.
func GetCodec(algo format.Algorithm) (Codec, error) {
	return builtinRegistry.Get(algo)
}
