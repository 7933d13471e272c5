package compress

import "github.com/arloliu/patpack/format"

// ZstdCodec delegates to Zstandard.
//
// The default build uses the pure-Go klauspost/compress implementation.
// Building with cgo and the gozstd tag switches to the libzstd binding;
// both produce standard zstd frames and decode each other's output.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

// NewZstdCodec creates a Zstandard codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

// Algorithm implements Codec.
func (ZstdCodec) Algorithm() format.Algorithm {
	return format.AlgorithmZstd
}
