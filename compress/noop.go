package compress

import "github.com/arloliu/patpack/format"

// NoOpCodec stores data unchanged. It is only used when the configuration
// names codec "none"; automatic selection never picks it.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

// NewNoOpCodec creates a pass-through codec.
func NewNoOpCodec() NoOpCodec {
	return NoOpCodec{}
}

// Algorithm implements Codec.
func (NoOpCodec) Algorithm() format.Algorithm {
	return format.AlgorithmNone
}

// Compress returns a copy of data.
func (NoOpCodec) Compress(data []byte) ([]byte, error) {
	return append([]byte{}, data...), nil
}

// Decompress returns a copy of data.
func (NoOpCodec) Decompress(data []byte) ([]byte, error) {
	return append([]byte{}, data...), nil
}
