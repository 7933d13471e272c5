package compress

import (
	"github.com/klauspost/compress/s2"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

// S2Codec delegates to the S2 block format.
type S2Codec struct{}

var _ Codec = S2Codec{}

// NewS2Codec creates an S2 codec.
func NewS2Codec() S2Codec {
	return S2Codec{}
}

// Algorithm implements Codec.
func (S2Codec) Algorithm() format.Algorithm {
	return format.AlgorithmS2
}

// Compress implements Compressor.
func (S2Codec) Compress(data []byte) ([]byte, error) {
	return s2.Encode(nil, data), nil
}

// Decompress implements Decompressor.
func (S2Codec) Decompress(data []byte) ([]byte, error) {
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, errs.Wrap(errs.KindCorrupted, "s2 decompress", err)
	}

	return out, nil
}
