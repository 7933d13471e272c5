package compress

import (
	"github.com/golang/snappy"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

// SnappyCodec delegates to the Snappy block format.
type SnappyCodec struct{}

var _ Codec = SnappyCodec{}

// NewSnappyCodec creates a Snappy codec.
func NewSnappyCodec() SnappyCodec {
	return SnappyCodec{}
}

// Algorithm implements Codec.
func (SnappyCodec) Algorithm() format.Algorithm {
	return format.AlgorithmSnappy
}

// Compress implements Compressor.
func (SnappyCodec) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

// Decompress implements Decompressor.
func (SnappyCodec) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errs.Wrap(errs.KindCorrupted, "snappy decompress", err)
	}

	return out, nil
}
