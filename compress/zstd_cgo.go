//go:build cgo && gozstd

package compress

import (
	"github.com/valyala/gozstd"

	"github.com/arloliu/patpack/errs"
)

const gozstdLevel = 3

// Compress implements Compressor.
func (ZstdCodec) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, gozstdLevel), nil
}

// Decompress implements Decompressor.
func (ZstdCodec) Decompress(data []byte) ([]byte, error) {
	out, err := gozstd.Decompress(nil, data)
	if err != nil {
		return nil, errs.Wrap(errs.KindCorrupted, "zstd decompress", err)
	}
	if out == nil {
		out = []byte{}
	}

	return out, nil
}
