package compress

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

// DefaultBrotliQuality is the quality used by the dictionary codec.
const DefaultBrotliQuality = 9

// DictionaryCodec targets text-like inputs with many short repeats. It uses
// Brotli, whose built-in static dictionary covers common words and markup.
type DictionaryCodec struct {
	quality int
}

var _ Codec = (*DictionaryCodec)(nil)

// NewDictionaryCodec creates a dictionary codec. quality is clamped to the
// Brotli range.
func NewDictionaryCodec(quality int) *DictionaryCodec {
	return &DictionaryCodec{quality: max(brotli.BestSpeed, min(quality, brotli.BestCompression))}
}

// Algorithm implements Codec.
func (c *DictionaryCodec) Algorithm() format.Algorithm {
	return format.AlgorithmDictionary
}

// Compress implements Compressor.
func (c *DictionaryCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 16)

	w := brotli.NewWriterLevel(&buf, c.quality)
	if _, err := w.Write(data); err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "dictionary compress", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "dictionary compress", err)
	}

	return buf.Bytes(), nil
}

// Decompress implements Decompressor.
func (c *DictionaryCodec) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errs.Wrap(errs.KindCorrupted, "dictionary decompress", err)
	}

	return out, nil
}
