package compress

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

func TestDelegatedCodecs_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	random := make([]byte, 10_000)
	rng.Read(random)

	inputs := map[string][]byte{
		"empty":  {},
		"byte":   {0x01},
		"text":   bytes.Repeat([]byte("This is a test pattern that repeats. "), 30),
		"random": random,
	}

	codecs := []Codec{
		NewNoOpCodec(),
		NewDictionaryCodec(DefaultBrotliQuality),
		NewZstdCodec(),
		NewLZ4Codec(),
		NewS2Codec(),
		NewSnappyCodec(),
	}

	for _, c := range codecs {
		for name, data := range inputs {
			t.Run(c.Algorithm().String()+"/"+name, func(t *testing.T) {
				encoded, err := c.Compress(data)
				require.NoError(t, err)

				decoded, err := c.Decompress(encoded)
				require.NoError(t, err)
				require.True(t, bytes.Equal(data, decoded), "round trip mismatch")
			})
		}
	}
}

func TestDelegatedCodecs_CorruptInput(t *testing.T) {
	garbage := []byte{0x13, 0x37, 0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}

	for _, c := range []Codec{NewZstdCodec(), NewS2Codec(), NewSnappyCodec()} {
		t.Run(c.Algorithm().String(), func(t *testing.T) {
			_, err := c.Decompress(garbage)
			require.Error(t, err)
		})
	}
}

func TestLZ4Codec_Incompressible(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	data := make([]byte, 2048)
	rng.Read(data)

	c := NewLZ4Codec()
	encoded, err := c.Compress(data)
	require.NoError(t, err)
	require.Equal(t, lz4Stored, encoded[0])

	decoded, err := c.Decompress(encoded)
	require.NoError(t, err)
	require.Equal(t, data, decoded)

	_, err = c.Decompress(encoded[:len(encoded)-1])
	require.ErrorIs(t, err, errs.ErrTruncated)

	bad := bytes.Clone(encoded)
	bad[0] = 0x7
	_, err = c.Decompress(bad)
	require.ErrorIs(t, err, errs.ErrInvalidHeader)
}

func TestLZ4Codec_Compressible(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 500)

	c := NewLZ4Codec()
	encoded, err := c.Compress(data)
	require.NoError(t, err)
	require.Equal(t, lz4Block, encoded[0])
	require.Less(t, len(encoded), len(data))

	decoded, err := c.Decompress(encoded)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestRegistry(t *testing.T) {
	reg, err := NewDefaultRegistry(DefaultParams())
	require.NoError(t, err)

	require.Equal(t, format.Algorithms(), reg.Algorithms())

	for _, algo := range reg.Algorithms() {
		c, err := reg.Get(algo)
		require.NoError(t, err)
		require.Equal(t, algo, c.Algorithm())
	}

	_, err = reg.Get(format.Algorithm(0xEE))
	require.ErrorIs(t, err, errs.ErrUnsupported)

	empty := NewRegistry()
	_, err = empty.Get(format.AlgorithmHybrid)
	require.ErrorIs(t, err, errs.ErrUnsupported)
	empty.Register(NewS2Codec())
	require.Equal(t, []format.Algorithm{format.AlgorithmS2}, empty.Algorithms())
}

func TestNewDefaultRegistry_InvalidParams(t *testing.T) {
	p := DefaultParams()
	p.PeriodicUnit = 0
	_, err := NewDefaultRegistry(p)
	require.ErrorIs(t, err, errs.ErrConfig)

	p = DefaultParams()
	p.Hybrid = []HybridOption{WithMinMatch(1)}
	_, err = NewDefaultRegistry(p)
	require.ErrorIs(t, err, errs.ErrConfig)
}

func TestGetCodec(t *testing.T) {
	c, err := GetCodec(format.AlgorithmPeriodic)
	require.NoError(t, err)
	require.Equal(t, DefaultPeriodicUnit, c.(*PeriodicCodec).Unit())
}

func TestCompressionStats(t *testing.T) {
	s := CompressionStats{OriginalSize: 1000, CompressedSize: 250}
	require.InDelta(t, 0.25, s.CompressionRatio(), 1e-9)
	require.InDelta(t, 4.0, s.Ratio(), 1e-9)
	require.InDelta(t, 75.0, s.SpaceSavings(), 1e-9)

	require.Zero(t, CompressionStats{}.Ratio())
	require.Zero(t, CompressionStats{}.CompressionRatio())
}
