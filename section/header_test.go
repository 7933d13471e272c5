package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

func TestHeader_RoundTrip(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		h := NewHeader(format.AlgorithmPeriodic, 100_400_000, 0xDEADBEEFCAFEBABE)
		data := h.Bytes()
		require.Len(t, data, HeaderSize)

		parsed, err := ParseHeader(data)
		require.NoError(t, err)
		require.Equal(t, h, parsed)
		require.False(t, parsed.IsFEC())
		require.False(t, parsed.IsChunked())
	})

	t.Run("fec", func(t *testing.T) {
		h := NewHeader(format.AlgorithmHybrid, 10, 1)
		h.WithFEC(format.FECReedSolomon)

		parsed, err := ParseHeader(h.Bytes())
		require.NoError(t, err)
		require.True(t, parsed.IsFEC())
		require.Equal(t, format.FECReedSolomon, parsed.FEC)

		h.WithFEC(format.FECNone)
		require.False(t, h.IsFEC())
	})

	t.Run("chunked", func(t *testing.T) {
		h := NewHeader(format.AlgorithmHybrid, 1<<20, 2)
		h.WithChunked()
		require.Equal(t, format.AlgorithmNone, h.Algorithm)

		parsed, err := ParseHeader(append(h.Bytes(), 0x01, 0x02))
		require.NoError(t, err)
		require.True(t, parsed.IsChunked())
	})
}

func TestParseHeader_Errors(t *testing.T) {
	valid := NewHeader(format.AlgorithmZstd, 5, 9).Bytes()

	mutate := func(fn func(b []byte)) []byte {
		b := append([]byte(nil), valid...)
		fn(b)

		return b
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", valid[:HeaderSize-1], errs.ErrTruncated},
		{"bad magic", mutate(func(b []byte) { b[0] = 0 }), errs.ErrInvalidHeader},
		{"bad version", mutate(func(b []byte) { b[2] = 9 }), errs.ErrInvalidHeader},
		{"reserved flag", mutate(func(b []byte) { b[3] = 0x80 }), errs.ErrInvalidHeader},
		{"unknown algorithm", mutate(func(b []byte) { b[4] = 0x7F }), errs.ErrInvalidHeader},
		{"fec flag without type", mutate(func(b []byte) { b[3] = byte(FlagFEC) }), errs.ErrInvalidHeader},
		{"fec type without flag", mutate(func(b []byte) { b[5] = byte(format.FECReedSolomon) }), errs.ErrInvalidHeader},
		{"chunked with algorithm", mutate(func(b []byte) { b[3] = byte(FlagChunked) }), errs.ErrInvalidHeader},
		{"reserved bytes", mutate(func(b []byte) { b[7] = 1 }), errs.ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFlag_Has(t *testing.T) {
	f := FlagFEC | FlagChunked
	require.True(t, f.Has(FlagFEC))
	require.True(t, f.Has(FlagChunked))
	require.True(t, f.Has(FlagFEC|FlagChunked))
	require.False(t, FlagFEC.Has(FlagChunked))
}
