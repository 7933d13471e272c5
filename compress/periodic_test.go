package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/patpack/errs"
)

func periodicUnit() []byte {
	unit := make([]byte, DefaultPeriodicUnit)
	for i := range unit {
		unit[i] = byte(i)
	}

	return unit
}

func TestPeriodicCodec_FixedSize(t *testing.T) {
	c, err := NewPeriodicCodec(DefaultPeriodicUnit)
	require.NoError(t, err)

	for _, n := range []int{1, 2, 17, 4000} {
		data := bytes.Repeat(periodicUnit(), n)

		encoded, err := c.Compress(data)
		require.NoError(t, err)
		require.Len(t, encoded, 256)
		require.Equal(t, PeriodicMagic, encoded[0])

		decoded, err := c.Decompress(encoded)
		require.NoError(t, err)
		require.Equal(t, data, decoded)
	}
}

func TestPeriodicCodec_LargeInput(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates 100 MB")
	}

	c, err := NewPeriodicCodec(DefaultPeriodicUnit)
	require.NoError(t, err)

	data := bytes.Repeat(periodicUnit(), 400_000)
	encoded, err := c.Compress(data)
	require.NoError(t, err)
	require.Len(t, encoded, 256)

	ratio := float64(len(data)) / float64(len(encoded))
	require.InDelta(t, 392187.5, ratio, 1)
}

func TestPeriodicCodec_Rejects(t *testing.T) {
	c, err := NewPeriodicCodec(DefaultPeriodicUnit)
	require.NoError(t, err)

	notMultiple := bytes.Repeat(periodicUnit(), 2)[:400]
	mutated := bytes.Repeat(periodicUnit(), 3)
	mutated[600] ^= 0x01

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"not a multiple", notMultiple},
		{"chunks differ", mutated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Compress(tt.data)
			require.ErrorIs(t, err, errs.ErrPatternMismatch)
			require.Nil(t, out)
		})
	}
}

func TestPeriodicCodec_DecompressErrors(t *testing.T) {
	c, err := NewPeriodicCodec(4)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", []byte{PeriodicMagic, 1, 0, 0}, errs.ErrTruncated},
		{"bad magic", []byte{0xAB, 1, 0, 0, 0, 'a', 'b', 'c', 'd'}, errs.ErrInvalidHeader},
		{"zero count", []byte{PeriodicMagic, 0, 0, 0, 0, 'a', 'b', 'c', 'd'}, errs.ErrInvalidHeader},
		{"trailing bytes", []byte{PeriodicMagic, 1, 0, 0, 0, 'a', 'b', 'c', 'd', 'e'}, errs.ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decompress(tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPeriodicCodec_OutputLimit(t *testing.T) {
	c, err := NewPeriodicCodec(4)
	require.NoError(t, err)
	c.maxOutput = 16

	_, err = c.Decompress([]byte{PeriodicMagic, 5, 0, 0, 0, 'a', 'b', 'c', 'd'})
	require.ErrorIs(t, err, errs.ErrCorrupted)

	out, err := c.Decompress([]byte{PeriodicMagic, 4, 0, 0, 0, 'a', 'b', 'c', 'd'})
	require.NoError(t, err)
	require.Equal(t, []byte("abcdabcdabcdabcd"), out)
}

func TestIsPeriodic(t *testing.T) {
	require.True(t, IsPeriodic([]byte("abcabc"), 3))
	require.True(t, IsPeriodic([]byte("abc"), 3))
	require.False(t, IsPeriodic([]byte("abcabd"), 3))
	require.False(t, IsPeriodic([]byte("abcab"), 3))
	require.False(t, IsPeriodic(nil, 3))
	require.False(t, IsPeriodic([]byte("aaaa"), 0))
}

func TestNewPeriodicCodec_InvalidUnit(t *testing.T) {
	_, err := NewPeriodicCodec(0)
	require.ErrorIs(t, err, errs.ErrConfig)
}
