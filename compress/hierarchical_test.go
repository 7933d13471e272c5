package compress

import (
	"bytes"
	"math/rand"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/patpack/errs"
)

func newTestHierarchical(t *testing.T, blockSize int) *HierarchicalCodec {
	t.Helper()
	c, err := NewHierarchicalCodec(newTestHybrid(t), blockSize)
	require.NoError(t, err)

	return c
}

func TestHierarchicalCodec_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	random := make([]byte, 50_000)
	rng.Read(random)

	block := make([]byte, 1024)
	rng.Read(block)
	repeatedBlocks := bytes.Repeat(block, 10)

	skewed := make([]byte, 20_000)
	for i := range skewed {
		skewed[i] = "aaaaaaabbbc\xff"[rng.Intn(12)]
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"single byte", []byte{0xFE}},
		{"partial block", []byte("hello hierarchical world")},
		{"random", random},
		{"repeated blocks", repeatedBlocks},
		{"skewed symbols", skewed},
		{"text", bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 500)},
	}

	c := newTestHierarchical(t, 1024)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := c.Compress(tt.data)
			require.NoError(t, err)

			blocks := (len(tt.data) + 1023) / 1024
			require.LessOrEqual(t, len(encoded), hierHeaderSize+blocks*hierBlockHeaderSize+len(tt.data))

			decoded, err := c.Decompress(encoded)
			require.NoError(t, err)
			require.True(t, bytes.Equal(tt.data, decoded), "round trip mismatch")
		})
	}
}

func TestHierarchicalCodec_BlockModes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	block := make([]byte, 256)
	rng.Read(block)

	c := newTestHierarchical(t, 256)
	encoded, err := c.Compress(bytes.Repeat(block, 3))
	require.NoError(t, err)

	pos := hierHeaderSize
	modes := make([]blockMode, 0, 3)
	for pos < len(encoded) {
		modes = append(modes, blockMode(encoded[pos]))
		payloadLen := int(encoded[pos+9]) | int(encoded[pos+10])<<8
		pos += hierBlockHeaderSize + payloadLen
	}
	require.Len(t, modes, 3)
	require.NotEqual(t, blockRef, modes[0])
	require.Equal(t, []blockMode{blockRef, blockRef}, modes[1:])
}

func TestHierarchicalCodec_EntropyPass(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := make([]byte, 4096)
	for i := range data {
		// Few symbols, no long repeats: hybrid gains little, huff0 a lot.
		data[i] = "abcd"[rng.Intn(4)]
	}

	c := newTestHierarchical(t, DefaultHierarchicalBlockSize)
	encoded, err := c.Compress(data)
	require.NoError(t, err)
	require.Equal(t, blockHybridHuff, blockMode(encoded[hierHeaderSize]))
	require.Less(t, len(encoded), len(data))

	decoded, err := c.Decompress(encoded)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

func TestHierarchicalCodec_DecompressErrors(t *testing.T) {
	c := newTestHierarchical(t, 1024)
	valid, err := c.Compress(bytes.Repeat([]byte("abcdefgh"), 300))
	require.NoError(t, err)

	badMagic := bytes.Clone(valid)
	badMagic[0] = 0x00

	badVersion := bytes.Clone(valid)
	badVersion[1] = 0x7F

	badMode := bytes.Clone(valid)
	badMode[hierHeaderSize] = 0x9

	trailing := append(bytes.Clone(valid), 0x00)

	forwardRef := []byte{
		HierarchicalMagic, HierarchicalVersion,
		0x00, 0x04, 0x00, 0x00, // block size 1024
		0x01, 0x00, 0x00, 0x00, // one block
		byte(blockRef), 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", valid[:5], errs.ErrTruncated},
		{"bad magic", badMagic, errs.ErrInvalidHeader},
		{"bad version", badVersion, errs.ErrInvalidHeader},
		{"unknown mode", badMode, errs.ErrInvalidHeader},
		{"truncated payload", valid[:len(valid)-1], errs.ErrTruncated},
		{"trailing bytes", trailing, errs.ErrInvalidHeader},
		{"reference to undecoded block", forwardRef, errs.ErrInvalidOffset},
		{"forged raw length", forgedRawLen(blockHybrid, 0), errs.ErrCorrupted},
		{"forged token length", forgedRawLen(blockHybridHuff, 0xF0000000), errs.ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Decompress(tt.data)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, out)
		})
	}
}

// forgedRawLen builds a one-block stream with the largest block size, a
// raw length near 4 GiB and an empty payload.
func forgedRawLen(mode blockMode, tokenLen uint32) []byte {
	out := []byte{
		HierarchicalMagic, HierarchicalVersion,
		0xFF, 0xFF, 0xFF, 0xFF, // block size
		0x01, 0x00, 0x00, 0x00, // one block
		byte(mode),
		0x00, 0x00, 0x00, 0xF0, // raw length
	}
	out = append(out, byte(tokenLen), byte(tokenLen>>8), byte(tokenLen>>16), byte(tokenLen>>24))

	return append(out, 0x00, 0x00, 0x00, 0x00) // empty payload
}

func TestHierarchicalCodec_ForgedLengthsDoNotAllocate(t *testing.T) {
	c := newTestHierarchical(t, 1024)
	data := forgedRawLen(blockHybrid, 0)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err := c.Decompress(data)
	runtime.ReadMemStats(&after)

	require.ErrorIs(t, err, errs.ErrCorrupted)
	require.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}

func TestHierarchicalCodec_TinyBlocks(t *testing.T) {
	data := bytes.Repeat([]byte("abcab"), 2000)

	for _, blockSize := range []int{1, 2, 3, 4, 5, 8} {
		c := newTestHierarchical(t, blockSize)
		encoded, err := c.Compress(data)
		require.NoError(t, err)

		blocks := (len(data) + blockSize - 1) / blockSize
		require.LessOrEqual(t, len(encoded), hierHeaderSize+blocks*hierBlockHeaderSize+len(data), "block size %d", blockSize)

		decoded, err := c.Decompress(encoded)
		require.NoError(t, err)
		require.True(t, bytes.Equal(data, decoded), "block size %d", blockSize)
	}
}

func TestNewHierarchicalCodec_Invalid(t *testing.T) {
	_, err := NewHierarchicalCodec(nil, 1024)
	require.ErrorIs(t, err, errs.ErrConfig)

	_, err = NewHierarchicalCodec(newTestHybrid(t), 0)
	require.ErrorIs(t, err, errs.ErrConfig)
}
