package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteBuffer_WriteAndReset(t *testing.T) {
	bb := NewByteBuffer(16)
	require.NoError(t, bb.WriteByte(0xFF))
	n, err := bb.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{0xFF, 1, 2, 3}, bb.Bytes())
	require.Equal(t, 4, bb.Len())

	bb.Reset()
	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, 16, cap(bb.B))
}

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("sufficient capacity is a no-op", func(t *testing.T) {
		bb := NewByteBuffer(CodecBufferDefaultSize)
		bb.Grow(100)
		assert.Equal(t, CodecBufferDefaultSize, cap(bb.B))
	})

	t.Run("small buffer grows by default size", func(t *testing.T) {
		bb := NewByteBuffer(8)
		bb.B = append(bb.B, make([]byte, 8)...)
		bb.Grow(1)
		assert.GreaterOrEqual(t, cap(bb.B), 8+CodecBufferDefaultSize)
		assert.Equal(t, 8, bb.Len())
	})

	t.Run("grows by at least the required bytes", func(t *testing.T) {
		bb := NewByteBuffer(8)
		bb.Grow(CodecBufferDefaultSize * 3)
		assert.GreaterOrEqual(t, cap(bb.B), CodecBufferDefaultSize*3)
	})
}

func TestByteBuffer_CloneIsIndependent(t *testing.T) {
	bb := NewByteBuffer(4)
	_, _ = bb.Write([]byte("abc"))
	clone := bb.Clone()
	bb.B[0] = 'z'
	assert.Equal(t, []byte("abc"), clone)
}

func TestByteBufferPool_DropsOversized(t *testing.T) {
	p := NewByteBufferPool(4, 8)
	bb := p.Get()
	require.NotNil(t, bb)
	bb.Grow(64)
	require.NotPanics(t, func() { p.Put(bb) })
	require.NotPanics(t, func() { p.Put(nil) })

	small := p.Get()
	_, _ = small.Write([]byte("ab"))
	p.Put(small)
	again := p.Get()
	assert.Equal(t, 0, again.Len())
}

func TestDefaultPools(t *testing.T) {
	cb := GetCodecBuffer()
	require.NotNil(t, cb)
	PutCodecBuffer(cb)

	bb := GetBlockBuffer()
	require.NotNil(t, bb)
	PutBlockBuffer(bb)
}

func TestHashChain_Reuse(t *testing.T) {
	hc := GetHashChain(16, 32)
	require.Len(t, hc.Head, 16)
	require.Len(t, hc.Prev, 32)
	for _, h := range hc.Head {
		require.Equal(t, int32(-1), h)
	}

	hc.Head[3] = 7
	hc.Prev[5] = 9
	PutHashChain(hc)

	again := GetHashChain(16, 32)
	for _, h := range again.Head {
		require.Equal(t, int32(-1), h, "heads are reset on every Get")
	}

	larger := GetHashChain(64, 64)
	require.Len(t, larger.Head, 64)
	require.Len(t, larger.Prev, 64)

	PutHashChain(again)
	PutHashChain(larger)
	PutHashChain(nil)
}
