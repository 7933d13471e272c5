package fec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/patpack/errs"
)

func payload(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i*7 + i/13)
	}

	return out
}

func TestParityShards(t *testing.T) {
	tests := []struct {
		data       int
		redundancy float64
		want       int
	}{
		{8, 1.0, 1},
		{8, 1.25, 2},
		{8, 1.5, 4},
		{8, 2.0, 8},
		{10, 1.3, 3},
		{3, 1.1, 1},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ParityShards(tt.data, tt.redundancy), "%d shards at %v", tt.data, tt.redundancy)
	}
}

func TestRoundTrip(t *testing.T) {
	c, err := New(DefaultDataShards, DefaultRedundancy)
	require.NoError(t, err)
	require.Equal(t, 8, c.DataShards())
	require.Equal(t, 4, c.ParityShards())

	for _, n := range []int{0, 1, 7, 8, 9, 1000, 65537} {
		data := payload(n)
		env, err := c.Encode(data)
		require.NoError(t, err)

		out, rep, err := DecodeReport(env)
		require.NoError(t, err, "n=%d", n)
		require.Equal(t, data, out, "n=%d", n)
		require.Zero(t, rep.Damaged)

		out, err = c.Decode(env)
		require.NoError(t, err)
		require.Equal(t, data, out)
	}
}

func TestRepairsDamagedShards(t *testing.T) {
	c, err := New(4, 1.5) // 2 parity shards
	require.NoError(t, err)

	data := payload(4000)
	env, err := c.Encode(data)
	require.NoError(t, err)

	hdr := headerSize(6)
	shardSize := 1000

	damaged := bytes.Clone(env)
	damaged[hdr+10] ^= 0xFF               // shard 0
	damaged[hdr+2*shardSize+500] ^= 0x01 // shard 2
	pristine := bytes.Clone(damaged)

	out, rep, err := DecodeReport(damaged)
	require.NoError(t, err)
	require.Equal(t, data, out)
	require.Equal(t, 2, rep.Damaged)
	require.Equal(t, pristine, damaged, "input must not be modified")
}

func TestRepairsTruncatedTail(t *testing.T) {
	c, err := New(4, 1.5)
	require.NoError(t, err)

	data := payload(4000)
	env, err := c.Encode(data)
	require.NoError(t, err)

	// Dropping the tail loses the last parity shard and half of the one
	// before it.
	out, rep, err := DecodeReport(env[:len(env)-1500])
	require.NoError(t, err)
	require.Equal(t, data, out)
	require.Equal(t, 2, rep.Damaged)
}

func TestUnrecoverable(t *testing.T) {
	c, err := New(4, 1.25) // 1 parity shard
	require.NoError(t, err)

	env, err := c.Encode(payload(4000))
	require.NoError(t, err)

	hdr := headerSize(5)
	env[hdr] ^= 0xFF
	env[hdr+1000] ^= 0xFF

	_, rep, err := DecodeReport(env)
	require.True(t, errors.Is(err, errs.ErrCorrupted), "got %v", err)
	require.Equal(t, 2, rep.Damaged)
}

func TestDecodeHeaderErrors(t *testing.T) {
	c, err := New(4, 1.5)
	require.NoError(t, err)
	env, err := c.Encode(payload(100))
	require.NoError(t, err)

	tests := []struct {
		name string
		data func() []byte
		want error
	}{
		{"short", func() []byte { return env[:10] }, errs.ErrTruncated},
		{"bad magic", func() []byte { d := bytes.Clone(env); d[0] ^= 0xFF; return d }, errs.ErrInvalidHeader},
		{"bad version", func() []byte { d := bytes.Clone(env); d[2] = 9; return d }, errs.ErrInvalidHeader},
		{"zero parity", func() []byte { d := bytes.Clone(env); d[4] = 0; return d }, errs.ErrInvalidHeader},
		{"checksum table cut", func() []byte { return env[:fixedHeaderSize+8] }, errs.ErrTruncated},
		{"header tampered", func() []byte { d := bytes.Clone(env); d[7] ^= 0x01; return d }, errs.ErrCorrupted},
		{"trailing bytes", func() []byte { return append(bytes.Clone(env), 0) }, errs.ErrInvalidHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data())
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New(0, 1.5)
	require.True(t, errors.Is(err, errs.ErrConfig))

	_, err = New(8, 0.9)
	require.True(t, errors.Is(err, errs.ErrConfig))

	_, err = New(200, 2.0)
	require.True(t, errors.Is(err, errs.ErrConfig))
}
