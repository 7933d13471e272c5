package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

type sample struct {
	Algorithm format.Algorithm `cbor:"1,keyasint"`
	FEC       format.FECType   `cbor:"2,keyasint"`
	Ratio     float64          `cbor:"3,keyasint"`
	Labels    map[string]int   `cbor:"4,keyasint,omitempty"`
}

func TestMarshal_RoundTrip(t *testing.T) {
	in := sample{
		Algorithm: format.AlgorithmHierarchical,
		FEC:       format.FECReedSolomon,
		Ratio:     3.25,
		Labels:    map[string]int{"b": 2, "a": 1},
	}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Unmarshal(data, &out))
	require.Equal(t, in, out)
}

func TestMarshal_Deterministic(t *testing.T) {
	v := map[string]int{"z": 1, "a": 2, "m": 3}

	first, err := Marshal(v)
	require.NoError(t, err)
	for range 10 {
		again, err := Marshal(v)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestMarshal_AlgorithmAsText(t *testing.T) {
	data, err := Marshal(format.AlgorithmZstd)
	require.NoError(t, err)
	// Text string of length 4: major type 3.
	require.Equal(t, []byte{0x64, 'Z', 's', 't', 'd'}, data)
}

func TestUnmarshal_Errors(t *testing.T) {
	var out sample
	err := Unmarshal([]byte{0xFF, 0x00}, &out)
	require.ErrorIs(t, err, errs.ErrSerialization)

	bad, err := Marshal(map[int]string{1: "Bogus"})
	require.NoError(t, err)
	err = Unmarshal(bad, &out)
	require.ErrorIs(t, err, errs.ErrSerialization)
}
