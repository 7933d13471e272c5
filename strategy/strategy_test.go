package strategy

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/codec"
)

func TestStrategyEncodeDecode(t *testing.T) {
	st := Strategy{
		Algorithm:      format.AlgorithmHybrid,
		EstimatedRatio: 2.75,
		Confidence:     0.3,
		Verified:       true,
		Fallback:       true,
		Nominal:        format.AlgorithmHierarchical,
		ChunkSize:      64 * 1024,
		Reason:         "unknown category",
	}

	data, err := st.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, st, decoded)
}

func TestStrategyEncodeFillsNominal(t *testing.T) {
	st := Strategy{Algorithm: format.AlgorithmZstd, EstimatedRatio: 1, Confidence: 1}

	data, err := st.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, format.AlgorithmZstd, decoded.Nominal)
}

func TestStrategyValidate(t *testing.T) {
	valid := Strategy{Algorithm: format.AlgorithmHybrid, EstimatedRatio: 1, Confidence: 0.5}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Strategy)
	}{
		{"unknown algorithm", func(s *Strategy) { s.Algorithm = 0 }},
		{"confidence above one", func(s *Strategy) { s.Confidence = 1.01 }},
		{"negative confidence", func(s *Strategy) { s.Confidence = -0.1 }},
		{"NaN confidence", func(s *Strategy) { s.Confidence = math.NaN() }},
		{"negative ratio", func(s *Strategy) { s.EstimatedRatio = -1 }},
		{"negative chunk size", func(s *Strategy) { s.ChunkSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := valid
			tt.mutate(&st)
			require.True(t, errors.Is(st.Validate(), errs.ErrConfig))

			_, err := st.Encode()
			require.True(t, errors.Is(err, errs.ErrSerialization))
		})
	}
}

func TestStrategyDecodeErrors(t *testing.T) {
	_, err := Decode([]byte{0xbf})
	require.True(t, errors.Is(err, errs.ErrSerialization))

	// Well-formed CBOR carrying an out-of-range confidence.
	bad, err := codec.Marshal(map[int]any{1: "Hybrid", 2: 1.0, 3: 1.5, 6: "Hybrid"})
	require.NoError(t, err)
	_, err = Decode(bad)
	require.True(t, errors.Is(err, errs.ErrSerialization))
	require.True(t, errors.Is(err, errs.ErrConfig))

	unknown, err := codec.Marshal(map[int]any{1: "Bogus", 2: 1.0, 3: 0.5})
	require.NoError(t, err)
	_, err = Decode(unknown)
	require.True(t, errors.Is(err, errs.ErrSerialization))
}

func TestStrategyString(t *testing.T) {
	st := Strategy{
		Algorithm:      format.AlgorithmHybrid,
		EstimatedRatio: 1,
		Confidence:     0.25,
		Fallback:       true,
		Nominal:        format.AlgorithmDictionary,
	}
	require.Contains(t, st.String(), "fallback from Dictionary")
}
