package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlgorithm_String(t *testing.T) {
	tests := []struct {
		name     string
		algo     Algorithm
		expected string
	}{
		{name: "hybrid", algo: AlgorithmHybrid, expected: "Hybrid"},
		{name: "periodic", algo: AlgorithmPeriodic, expected: "Periodic"},
		{name: "hierarchical", algo: AlgorithmHierarchical, expected: "Hierarchical"},
		{name: "dictionary", algo: AlgorithmDictionary, expected: "Dictionary"},
		{name: "unknown", algo: Algorithm(0xFF), expected: "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.algo.String())
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, a := range Algorithms() {
		parsed, err := ParseAlgorithm(a.String())
		require.NoError(t, err)
		require.Equal(t, a, parsed)
	}

	parsed, err := ParseAlgorithm("zstd")
	require.NoError(t, err)
	require.Equal(t, AlgorithmZstd, parsed)

	_, err = ParseAlgorithm("bogus")
	require.Error(t, err)
}

func TestAlgorithm_TextMarshaling(t *testing.T) {
	text, err := AlgorithmHierarchical.MarshalText()
	require.NoError(t, err)

	var a Algorithm
	require.NoError(t, a.UnmarshalText(text))
	require.Equal(t, AlgorithmHierarchical, a)
	require.Error(t, a.UnmarshalText([]byte("nope")))
}

func TestParseFECType(t *testing.T) {
	f, err := ParseFECType("")
	require.NoError(t, err)
	require.Equal(t, FECNone, f)

	f, err = ParseFECType("Reed-Solomon")
	require.NoError(t, err)
	require.Equal(t, FECReedSolomon, f)

	_, err = ParseFECType("parity")
	require.Error(t, err)
}

func TestCategory_IsTextual(t *testing.T) {
	require.True(t, CategoryText.IsTextual())
	require.True(t, CategoryMarkup.IsTextual())
	require.True(t, CategorySourceCode.IsTextual())
	require.False(t, CategoryBinary.IsTextual())
	require.False(t, CategoryPeriodic.IsTextual())
	require.Equal(t, "Unknown", CategoryUnknown.String())
}

func TestIsValid(t *testing.T) {
	for _, a := range Algorithms() {
		require.True(t, a.IsValid(), a.String())
	}
	require.False(t, Algorithm(0).IsValid())
	require.False(t, Algorithm(0x20).IsValid())

	require.True(t, FECNone.IsValid())
	require.True(t, FECReedSolomon.IsValid())
	require.False(t, FECType(7).IsValid())
}
