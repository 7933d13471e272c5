package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := New(KindTruncated, "hybrid decompress", "run record at %d", 10)

	require.ErrorIs(t, err, ErrTruncated)
	require.NotErrorIs(t, err, ErrInvalidOffset)
	require.Equal(t, "hybrid decompress: truncated: run record at 10", err.Error())
}

func TestError_WrappedThroughFmt(t *testing.T) {
	inner := New(KindPatternMismatch, "periodic compress", "length 7 not a multiple of 251")
	outer := fmt.Errorf("compress chunk 3: %w", inner)

	require.ErrorIs(t, outer, ErrPatternMismatch)
	require.Equal(t, KindPatternMismatch, KindOf(outer))
}

func TestWrap(t *testing.T) {
	require.NoError(t, Wrap(KindIoFailure, "read", nil))

	err := Wrap(KindIoFailure, "read file", io.ErrUnexpectedEOF)
	require.ErrorIs(t, err, ErrIoFailure)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Contains(t, err.Error(), "unexpected EOF")
}

func TestKindOf_PlainError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	require.Equal(t, KindUnknown, KindOf(nil))
}

func TestKind_String(t *testing.T) {
	kinds := []Kind{
		KindPatternMismatch, KindInvalidHeader, KindTruncated, KindInvalidOffset,
		KindIoFailure, KindConfigError, KindSerialization, KindUnsupported, KindCorrupted,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		require.NotEqual(t, "unknown", s)
		require.False(t, seen[s], "duplicate kind name %s", s)
		seen[s] = true
	}
}
