package patpack

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

func TestRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("This is a test pattern that repeats. "), 3)

	res, err := Analyze(data)
	require.NoError(t, err)
	require.Equal(t, format.AlgorithmDictionary, res.Strategy.Algorithm)

	artifact, err := Compress(data)
	require.NoError(t, err)

	out, err := Decompress(artifact)
	require.NoError(t, err)
	require.Equal(t, data, out)

	artifact, err = CompressWith(data, format.AlgorithmHybrid)
	require.NoError(t, err)
	out, err = Decompress(artifact)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestAnalyzeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4, 5, 6}, 0o644))

	res, err := AnalyzeFile(path)
	require.NoError(t, err)
	require.Equal(t, 6, res.Size)

	_, err = AnalyzeFile(path + ".missing")
	require.True(t, errors.Is(err, errs.ErrIoFailure))
}

func TestDecompress_Garbage(t *testing.T) {
	_, err := Decompress([]byte("not an artifact at all, just text"))
	require.True(t, errors.Is(err, errs.ErrInvalidHeader))
}
