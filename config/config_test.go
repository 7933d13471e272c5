package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/patpack/config"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	_, ok, err := cfg.Algorithm()
	require.NoError(t, err)
	assert.False(t, ok, "default codec is auto")
	assert.Equal(t, format.FECNone, cfg.FEC.Type)
	assert.True(t, cfg.Chunking.Dedup)
}

func TestParse_PartialConfig(t *testing.T) {
	content := `
[codec]
name = "zstd"

[fec]
type = "reed-solomon"
redundancy = 2.0

[engine]
workers = 3
`
	cfg, err := config.Parse([]byte(content))
	require.NoError(t, err)

	algo, ok, err := cfg.Algorithm()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, format.AlgorithmZstd, algo)
	assert.Equal(t, format.FECReedSolomon, cfg.FEC.Type)
	assert.InDelta(t, 2.0, cfg.FEC.Redundancy, 1e-12)
	assert.Equal(t, 3, cfg.Engine.Workers)

	// Untouched sections keep their defaults.
	def := config.Default()
	assert.Equal(t, def.Sampling, cfg.Sampling)
	assert.Equal(t, def.Chunking, cfg.Chunking)
	assert.Equal(t, def.Codec.Level, cfg.Codec.Level)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `[codec`},
		{"unknown key", "[codec]\ncolour = 1\n"},
		{"unknown codec", "[codec]\nname = \"gzip\"\n"},
		{"unknown fec", "[fec]\ntype = \"parity\"\n"},
		{"low redundancy", "[fec]\nredundancy = 0.5\n"},
		{"too many shards", "[fec]\ntype = \"rs\"\ndata_shards = 250\nredundancy = 2.0\n"},
		{"chunk sizes", "[chunking]\nmin_size = 100\navg_size = 50\n"},
		{"sampling points", "[sampling]\npoints = 1\n"},
		{"pattern range", "[pattern]\nmin_length = 10\nmax_length = 5\n"},
		{"confidence floor", "[strategy]\nconfidence_floor = 1.5\n"},
		{"workers", "[engine]\nworkers = -1\n"},
		{"level", "[codec]\nlevel = 99\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrConfig), "got %v", err)
		})
	}
}

func TestParse_ChunkingDisabledSkipsSizes(t *testing.T) {
	cfg, err := config.Parse([]byte("[chunking]\nthreshold = 0\nmin_size = 0\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Chunking.Threshold)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patpack.toml")
	require.NoError(t, os.WriteFile(path, []byte("[codec]\nname = \"hybrid\"\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	algo, ok, err := cfg.Algorithm()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, format.AlgorithmHybrid, algo)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrIoFailure))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTOML_RoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Codec.Name = "hierarchical"
	cfg.FEC.Type = format.FECReedSolomon
	cfg.Engine.Benchmark = true

	data, err := cfg.TOML()
	require.NoError(t, err)

	parsed, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}

func TestEncodeDecode(t *testing.T) {
	cfg := config.Default()
	cfg.FEC.Type = format.FECReedSolomon
	cfg.Strategy.Calibration = "calibration.cbor"

	data, err := cfg.Encode()
	require.NoError(t, err)

	again, err := cfg.Encode()
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding is deterministic")

	decoded, err := config.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)

	_, err = config.Decode([]byte{0xff, 0x00})
	assert.True(t, errors.Is(err, errs.ErrSerialization))
}

func TestLoad_YAML(t *testing.T) {
	content := `
codec:
  name: lz4
fec:
  type: reed-solomon
  redundancy: 1.25
chunking:
  dedup: false
`
	path := filepath.Join(t.TempDir(), "patpack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	algo, ok, err := cfg.Algorithm()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, format.AlgorithmLZ4, algo)
	assert.Equal(t, format.FECReedSolomon, cfg.FEC.Type)
	assert.InDelta(t, 1.25, cfg.FEC.Redundancy, 1e-12)
	assert.False(t, cfg.Chunking.Dedup)
	assert.Equal(t, config.Default().Sampling, cfg.Sampling)
}

func TestParseYAML_Errors(t *testing.T) {
	_, err := config.ParseYAML([]byte("codec:\n  colour: red\n"))
	assert.True(t, errors.Is(err, errs.ErrConfig), "unknown key: %v", err)

	_, err = config.ParseYAML([]byte("fec:\n  type: parity\n"))
	assert.True(t, errors.Is(err, errs.ErrConfig), "bad fec type: %v", err)

	cfg, err := config.ParseYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}
