// Package config holds the engine configuration surface and its TOML file
// format. Files ending in .yaml or .yml are read as YAML with the same keys.
//
// A configuration file only needs the keys it changes; everything else keeps
// the value from Default:
//
//	[codec]
//	name = "auto"
//	level = 9
//
//	[fec]
//	type = "reed-solomon"
//	redundancy = 1.5
//
//	[chunking]
//	threshold = 8388608
//	dedup = true
package config

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/patpack/chunker"
	"github.com/arloliu/patpack/compress"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/fec"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/codec"
	"github.com/arloliu/patpack/pattern"
	"github.com/arloliu/patpack/sampling"
	"github.com/arloliu/patpack/strategy"
)

// CodecAuto lets the strategy selector pick the codec.
const CodecAuto = "auto"

// DefaultChunkThreshold is the input size above which inputs are chunked.
const DefaultChunkThreshold = 8 * 1024 * 1024

// Config is the full engine configuration. It is read-only once handed to
// the engine.
type Config struct {
	Codec    CodecConfig    `toml:"codec" yaml:"codec"`
	FEC      FECConfig      `toml:"fec" yaml:"fec"`
	Chunking ChunkingConfig `toml:"chunking" yaml:"chunking"`
	Sampling SamplingConfig `toml:"sampling" yaml:"sampling"`
	Pattern  PatternConfig  `toml:"pattern" yaml:"pattern"`
	Strategy StrategyConfig `toml:"strategy" yaml:"strategy"`
	Engine   EngineConfig   `toml:"engine" yaml:"engine"`
}

// CodecConfig selects and tunes codecs.
type CodecConfig struct {
	// Name is "auto" or an algorithm name such as "hybrid" or "zstd".
	Name string `toml:"name" yaml:"name"`
	// Level is forwarded to codecs with a quality setting.
	Level int `toml:"level" yaml:"level"`
	// PeriodicUnit is the unit size of the periodic codec.
	PeriodicUnit int `toml:"periodic_unit" yaml:"periodic_unit"`
	// HierarchicalBlockSize is the block size of the hierarchical codec.
	HierarchicalBlockSize int `toml:"hierarchical_block_size" yaml:"hierarchical_block_size"`
}

// FECConfig controls the forward error correction wrap.
type FECConfig struct {
	Type       format.FECType `toml:"type" yaml:"type"`
	Redundancy float64        `toml:"redundancy" yaml:"redundancy"`
	DataShards int            `toml:"data_shards" yaml:"data_shards"`
}

// ChunkingConfig controls content-defined chunking of large inputs.
type ChunkingConfig struct {
	// Threshold is the input size above which inputs are chunked. Zero
	// disables chunking.
	Threshold int  `toml:"threshold" yaml:"threshold"`
	MinSize   int  `toml:"min_size" yaml:"min_size"`
	AvgSize   int  `toml:"avg_size" yaml:"avg_size"`
	MaxSize   int  `toml:"max_size" yaml:"max_size"`
	Dedup     bool `toml:"dedup" yaml:"dedup"`
}

// SamplingConfig controls the adaptive sampler.
type SamplingConfig struct {
	Threshold  int `toml:"threshold" yaml:"threshold"`
	Points     int `toml:"points" yaml:"points"`
	WindowSize int `toml:"window_size" yaml:"window_size"`
}

// PatternConfig controls the pattern analyzer.
type PatternConfig struct {
	MinLength int `toml:"min_length" yaml:"min_length"`
	MaxLength int `toml:"max_length" yaml:"max_length"`
}

// StrategyConfig controls the strategy selector.
type StrategyConfig struct {
	ConfidenceFloor float64 `toml:"confidence_floor" yaml:"confidence_floor"`
	// Calibration is an optional path to a CBOR calibration file.
	Calibration string `toml:"calibration" yaml:"calibration"`
}

// EngineConfig controls orchestration.
type EngineConfig struct {
	// Benchmark enables the reference-codec probe during analysis.
	Benchmark bool `toml:"benchmark" yaml:"benchmark"`
	// Workers bounds concurrent chunk and batch work. Zero means GOMAXPROCS.
	Workers int `toml:"workers" yaml:"workers"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Codec: CodecConfig{
			Name:                  CodecAuto,
			Level:                 compress.DefaultBrotliQuality,
			PeriodicUnit:          compress.DefaultPeriodicUnit,
			HierarchicalBlockSize: compress.DefaultHierarchicalBlockSize,
		},
		FEC: FECConfig{
			Type:       format.FECNone,
			Redundancy: fec.DefaultRedundancy,
			DataShards: fec.DefaultDataShards,
		},
		Chunking: ChunkingConfig{
			Threshold: DefaultChunkThreshold,
			MinSize:   chunker.DefaultMinSize,
			AvgSize:   chunker.DefaultAvgSize,
			MaxSize:   chunker.DefaultMaxSize,
			Dedup:     true,
		},
		Sampling: SamplingConfig{
			Threshold:  sampling.DefaultThreshold,
			Points:     sampling.DefaultPoints,
			WindowSize: sampling.DefaultWindowSize,
		},
		Pattern: PatternConfig{
			MinLength: pattern.DefaultMinLength,
			MaxLength: pattern.DefaultMaxLength,
		},
		Strategy: StrategyConfig{
			ConfidenceFloor: strategy.DefaultConfidenceFloor,
		},
	}
}

// Load reads a configuration file on top of Default. Files ending in .yaml
// or .yml are YAML, everything else is TOML.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errs.Wrap(errs.KindIoFailure, "config load", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

// ParseYAML is Parse for YAML documents using the same keys.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errs.Wrap(errs.KindConfigError, "config parse yaml", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Parse decodes TOML on top of Default and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	const op = "config parse"

	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errs.Wrap(errs.KindConfigError, op, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return Config{}, errs.New(errs.KindConfigError, op, "unknown keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// TOML renders cfg as a TOML document that Parse accepts.
func (c Config) TOML() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, errs.Wrap(errs.KindSerialization, "config toml", err)
	}

	return buf.Bytes(), nil
}

// Algorithm returns the configured codec, or ok=false for "auto".
func (c Config) Algorithm() (algo format.Algorithm, ok bool, err error) {
	if c.Codec.Name == "" || strings.EqualFold(c.Codec.Name, CodecAuto) {
		return 0, false, nil
	}

	algo, err = format.ParseAlgorithm(c.Codec.Name)
	if err != nil {
		return 0, false, errs.Wrap(errs.KindConfigError, "config codec", err)
	}

	return algo, true, nil
}

// Validate checks every field and returns a ConfigError describing the first
// invalid one.
func (c Config) Validate() error {
	const op = "config validate"

	if _, _, err := c.Algorithm(); err != nil {
		return err
	}
	if c.Codec.Level < 0 || c.Codec.Level > 22 {
		return errs.New(errs.KindConfigError, op, "codec level %d out of range [0,22]", c.Codec.Level)
	}
	if c.Codec.PeriodicUnit <= 0 {
		return errs.New(errs.KindConfigError, op, "periodic unit must be positive, got %d", c.Codec.PeriodicUnit)
	}
	if c.Codec.HierarchicalBlockSize <= 0 {
		return errs.New(errs.KindConfigError, op, "hierarchical block size must be positive, got %d", c.Codec.HierarchicalBlockSize)
	}

	if !c.FEC.Type.IsValid() {
		return errs.New(errs.KindConfigError, op, "unknown fec type %d", c.FEC.Type)
	}
	if math.IsNaN(c.FEC.Redundancy) || c.FEC.Redundancy < 1.0 {
		return errs.New(errs.KindConfigError, op, "fec redundancy must be >= 1.0, got %v", c.FEC.Redundancy)
	}
	if c.FEC.Type != format.FECNone {
		if _, err := fec.New(c.FEC.DataShards, c.FEC.Redundancy); err != nil {
			return err
		}
	}

	if c.Chunking.Threshold < 0 {
		return errs.New(errs.KindConfigError, op, "chunk threshold must not be negative, got %d", c.Chunking.Threshold)
	}
	if c.Chunking.Threshold > 0 {
		if _, err := chunker.New(chunker.WithSizes(c.Chunking.MinSize, c.Chunking.AvgSize, c.Chunking.MaxSize)); err != nil {
			return err
		}
	}

	if _, err := sampling.New(
		sampling.WithThreshold(c.Sampling.Threshold),
		sampling.WithPoints(c.Sampling.Points),
		sampling.WithWindowSize(c.Sampling.WindowSize),
	); err != nil {
		return err
	}
	if _, err := pattern.NewAnalyzer(pattern.WithLengthRange(c.Pattern.MinLength, c.Pattern.MaxLength)); err != nil {
		return err
	}
	if _, err := strategy.New(strategy.WithConfidenceFloor(c.Strategy.ConfidenceFloor)); err != nil {
		return err
	}

	if c.Engine.Workers < 0 {
		return errs.New(errs.KindConfigError, op, "workers must not be negative, got %d", c.Engine.Workers)
	}

	return nil
}

// Encode serializes cfg as deterministic CBOR.
func (c Config) Encode() ([]byte, error) {
	return codec.Marshal(c)
}

// Decode parses a configuration produced by Encode and validates it.
func Decode(data []byte) (Config, error) {
	var cfg Config
	if err := codec.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
