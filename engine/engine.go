// Package engine runs the analysis pipeline and produces self-describing
// compressed artifacts.
//
// Analysis is detect, sample, count patterns, then select a strategy.
// Compression applies the selected codec and prefixes a section.Header;
// large inputs become chunked containers whose unique chunks are compressed
// concurrently. Decompression needs nothing but the artifact.
package engine

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/arloliu/patpack/chunker"
	"github.com/arloliu/patpack/compress"
	"github.com/arloliu/patpack/config"
	"github.com/arloliu/patpack/detect"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/fec"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/options"
	"github.com/arloliu/patpack/pattern"
	"github.com/arloliu/patpack/regression"
	"github.com/arloliu/patpack/sampling"
	"github.com/arloliu/patpack/strategy"
)

// Engine holds the configured pipeline. It is immutable after New and safe
// for concurrent use.
type Engine struct {
	cfg         config.Config
	logger      *slog.Logger
	calibration *regression.Calibration

	registry *compress.Registry
	detector *detect.Detector
	sampler  *sampling.Sampler
	analyzer *pattern.Analyzer
	selector *strategy.Selector
	chunker  *chunker.Chunker
	fec      *fec.Codec

	// forced is the configured codec when it is not "auto".
	forced    format.Algorithm
	hasForced bool
	workers   int
}

// Option configures an Engine.
type Option = options.Option[*Engine]

// WithConfig replaces the configuration. It is validated by New.
func WithConfig(cfg config.Config) Option {
	return options.NoError(func(e *Engine) {
		e.cfg = cfg
	})
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return options.New(func(e *Engine) error {
		if l == nil {
			return errs.New(errs.KindConfigError, "engine", "nil logger")
		}
		e.logger = l

		return nil
	})
}

// WithCalibration supplies a calibration, overriding the configured
// calibration file.
func WithCalibration(c *regression.Calibration) Option {
	return options.NoError(func(e *Engine) {
		e.calibration = c
	})
}

// New creates an Engine from config.Default adjusted by opts.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    config.Default(),
		logger: slog.New(slog.DiscardHandler),
	}
	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	if err := e.build(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Engine) build() error {
	cfg := e.cfg

	var err error
	e.forced, e.hasForced, err = cfg.Algorithm()
	if err != nil {
		return err
	}

	e.registry, err = compress.NewDefaultRegistry(compress.Params{
		PeriodicUnit:          cfg.Codec.PeriodicUnit,
		Level:                 cfg.Codec.Level,
		HierarchicalBlockSize: cfg.Codec.HierarchicalBlockSize,
	})
	if err != nil {
		return err
	}

	e.detector = detect.New()

	e.sampler, err = sampling.New(
		sampling.WithThreshold(cfg.Sampling.Threshold),
		sampling.WithPoints(cfg.Sampling.Points),
		sampling.WithWindowSize(cfg.Sampling.WindowSize),
	)
	if err != nil {
		return err
	}

	e.analyzer, err = pattern.NewAnalyzer(pattern.WithLengthRange(cfg.Pattern.MinLength, cfg.Pattern.MaxLength))
	if err != nil {
		return err
	}

	if e.calibration == nil && cfg.Strategy.Calibration != "" {
		e.calibration, err = LoadCalibration(cfg.Strategy.Calibration)
		if err != nil {
			return err
		}
	}

	e.selector, err = strategy.New(
		strategy.WithConfidenceFloor(cfg.Strategy.ConfidenceFloor),
		strategy.WithPeriodicUnit(cfg.Codec.PeriodicUnit),
		strategy.WithChunking(cfg.Chunking.Threshold, cfg.Chunking.AvgSize),
		strategy.WithCalibration(e.calibration),
	)
	if err != nil {
		return err
	}

	if cfg.Chunking.Threshold > 0 {
		e.chunker, err = chunker.New(chunker.WithSizes(cfg.Chunking.MinSize, cfg.Chunking.AvgSize, cfg.Chunking.MaxSize))
		if err != nil {
			return err
		}
	}

	if cfg.FEC.Type == format.FECReedSolomon {
		e.fec, err = fec.New(cfg.FEC.DataShards, cfg.FEC.Redundancy)
		if err != nil {
			return err
		}
	}

	e.workers = cfg.Engine.Workers
	if e.workers == 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}

	return nil
}

// Config returns the engine configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Registry returns the codec registry used by the engine.
func (e *Engine) Registry() *compress.Registry {
	return e.registry
}

// LoadCalibration reads a CBOR calibration file written by
// regression.Calibration.Encode.
func LoadCalibration(path string) (*regression.Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "load calibration", err)
	}

	return regression.DecodeCalibration(data)
}
