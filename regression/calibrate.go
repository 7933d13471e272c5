package regression

import (
	"context"
	"errors"
	"math"
	"slices"

	"github.com/arloliu/patpack/compress"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/codec"
	"github.com/arloliu/patpack/internal/options"
	"github.com/arloliu/patpack/pattern"
)

// DefaultAlgorithms are the codecs measured during calibration: the three
// codecs the selector chooses between on density alone.
var DefaultAlgorithms = []format.Algorithm{
	format.AlgorithmHybrid,
	format.AlgorithmHierarchical,
	format.AlgorithmDictionary,
}

// DensityFor returns the density the selector compares for algo. The
// dictionary codec is driven by short repeats; the others by repeats of any
// analyzed length.
func DensityFor(algo format.Algorithm, shortDensity, overallDensity float64) float64 {
	if algo == format.AlgorithmDictionary {
		return shortDensity
	}

	return overallDensity
}

// Sample is one calibration measurement: the densities of a buffer and the
// ratio (original / compressed) each measured codec achieved on it.
type Sample struct {
	ShortDensity   float64
	OverallDensity float64
	Ratios         map[format.Algorithm]float64
}

// Winner returns the algorithm with the highest ratio, breaking ties by the
// lower identifier. ok is false for a sample with no ratios.
func (s Sample) Winner() (algo format.Algorithm, ok bool) {
	best := math.Inf(-1)
	for _, a := range sortedAlgorithms(s.Ratios) {
		if r := s.Ratios[a]; r > best {
			best, algo, ok = r, a, true
		}
	}

	return algo, ok
}

// Calibration is the fitted density-to-ratio relationship per algorithm.
type Calibration struct {
	// Reference is the mean density of the samples each algorithm won.
	Reference map[format.Algorithm]float64
	// Models holds the best-fit model per algorithm.
	Models map[format.Algorithm]*Model
	// Samples is the number of samples the calibration was built from.
	Samples int
}

// EstimateRatio predicts the ratio algo achieves at density. ok is false
// when no model exists for algo or the prediction is not a positive finite
// number.
func (c *Calibration) EstimateRatio(algo format.Algorithm, density float64) (float64, bool) {
	if c == nil {
		return 0, false
	}
	m, exists := c.Models[algo]
	if !exists || m == nil {
		return 0, false
	}

	ratio := m.Estimator.Estimate(density)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio <= 0 {
		return 0, false
	}

	return ratio, true
}

// ReferenceDensity returns the reference density recorded for algo.
func (c *Calibration) ReferenceDensity(algo format.Algorithm) (float64, bool) {
	if c == nil {
		return 0, false
	}
	d, ok := c.Reference[algo]

	return d, ok
}

// Calibrator measures a corpus and fits the per-algorithm models.
type Calibrator struct {
	algorithms []format.Algorithm
	registry   *compress.Registry
	analyzer   *pattern.Analyzer
}

// Option configures a Calibrator.
type Option = options.Option[*Calibrator]

// WithAlgorithms sets the codecs to measure.
func WithAlgorithms(algos ...format.Algorithm) Option {
	return options.New(func(c *Calibrator) error {
		if len(algos) == 0 {
			return errs.New(errs.KindConfigError, "calibrator", "at least one algorithm is required")
		}
		for _, a := range algos {
			if !a.IsValid() {
				return errs.New(errs.KindConfigError, "calibrator", "invalid algorithm %d", a)
			}
		}
		c.algorithms = slices.Clone(algos)

		return nil
	})
}

// WithRegistry sets the registry the measured codecs are taken from.
func WithRegistry(r *compress.Registry) Option {
	return options.NoError(func(c *Calibrator) {
		c.registry = r
	})
}

// WithAnalyzer sets the pattern analyzer used to compute densities.
func WithAnalyzer(a *pattern.Analyzer) Option {
	return options.NoError(func(c *Calibrator) {
		c.analyzer = a
	})
}

// NewCalibrator creates a Calibrator. Without options it measures
// DefaultAlgorithms with reference codec parameters.
func NewCalibrator(opts ...Option) (*Calibrator, error) {
	c := &Calibrator{algorithms: slices.Clone(DefaultAlgorithms)}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	if c.registry == nil {
		r, err := compress.NewDefaultRegistry(compress.DefaultParams())
		if err != nil {
			return nil, err
		}
		c.registry = r
	}
	if c.analyzer == nil {
		a, err := pattern.NewAnalyzer()
		if err != nil {
			return nil, err
		}
		c.analyzer = a
	}

	for _, algo := range c.algorithms {
		if _, err := c.registry.Get(algo); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Measure analyzes and compresses every non-empty buffer of corpus with each
// configured algorithm. A codec rejecting a buffer with a pattern mismatch
// leaves that ratio out of the sample.
func (c *Calibrator) Measure(ctx context.Context, corpus [][]byte) ([]Sample, error) {
	samples := make([]Sample, 0, len(corpus))

	for _, data := range corpus {
		if len(data) == 0 {
			continue
		}

		res, err := c.analyzer.AnalyzeContext(ctx, data)
		if err != nil {
			return nil, err
		}

		s := Sample{
			ShortDensity:   res.ShortDensity(),
			OverallDensity: res.OverallDensity(),
			Ratios:         make(map[format.Algorithm]float64, len(c.algorithms)),
		}

		for _, algo := range c.algorithms {
			cd, err := c.registry.Get(algo)
			if err != nil {
				return nil, err
			}

			out, err := cd.Compress(data)
			if errors.Is(err, errs.ErrPatternMismatch) {
				continue
			}
			if err != nil {
				return nil, err
			}

			stats := compress.CompressionStats{
				Algorithm:      algo,
				OriginalSize:   int64(len(data)),
				CompressedSize: int64(len(out)),
			}
			s.Ratios[algo] = stats.Ratio()
		}

		samples = append(samples, s)
	}

	return samples, nil
}

// Calibrate measures corpus and fits the result.
func (c *Calibrator) Calibrate(ctx context.Context, corpus [][]byte) (*Calibration, error) {
	samples, err := c.Measure(ctx, corpus)
	if err != nil {
		return nil, err
	}

	return CalibrateSamples(samples)
}

// Calibrate builds a Calibration from corpus with a Calibrator configured by
// opts.
func Calibrate(ctx context.Context, corpus [][]byte, opts ...Option) (*Calibration, error) {
	c, err := NewCalibrator(opts...)
	if err != nil {
		return nil, err
	}

	return c.Calibrate(ctx, corpus)
}

// CalibrateSamples fits one model per algorithm over (density, ratio) points
// and records each algorithm's reference density.
//
// An algorithm whose points cannot be fitted (fewer than two, or no spread
// in density) gets no model; the selector then keeps its nominal estimate.
func CalibrateSamples(samples []Sample) (*Calibration, error) {
	if len(samples) == 0 {
		return nil, errs.New(errs.KindConfigError, "calibrate", "no samples")
	}

	xs := make(map[format.Algorithm][]float64)
	ys := make(map[format.Algorithm][]float64)
	wins := make(map[format.Algorithm][]float64)

	for _, s := range samples {
		for algo, ratio := range s.Ratios {
			xs[algo] = append(xs[algo], DensityFor(algo, s.ShortDensity, s.OverallDensity))
			ys[algo] = append(ys[algo], ratio)
		}
		if w, ok := s.Winner(); ok {
			wins[w] = append(wins[w], DensityFor(w, s.ShortDensity, s.OverallDensity))
		}
	}

	cal := &Calibration{
		Reference: make(map[format.Algorithm]float64, len(wins)),
		Models:    make(map[format.Algorithm]*Model, len(xs)),
		Samples:   len(samples),
	}

	for algo, densities := range wins {
		cal.Reference[algo] = calculateMean(densities)
	}

	for algo, x := range xs {
		result, err := Fit(x, ys[algo])
		if errs.KindOf(err) == errs.KindConfigError {
			continue
		}
		if err != nil {
			return nil, err
		}
		cal.Models[algo] = result.BestFit
	}

	return cal, nil
}

func sortedAlgorithms[V any](m map[format.Algorithm]V) []format.Algorithm {
	algos := make([]format.Algorithm, 0, len(m))
	for a := range m {
		algos = append(algos, a)
	}
	slices.Sort(algos)

	return algos
}

type calibrationEntry struct {
	Algorithm    format.Algorithm `cbor:"1,keyasint"`
	HasReference bool             `cbor:"2,keyasint,omitempty"`
	Reference    float64          `cbor:"3,keyasint,omitempty"`
	Model        string           `cbor:"4,keyasint,omitempty"`
	Coefficients []float64        `cbor:"5,keyasint,omitempty"`
	RSquared     float64          `cbor:"6,keyasint,omitempty"`
	RMSE         float64          `cbor:"7,keyasint,omitempty"`
	Formula      string           `cbor:"8,keyasint,omitempty"`
}

type calibrationWire struct {
	Samples int                `cbor:"1,keyasint"`
	Entries []calibrationEntry `cbor:"2,keyasint"`
}

// Encode serializes the calibration as deterministic CBOR.
func (c *Calibration) Encode() ([]byte, error) {
	keys := make(map[format.Algorithm]struct{}, len(c.Models)+len(c.Reference))
	for a := range c.Models {
		keys[a] = struct{}{}
	}
	for a := range c.Reference {
		keys[a] = struct{}{}
	}

	wire := calibrationWire{Samples: c.Samples}
	for _, algo := range sortedAlgorithms(keys) {
		e := calibrationEntry{Algorithm: algo}
		if ref, ok := c.Reference[algo]; ok {
			e.HasReference, e.Reference = true, ref
		}
		if m := c.Models[algo]; m != nil {
			e.Model = m.Type.String()
			e.Coefficients = m.Coefficients
			e.RSquared = m.RSquared
			e.RMSE = m.RMSE
			e.Formula = m.Formula
		}
		wire.Entries = append(wire.Entries, e)
	}

	return codec.Marshal(wire)
}

// DecodeCalibration parses a calibration produced by Encode.
func DecodeCalibration(data []byte) (*Calibration, error) {
	var wire calibrationWire
	if err := codec.Unmarshal(data, &wire); err != nil {
		return nil, err
	}

	cal := &Calibration{
		Reference: make(map[format.Algorithm]float64),
		Models:    make(map[format.Algorithm]*Model),
		Samples:   wire.Samples,
	}

	for _, e := range wire.Entries {
		if !e.Algorithm.IsValid() {
			return nil, errs.New(errs.KindSerialization, "decode calibration", "invalid algorithm %d", e.Algorithm)
		}
		if e.HasReference {
			cal.Reference[e.Algorithm] = e.Reference
		}
		if e.Model == "" {
			continue
		}

		mt, err := ParseModelType(e.Model)
		if err != nil {
			return nil, errs.Wrap(errs.KindSerialization, "decode calibration", err)
		}
		est, err := NewEstimator(mt, e.Coefficients...)
		if err != nil {
			return nil, errs.Wrap(errs.KindSerialization, "decode calibration", err)
		}
		cal.Models[e.Algorithm] = &Model{
			Type:         est.Type,
			Coefficients: est.Coefficients(),
			RSquared:     e.RSquared,
			RMSE:         e.RMSE,
			Formula:      e.Formula,
			Estimator:    est,
		}
	}

	return cal, nil
}
