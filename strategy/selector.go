package strategy

import (
	"fmt"
	"math"

	"github.com/arloliu/patpack/compress"
	"github.com/arloliu/patpack/detect"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/options"
	"github.com/arloliu/patpack/pattern"
	"github.com/arloliu/patpack/regression"
)

// Decision table defaults. Densities are fractions of repeated windows as
// reported by pattern.Result.
const (
	DefaultConfidenceFloor = 0.4

	// DefaultDictionaryThreshold is the short-pattern density from which
	// textual input goes to the dictionary codec.
	DefaultDictionaryThreshold = 0.30
	// DefaultDictionaryReference is the short-pattern density at which
	// confidence in the dictionary codec saturates.
	DefaultDictionaryReference = 0.60

	// DefaultHybridThreshold is the overall density from which input goes
	// to the hybrid codec; below it the hierarchical codec is chosen.
	DefaultHybridThreshold = 0.10
	// DefaultHybridReference is the overall density at which confidence in
	// the hybrid codec saturates.
	DefaultHybridReference = 0.40

	// FallbackAlgorithm replaces any choice whose confidence is below the
	// floor.
	FallbackAlgorithm = format.AlgorithmHybrid
)

// WholeInput reports whether algo encodes a property of the entire input, so
// that splitting the input into chunks would lose it.
func WholeInput(algo format.Algorithm) bool {
	return algo == format.AlgorithmPeriodic
}

// Evidence is everything the selector looks at.
type Evidence struct {
	// Info is the detector's classification.
	Info detect.FileTypeInfo
	// Patterns is the analyzer's result. A nil result is treated as no
	// evidence at all.
	Patterns *pattern.Result
	// Size is the full input length.
	Size int
	// Periodic reports that the full input is an exact repetition of the
	// periodic codec's unit (see compress.IsPeriodic).
	Periodic bool
}

// Selector maps evidence to a Strategy. It is immutable after creation and
// safe for concurrent use.
type Selector struct {
	floor          float64
	dictThreshold  float64
	dictReference  float64
	hybThreshold   float64
	hybReference   float64
	periodicUnit   int
	chunkThreshold int
	chunkSize      int
	calibration    *regression.Calibration
}

// Option configures a Selector.
type Option = options.Option[*Selector]

// WithConfidenceFloor sets the confidence under which the fallback codec is
// used.
func WithConfidenceFloor(floor float64) Option {
	return options.New(func(s *Selector) error {
		if math.IsNaN(floor) || floor < 0 || floor > 1 {
			return errs.New(errs.KindConfigError, "selector", "confidence floor %v outside [0,1]", floor)
		}
		s.floor = floor

		return nil
	})
}

// WithDictionaryDensity sets the dictionary threshold and reference
// short-pattern densities.
func WithDictionaryDensity(threshold, reference float64) Option {
	return options.New(func(s *Selector) error {
		if err := checkDensities("dictionary", threshold, reference); err != nil {
			return err
		}
		s.dictThreshold, s.dictReference = threshold, reference

		return nil
	})
}

// WithHybridDensity sets the hybrid threshold and reference overall
// densities.
func WithHybridDensity(threshold, reference float64) Option {
	return options.New(func(s *Selector) error {
		if err := checkDensities("hybrid", threshold, reference); err != nil {
			return err
		}
		s.hybThreshold, s.hybReference = threshold, reference

		return nil
	})
}

func checkDensities(name string, threshold, reference float64) error {
	if !(threshold > 0 && threshold < reference && reference <= 1) {
		return errs.New(errs.KindConfigError, "selector", "%s densities need 0 < threshold < reference <= 1, got %v and %v",
			name, threshold, reference)
	}

	return nil
}

// WithPeriodicUnit sets the periodic codec unit used for its exact ratio.
func WithPeriodicUnit(unit int) Option {
	return options.New(func(s *Selector) error {
		if unit <= 0 {
			return errs.New(errs.KindConfigError, "selector", "periodic unit must be positive, got %d", unit)
		}
		s.periodicUnit = unit

		return nil
	})
}

// WithChunking makes the selector suggest chunkSize-byte chunks for inputs
// larger than threshold. A zero threshold disables chunk hints.
func WithChunking(threshold, chunkSize int) Option {
	return options.New(func(s *Selector) error {
		if threshold < 0 || (threshold > 0 && chunkSize <= 0) {
			return errs.New(errs.KindConfigError, "selector", "invalid chunk hint threshold %d size %d", threshold, chunkSize)
		}
		s.chunkThreshold, s.chunkSize = threshold, chunkSize

		return nil
	})
}

// WithCalibration supplies measured reference densities and ratio models.
func WithCalibration(c *regression.Calibration) Option {
	return options.NoError(func(s *Selector) {
		s.calibration = c
	})
}

// New creates a Selector with the default decision table adjusted by opts.
func New(opts ...Option) (*Selector, error) {
	s := &Selector{
		floor:         DefaultConfidenceFloor,
		dictThreshold: DefaultDictionaryThreshold,
		dictReference: DefaultDictionaryReference,
		hybThreshold:  DefaultHybridThreshold,
		hybReference:  DefaultHybridReference,
		periodicUnit:  compress.DefaultPeriodicUnit,
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return s, nil
}

// ConfidenceFloor returns the configured floor.
func (s *Selector) ConfidenceFloor() float64 {
	return s.floor
}

// Select applies the decision table:
//
//	whole input repeats the periodic unit           -> Periodic
//	textual category, short density >= threshold    -> Dictionary
//	unknown category                                -> Hierarchical
//	overall density >= threshold                    -> Hybrid
//	otherwise                                       -> Hierarchical
//
// A choice whose confidence is below the floor is replaced by
// FallbackAlgorithm. Select never fails.
func (s *Selector) Select(ev Evidence) Strategy {
	st := s.decide(ev)
	st.Nominal = st.Algorithm

	if st.Confidence < s.floor {
		st.Fallback = true
		st.Reason = fmt.Sprintf("%s; confidence %.2f below floor %.2f", st.Reason, st.Confidence, s.floor)
		st.Algorithm = FallbackAlgorithm
		st.EstimatedRatio, st.Verified = s.estimate(FallbackAlgorithm, ev)
	}

	if s.chunkThreshold > 0 && ev.Size > s.chunkThreshold && !WholeInput(st.Algorithm) {
		st.ChunkSize = s.chunkSize
	}

	return st
}

func (s *Selector) decide(ev Evidence) Strategy {
	if ev.Periodic && ev.Size > 0 {
		return Strategy{
			Algorithm:      format.AlgorithmPeriodic,
			EstimatedRatio: float64(ev.Size) / float64(compress.PeriodicHeaderSize+s.periodicUnit),
			Confidence:     1,
			Verified:       true,
			Reason:         fmt.Sprintf("input is %d copies of a %d-byte unit", ev.Size/s.periodicUnit, s.periodicUnit),
		}
	}

	if ev.Patterns == nil {
		return Strategy{Algorithm: format.AlgorithmHierarchical, Reason: "no pattern statistics"}
	}

	short := ev.Patterns.ShortDensity()
	overall := ev.Patterns.OverallDensity()

	var st Strategy
	switch {
	case ev.Info.Category.IsTextual() && short >= s.dictThreshold:
		ref := s.reference(format.AlgorithmDictionary, s.dictThreshold, s.dictReference)
		st = Strategy{
			Algorithm:  format.AlgorithmDictionary,
			Confidence: rising(short, s.dictThreshold, ref),
			Reason:     fmt.Sprintf("%s input with short-pattern density %.3f", ev.Info.Category, short),
		}

	case ev.Info.Category == format.CategoryUnknown:
		st = Strategy{
			Algorithm:  format.AlgorithmHierarchical,
			Confidence: falling(overall, s.hybThreshold),
			Reason:     fmt.Sprintf("unknown category with overall density %.3f", overall),
		}

	case overall >= s.hybThreshold:
		ref := s.reference(format.AlgorithmHybrid, s.hybThreshold, s.hybReference)
		st = Strategy{
			Algorithm:  format.AlgorithmHybrid,
			Confidence: rising(overall, s.hybThreshold, ref),
			Reason:     fmt.Sprintf("overall density %.3f", overall),
		}

	default:
		st = Strategy{
			Algorithm:  format.AlgorithmHierarchical,
			Confidence: falling(overall, s.hybThreshold),
			Reason:     fmt.Sprintf("low overall density %.3f", overall),
		}
	}

	st.EstimatedRatio, st.Verified = s.estimate(st.Algorithm, ev)

	return st
}

// reference returns the calibrated reference density for algo when it lies
// above threshold, def otherwise.
func (s *Selector) reference(algo format.Algorithm, threshold, def float64) float64 {
	if ref, ok := s.calibration.ReferenceDensity(algo); ok && ref > threshold && ref <= 1 {
		return ref
	}

	return def
}

// estimate returns the expected ratio for algo. Without a calibrated model
// the estimate is capped at 1.0.
func (s *Selector) estimate(algo format.Algorithm, ev Evidence) (float64, bool) {
	if algo == format.AlgorithmPeriodic && ev.Periodic && ev.Size > 0 {
		return float64(ev.Size) / float64(compress.PeriodicHeaderSize+s.periodicUnit), true
	}
	if ev.Patterns == nil {
		return 1, false
	}

	density := regression.DensityFor(algo, ev.Patterns.ShortDensity(), ev.Patterns.OverallDensity())
	if ratio, ok := s.calibration.EstimateRatio(algo, density); ok {
		return ratio, true
	}

	return 1, false
}

// rising maps density to confidence: 0.5 at threshold, 1 at reference.
func rising(density, threshold, reference float64) float64 {
	return clamp01(0.5 + 0.5*(density-threshold)/(reference-threshold))
}

// falling maps density to confidence for the low-density branch: 1 at zero
// density, 0.5 at threshold, 0 at twice the threshold.
func falling(density, threshold float64) float64 {
	return clamp01(0.5 + 0.5*(threshold-density)/threshold)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
