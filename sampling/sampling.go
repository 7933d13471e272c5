// Package sampling bounds analysis cost on large inputs.
//
// Inputs at or below the threshold are analyzed whole. Larger inputs are
// reduced to a fixed number of evenly spaced windows, so the sampled size is
// independent of the input size. Sample points depend only on the input
// length and the configuration, never on randomness.
package sampling

import (
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/internal/options"
)

const (
	DefaultThreshold  = 1 << 20
	DefaultPoints     = 64
	DefaultWindowSize = 16 * 1024
)

// Strategy describes which bytes of an input are analyzed.
type Strategy struct {
	// Mode is FullScan or Strided.
	Mode format.SamplingMode
	// Points holds the ascending start offsets of the sampled windows. A full
	// scan has a single point at offset 0.
	Points []int
	// WindowSize is the length of each window. For a full scan it equals the
	// input length.
	WindowSize int
	// SampleSize is the total number of sampled bytes.
	SampleSize int
}

// Sampler plans and materializes samples. It is immutable after creation and
// safe for concurrent use.
type Sampler struct {
	threshold  int
	points     int
	windowSize int
}

// Option configures a Sampler.
type Option = options.Option[*Sampler]

// WithThreshold sets the input size above which strided sampling is used.
func WithThreshold(n int) Option {
	return options.New(func(s *Sampler) error {
		if n <= 0 {
			return errs.New(errs.KindConfigError, "sampler", "threshold must be positive, got %d", n)
		}
		s.threshold = n

		return nil
	})
}

// WithPoints sets the number of windows in strided mode.
func WithPoints(n int) Option {
	return options.New(func(s *Sampler) error {
		if n < 2 {
			return errs.New(errs.KindConfigError, "sampler", "need at least 2 sample points, got %d", n)
		}
		s.points = n

		return nil
	})
}

// WithWindowSize sets the length of each window in strided mode.
func WithWindowSize(n int) Option {
	return options.New(func(s *Sampler) error {
		if n <= 0 {
			return errs.New(errs.KindConfigError, "sampler", "window size must be positive, got %d", n)
		}
		s.windowSize = n

		return nil
	})
}

// New creates a Sampler.
func New(opts ...Option) (*Sampler, error) {
	s := &Sampler{
		threshold:  DefaultThreshold,
		points:     DefaultPoints,
		windowSize: DefaultWindowSize,
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return s, nil
}

// Threshold returns the full-scan threshold.
func (s *Sampler) Threshold() int {
	return s.threshold
}

// Plan computes the sampling strategy for an input of the given size.
func (s *Sampler) Plan(size int) Strategy {
	if size <= s.threshold || size <= s.points*s.windowSize {
		return Strategy{
			Mode:       format.SamplingFullScan,
			Points:     []int{0},
			WindowSize: size,
			SampleSize: size,
		}
	}

	// The first window starts at 0 and the last one ends at size.
	span := int64(size - s.windowSize)
	points := make([]int, s.points)
	for i := range points {
		points[i] = int(int64(i) * span / int64(s.points-1))
	}

	return Strategy{
		Mode:       format.SamplingStrided,
		Points:     points,
		WindowSize: s.windowSize,
		SampleSize: s.points * s.windowSize,
	}
}

// Sample plans a strategy for data and materializes the sampled bytes. A full
// scan returns data itself without copying.
func (s *Sampler) Sample(data []byte) (Strategy, []byte) {
	st := s.Plan(len(data))
	if st.Mode == format.SamplingFullScan {
		return st, data
	}

	sample := make([]byte, 0, st.SampleSize)
	for _, p := range st.Points {
		sample = append(sample, data[p:p+st.WindowSize]...)
	}

	return st, sample
}
