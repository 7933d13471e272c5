package pattern

import (
	"context"
	"slices"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/internal/options"
)

const (
	DefaultMinLength  = 4
	DefaultMaxLength  = 251
	DefaultMaxOffsets = 2

	// ShortMinLength and ShortMaxLength bound the short-range lengths used
	// by ShortDensity.
	ShortMinLength = 4
	ShortMaxLength = 16
)

// PatternInfo describes the repeats of one length.
type PatternInfo struct {
	// Length is the pattern length in bytes.
	Length int `cbor:"1,keyasint"`
	// Count is the number of repeated occurrences beyond the first.
	Count int `cbor:"2,keyasint"`
	// Offsets holds ascending representative offsets of one repeated
	// substring of this length.
	Offsets []int `cbor:"3,keyasint,omitempty"`
}

// Result is the outcome of an analysis. Patterns holds one entry per length
// with a non-zero count.
type Result struct {
	Patterns      map[int]PatternInfo `cbor:"1,keyasint"`
	TotalPatterns int                 `cbor:"2,keyasint"`
	// Size is the length of the analyzed buffer.
	Size      int `cbor:"3,keyasint"`
	MinLength int `cbor:"4,keyasint"`
	MaxLength int `cbor:"5,keyasint"`
}

// Count returns the repeat count for length, 0 when none was observed.
func (r *Result) Count(length int) int {
	return r.Patterns[length].Count
}

// Lengths returns the observed lengths in ascending order.
func (r *Result) Lengths() []int {
	lengths := make([]int, 0, len(r.Patterns))
	for l := range r.Patterns {
		lengths = append(lengths, l)
	}
	slices.Sort(lengths)

	return lengths
}

// Density returns the mean, over lengths in [lo,hi] that fit in the buffer,
// of the fraction of windows of that length that repeat. The result is in
// [0,1]; it is 0 when no length in range fits.
func (r *Result) Density(lo, hi int) float64 {
	lo = max(lo, r.MinLength)
	hi = min(hi, r.MaxLength, r.Size)
	if lo > hi {
		return 0
	}

	sum := 0.0
	for l := lo; l <= hi; l++ {
		windows := r.Size - l + 1
		sum += float64(r.Count(l)) / float64(windows)
	}

	return sum / float64(hi-lo+1)
}

// ShortDensity is the density over short lengths (4..16).
func (r *Result) ShortDensity() float64 {
	return r.Density(ShortMinLength, ShortMaxLength)
}

// OverallDensity is the density over the whole analyzed range.
func (r *Result) OverallDensity() float64 {
	return r.Density(r.MinLength, r.MaxLength)
}

// Analyzer computes pattern statistics. It holds configuration only and is
// safe for concurrent use.
type Analyzer struct {
	minLength  int
	maxLength  int
	maxOffsets int
}

// Option configures an Analyzer.
type Option = options.Option[*Analyzer]

// WithLengthRange sets the inclusive range of candidate lengths.
func WithLengthRange(lo, hi int) Option {
	return options.New(func(a *Analyzer) error {
		if lo < 1 || hi < lo {
			return errs.New(errs.KindConfigError, "pattern analyzer", "invalid length range [%d,%d]", lo, hi)
		}
		a.minLength, a.maxLength = lo, hi

		return nil
	})
}

// WithMaxOffsets sets how many representative offsets are kept per length.
func WithMaxOffsets(n int) Option {
	return options.NoError(func(a *Analyzer) {
		a.maxOffsets = min(max(0, n), 2)
	})
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		minLength:  DefaultMinLength,
		maxLength:  DefaultMaxLength,
		maxOffsets: DefaultMaxOffsets,
	}
	if err := options.Apply(a, opts...); err != nil {
		return nil, err
	}

	return a, nil
}

// Analyze computes pattern statistics for data.
func (a *Analyzer) Analyze(data []byte) *Result {
	res, _ := a.AnalyzeContext(context.Background(), data)
	return res
}

// AnalyzeContext is Analyze with cooperative cancellation. ctx is checked
// once the index is built and again after each length is finalized; the
// index construction itself is not interrupted.
func (a *Analyzer) AnalyzeContext(ctx context.Context, data []byte) (*Result, error) {
	res := &Result{
		Patterns:  make(map[int]PatternInfo),
		Size:      len(data),
		MinLength: a.minLength,
		MaxLength: a.maxLength,
	}
	if len(data) < a.minLength+1 {
		return res, ctx.Err()
	}

	sa := suffixArray(data)
	lcp := lcpArray(data, sa)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// hist[v] counts pairs whose LCP, clamped to maxLength, is exactly v.
	span := a.maxLength - a.minLength + 1
	hist := make([]int, span)
	// first[v] is the first SA index whose pair has LCP >= minLength+v.
	first := make([]int, span)
	for i := range first {
		first[i] = -1
	}

	next := 0
	for i := 1; i < len(lcp); i++ {
		v := int(lcp[i])
		if v < a.minLength {
			continue
		}
		v = min(v, a.maxLength) - a.minLength
		hist[v]++
		for next <= v {
			first[next] = i
			next++
		}
	}

	// Walk lengths from longest to shortest accumulating suffix sums.
	count := 0
	for v := span - 1; v >= 0; v-- {
		count += hist[v]
		if count == 0 {
			continue
		}

		length := a.minLength + v
		info := PatternInfo{Length: length, Count: count}
		if a.maxOffsets > 0 && first[v] > 0 {
			i := first[v]
			offs := []int{int(sa[i-1]), int(sa[i])}
			slices.Sort(offs)
			info.Offsets = offs[:a.maxOffsets]
		}
		res.Patterns[length] = info
		res.TotalPatterns += count

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return res, nil
}
