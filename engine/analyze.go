package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arloliu/patpack/compress"
	"github.com/arloliu/patpack/detect"
	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/format"
	"github.com/arloliu/patpack/pattern"
	"github.com/arloliu/patpack/sampling"
	"github.com/arloliu/patpack/strategy"
)

// detectPrefix bounds the bytes handed to the detector.
const detectPrefix = 1 << 20

// BenchmarkCodecs are the reference codecs probed next to the selected one.
var BenchmarkCodecs = []format.Algorithm{
	format.AlgorithmZstd,
	format.AlgorithmLZ4,
	format.AlgorithmS2,
}

// FileAnalysisResult is the outcome of analyzing one input.
type FileAnalysisResult struct {
	// Size is the input length.
	Size int
	// Elapsed is the wall time of the analysis.
	Elapsed time.Duration
	// PeakMemory estimates the bytes held by the pattern index at its peak.
	PeakMemory int64
	// Info is the detector's classification.
	Info detect.FileTypeInfo
	// Sampling describes which bytes were analyzed.
	Sampling sampling.Strategy
	// Patterns holds the pattern statistics of the sample.
	Patterns *pattern.Result
	// Strategy is the selected codec recommendation.
	Strategy strategy.Strategy
	// Benchmark is set when the benchmark probe is enabled.
	Benchmark *Benchmark
}

func (r *FileAnalysisResult) String() string {
	return fmt.Sprintf("%d bytes, %s (%.2f), %s, %s", r.Size, r.Info.Category, r.Info.Confidence, r.Strategy, r.Elapsed)
}

// Benchmark compares codecs on the analyzed sample.
type Benchmark struct {
	// SampleSize is the number of bytes compressed by each codec.
	SampleSize int
	// Results has one entry per probed codec, the selected one first.
	Results []BenchmarkResult
}

// BenchmarkResult is one codec's measurement.
type BenchmarkResult struct {
	Algorithm      format.Algorithm
	CompressedSize int
	// Ratio is SampleSize / CompressedSize; 0 when the codec failed.
	Ratio   float64
	Elapsed time.Duration
	Err     error
}

// Best returns the successful result with the highest ratio.
func (b *Benchmark) Best() (BenchmarkResult, bool) {
	var best BenchmarkResult
	found := false
	for _, r := range b.Results {
		if r.Err == nil && (!found || r.Ratio > best.Ratio) {
			best, found = r, true
		}
	}

	return best, found
}

// Analyze analyzes data.
func (e *Engine) Analyze(data []byte) (*FileAnalysisResult, error) {
	return e.AnalyzeContext(context.Background(), data)
}

// AnalyzeContext analyzes data, checking ctx between pattern-length passes.
func (e *Engine) AnalyzeContext(ctx context.Context, data []byte) (*FileAnalysisResult, error) {
	start := time.Now()

	info := e.detector.Detect(data[:min(len(data), detectPrefix)])
	plan, sample := e.sampler.Sample(data)

	patterns, err := e.analyzer.AnalyzeContext(ctx, sample)
	if err != nil {
		return nil, err
	}

	st := e.selector.Select(strategy.Evidence{
		Info:     info,
		Patterns: patterns,
		Size:     len(data),
		Periodic: compress.IsPeriodic(data, e.cfg.Codec.PeriodicUnit),
	})

	res := &FileAnalysisResult{
		Size:       len(data),
		Info:       info,
		Sampling:   plan,
		Patterns:   patterns,
		Strategy:   st,
		PeakMemory: analysisMemory(len(sample)),
	}

	if e.cfg.Engine.Benchmark {
		res.Benchmark = e.benchmark(st.Algorithm, sample)
		if first := res.Benchmark.Results[0]; first.Err == nil && first.Ratio > 0 && !res.Strategy.Verified {
			res.Strategy.EstimatedRatio = first.Ratio
			res.Strategy.Verified = true
		}
	}

	res.Elapsed = time.Since(start)
	e.logger.Debug("analyzed input",
		"size", res.Size,
		"category", info.Category.String(),
		"sampling", plan.Mode.String(),
		"algorithm", st.Algorithm.String(),
		"confidence", st.Confidence,
		"fallback", st.Fallback,
		"elapsed", res.Elapsed,
	)

	return res, nil
}

// AnalyzeFile reads and analyzes the file at path.
func (e *Engine) AnalyzeFile(ctx context.Context, path string) (*FileAnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "analyze file", err)
	}

	return e.AnalyzeContext(ctx, data)
}

// analysisMemory estimates the pattern index working set for an n-byte
// sample: six int32 arrays of length n plus the sample.
func analysisMemory(n int) int64 {
	return int64(n) * (6*4 + 1)
}

func (e *Engine) benchmark(selected format.Algorithm, sample []byte) *Benchmark {
	algos := []format.Algorithm{selected}
	for _, a := range BenchmarkCodecs {
		if a != selected {
			algos = append(algos, a)
		}
	}

	b := &Benchmark{SampleSize: len(sample), Results: make([]BenchmarkResult, 0, len(algos))}
	for _, algo := range algos {
		b.Results = append(b.Results, e.probe(algo, sample))
	}

	return b
}

func (e *Engine) probe(algo format.Algorithm, sample []byte) BenchmarkResult {
	res := BenchmarkResult{Algorithm: algo}

	c, err := e.registry.Get(algo)
	if err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	out, err := c.Compress(sample)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}

	res.CompressedSize = len(out)
	res.Ratio = compress.CompressionStats{
		Algorithm:      algo,
		OriginalSize:   int64(len(sample)),
		CompressedSize: int64(len(out)),
	}.Ratio()

	return res
}
