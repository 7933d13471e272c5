package engine

import (
	"context"
	"os"
	"time"

	"github.com/arloliu/patpack/errs"
	"github.com/arloliu/patpack/strategy"
)

// Input is one batch item. When Data is nil the file at Path is read.
type Input struct {
	Path string
	Data []byte
}

// FileInputs returns one Input per path.
func FileInputs(paths ...string) []Input {
	inputs := make([]Input, len(paths))
	for i, p := range paths {
		inputs[i] = Input{Path: p}
	}

	return inputs
}

// BatchResult is the outcome for one Input.
type BatchResult struct {
	Path string
	Size int
	// Analysis is set by AnalyzeBatch.
	Analysis *FileAnalysisResult
	// Artifact and Strategy are set by CompressBatch.
	Artifact []byte
	Strategy strategy.Strategy
	Err      error
}

// BatchReport collects the results of a batch in input order.
type BatchReport struct {
	Results   []BatchResult
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// Errors returns the failed results.
func (r *BatchReport) Errors() []BatchResult {
	var failed []BatchResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}

	return failed
}

func (in Input) load() ([]byte, error) {
	if in.Data != nil {
		return in.Data, nil
	}

	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIoFailure, "batch read", err)
	}

	return data, nil
}

// AnalyzeBatch analyzes every input concurrently. A failing input is
// recorded in its result and does not stop the others.
func (e *Engine) AnalyzeBatch(ctx context.Context, inputs []Input) *BatchReport {
	return e.batch(ctx, inputs, func(ctx context.Context, data []byte, res *BatchResult) error {
		a, err := e.AnalyzeContext(ctx, data)
		res.Analysis = a

		return err
	})
}

// CompressBatch compresses every input concurrently. A failing input is
// recorded in its result and does not stop the others.
func (e *Engine) CompressBatch(ctx context.Context, inputs []Input) *BatchReport {
	return e.batch(ctx, inputs, func(ctx context.Context, data []byte, res *BatchResult) error {
		out, st, err := e.Compress(ctx, data)
		res.Artifact, res.Strategy = out, st

		return err
	})
}

func (e *Engine) batch(ctx context.Context, inputs []Input, fn func(context.Context, []byte, *BatchResult) error) *BatchReport {
	start := time.Now()
	report := &BatchReport{Results: make([]BatchResult, len(inputs))}
	done := make([]bool, len(inputs))

	_ = e.parallel(ctx, len(inputs), false, func(ctx context.Context, i int) error {
		res := &report.Results[i]
		res.Path = inputs[i].Path
		done[i] = true

		data, err := inputs[i].load()
		if err == nil {
			res.Size = len(data)
			err = fn(ctx, data, res)
		}
		res.Err = err

		return err
	})

	for i := range report.Results {
		res := &report.Results[i]
		if !done[i] {
			res.Path = inputs[i].Path
			res.Err = ctx.Err()
		}

		if res.Err != nil {
			report.Failed++
			e.logger.Warn("batch item failed", "path", res.Path, "error", res.Err)
		} else {
			report.Succeeded++
		}
	}
	report.Elapsed = time.Since(start)

	return report
}
