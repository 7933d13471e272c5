// Package patpack is a content-adaptive compression engine: it inspects a
// byte stream, infers its structural character and compresses it with a
// matching codec into a self-describing artifact.
//
// # Core Features
//
//   - File category detection (text, markup, source code, binary, periodic)
//   - Adaptive sampling that bounds analysis cost on large inputs
//   - Suffix-array pattern statistics over repeat lengths 4..251
//   - Strategy selection with a confidence floor and calibrated ratio models
//   - Codecs: RLE+LZ77 hybrid, exact-periodic, hierarchical, plus Brotli,
//     Zstd, LZ4, S2 and Snappy
//   - Optional Reed-Solomon FEC wrap
//   - Content-defined chunking with BLAKE3 deduplication for large inputs
//
// # Basic Usage
//
//	res, _ := patpack.Analyze(data)
//	fmt.Println(res.Strategy)
//
//	artifact, _ := patpack.Compress(data)
//	restored, _ := patpack.Decompress(artifact)
//
// # Package Structure
//
// This package provides top-level wrappers around an engine.Engine with the
// default configuration. For configuration files, FEC, chunking, batches and
// logging use the engine and config packages directly.
package patpack

import (
	"context"

	"github.com/arloliu/patpack/engine"
	"github.com/arloliu/patpack/format"
)

var defaultEngine = mustEngine()

func mustEngine() *engine.Engine {
	e, err := engine.New()
	if err != nil {
		panic("patpack: default engine initialization failed: " + err.Error())
	}

	return e
}

// Analyze analyzes data with the default configuration.
func Analyze(data []byte) (*engine.FileAnalysisResult, error) {
	return defaultEngine.Analyze(data)
}

// AnalyzeFile reads and analyzes the file at path with the default
// configuration.
func AnalyzeFile(path string) (*engine.FileAnalysisResult, error) {
	return defaultEngine.AnalyzeFile(context.Background(), path)
}

// Compress analyzes data and compresses it with the selected codec.
func Compress(data []byte) ([]byte, error) {
	out, _, err := defaultEngine.Compress(context.Background(), data)
	return out, err
}

// CompressWith compresses data with algo, skipping analysis.
func CompressWith(data []byte, algo format.Algorithm) ([]byte, error) {
	return defaultEngine.CompressWith(data, algo)
}

// Decompress restores the input of an artifact.
func Decompress(artifact []byte) ([]byte, error) {
	return defaultEngine.Decompress(artifact)
}
