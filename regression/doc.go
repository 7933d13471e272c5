// Package regression calibrates the strategy selector by fitting the
// relationship between repeat density and achieved compression ratio.
//
// A calibration run analyzes a corpus with the pattern analyzer, compresses
// every buffer with each measured codec, and fits one model per codec over
// the resulting (density, ratio) points. The dictionary codec is fitted
// against short-pattern density; every other codec against overall density.
//
// # Basic Calibration
//
//	cal, err := regression.Calibrate(ctx, corpus)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ratio, ok := cal.EstimateRatio(format.AlgorithmHybrid, 0.35)
//
// # Model Types
//
// Five models are fitted and ranked by R²:
//
//   - **Hyperbolic**: ratio = a + b / x
//   - **Logarithmic**: ratio = a + b * ln(x)
//   - **Power**: ratio = a * x^b
//   - **Exponential**: ratio = a * e^(b * x)
//   - **Polynomial**: ratio = a + b*x + c*x² (linear when fewer than three points)
//
// Points outside a model's domain (x <= 0 for the first three, ratio <= 0
// for the power and exponential models) are excluded from that model only.
//
// # Reference Densities
//
// Besides the models, a Calibration records for each codec the mean density
// of the samples it won. The selector uses these as the density at which its
// confidence in a codec saturates.
//
// # Persistence
//
// Calibrations serialize to deterministic CBOR with Encode and load back with
// DecodeCalibration, so a calibration measured once can be shipped alongside
// the configuration.
package regression
