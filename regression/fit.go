package regression

import (
	"math"
	"slices"

	"github.com/arloliu/patpack/errs"
)

// Fit fits every candidate model to the (x, y) points and ranks them.
//
// Parameters:
//   - x: Repeat densities (independent variable)
//   - y: Achieved compression ratios (dependent variable)
//
// Returns:
//   - *Result: Best-fit model plus all candidates ranked by R²
//   - error: KindConfigError for mismatched or insufficient data
//
// Each model only sees the points inside its domain: the hyperbolic,
// logarithmic and power models need x > 0, the power and exponential models
// need y > 0. A model left with fewer than two usable points is skipped.
func Fit(x, y []float64) (*Result, error) {
	if len(x) != len(y) {
		return nil, errs.New(errs.KindConfigError, "regression fit", "mismatched data lengths: %d x vs %d y", len(x), len(y))
	}
	if len(x) < 2 {
		return nil, errs.New(errs.KindConfigError, "regression fit", "insufficient data points for regression: %d", len(x))
	}

	candidates := []*Model{
		fitHyperbolic(filterPoints(x, y, true, false)),
		fitLogarithmic(filterPoints(x, y, true, false)),
		fitPower(filterPoints(x, y, true, true)),
		fitExponential(filterPoints(x, y, false, true)),
		fitPolynomial(x, y),
	}

	models := make([]*Model, 0, len(candidates))
	for _, m := range candidates {
		if m != nil {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return nil, errs.New(errs.KindConfigError, "regression fit", "no model could be fitted to %d points", len(x))
	}

	// Sort models by R² (best first). NaN ranks last.
	slices.SortStableFunc(models, func(a, b *Model) int {
		ra, rb := rankValue(a.RSquared), rankValue(b.RSquared)
		switch {
		case ra > rb:
			return -1
		case ra < rb:
			return 1
		default:
			return 0
		}
	})

	return &Result{
		BestFit:   models[0],
		AllModels: models,
		Points:    len(x),
	}, nil
}

func rankValue(r2 float64) float64 {
	if math.IsNaN(r2) {
		return math.Inf(-1)
	}

	return r2
}

// filterPoints keeps the points with x > 0 (when positiveX) and y > 0 (when
// positiveY).
func filterPoints(x, y []float64, positiveX, positiveY bool) ([]float64, []float64) {
	fx := make([]float64, 0, len(x))
	fy := make([]float64, 0, len(y))
	for i := range x {
		if positiveX && x[i] <= 0 {
			continue
		}
		if positiveY && y[i] <= 0 {
			continue
		}
		fx = append(fx, x[i])
		fy = append(fy, y[i])
	}

	return fx, fy
}

// linearFit solves y = a + b*x by least squares. ok is false when x has no
// spread.
func linearFit(x, y []float64) (a, b float64, ok bool) {
	n := len(x)
	var sumX, sumY, sumXY, sumX2 float64
	for i := range n {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
	}

	meanX := sumX / float64(n)
	meanY := sumY / float64(n)
	denom := sumX2 - float64(n)*meanX*meanX
	if math.Abs(denom) <= 1e-12*math.Max(1, sumX2) || math.IsNaN(denom) {
		return 0, 0, false
	}
	b = (sumXY - float64(n)*meanX*meanY) / denom
	a = meanY - b*meanX

	return a, b, true
}

func transform(values []float64, fn func(float64) float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = fn(v)
	}

	return out
}

func inverse(v float64) float64 { return 1.0 / v }

// newModel evaluates a fitted curve on its own points. It returns nil when
// the coefficients are not usable.
func newModel(t ModelType, x, y []float64, coeffs ...float64) *Model {
	est, err := NewEstimator(t, coeffs...)
	if err != nil {
		return nil
	}

	predicted := make([]float64, len(x))
	for i := range x {
		predicted[i] = est.Estimate(x[i])
	}

	return &Model{
		Type:         est.Type,
		Coefficients: est.Coefficients(),
		RSquared:     calculateRSquared(y, predicted),
		RMSE:         calculateRMSE(y, predicted),
		Formula:      est.String(),
		Estimator:    est,
	}
}

// fitHyperbolic fits ratio = a + b / x on the transformed variable X' = 1/x.
func fitHyperbolic(x, y []float64) *Model {
	if len(x) < 2 {
		return nil
	}

	a, b, ok := linearFit(transform(x, inverse), y)
	if !ok {
		return nil
	}

	return newModel(ModelTypeHyperbolic, x, y, a, b)
}

// fitLogarithmic fits ratio = a + b * ln(x).
func fitLogarithmic(x, y []float64) *Model {
	if len(x) < 2 {
		return nil
	}

	a, b, ok := linearFit(transform(x, math.Log), y)
	if !ok {
		return nil
	}

	return newModel(ModelTypeLogarithmic, x, y, a, b)
}

// fitPower fits ln(ratio) = ln(a) + b * ln(x) and transforms back to
// ratio = a * x^b.
func fitPower(x, y []float64) *Model {
	if len(x) < 2 {
		return nil
	}

	logA, b, ok := linearFit(transform(x, math.Log), transform(y, math.Log))
	if !ok {
		return nil
	}
	a := math.Exp(logA)

	return newModel(ModelTypePower, x, y, a, b)
}

// fitExponential fits ln(ratio) = ln(a) + b * x and transforms back to
// ratio = a * e^(b * x).
func fitExponential(x, y []float64) *Model {
	if len(x) < 2 {
		return nil
	}

	logA, b, ok := linearFit(x, transform(y, math.Log))
	if !ok {
		return nil
	}
	a := math.Exp(logA)

	return newModel(ModelTypeExponential, x, y, a, b)
}

// fitPolynomial fits ratio = a + b*x + c*x² through the normal equations.
// With fewer than three points, or a singular system, it falls back to a
// linear fit reported as a polynomial with c = 0.
//
//	[n    Σx   Σx²] [a]   [Σy]
//	[Σx   Σx²  Σx³] [b] = [Σxy]
//	[Σx²  Σx³  Σx⁴] [c]   [Σx²y]
func fitPolynomial(x, y []float64) *Model {
	n := len(x)
	if n < 2 {
		return nil
	}
	if n < 3 {
		return fitLinear(x, y)
	}

	var sumX, sumX2, sumX3, sumX4, sumY, sumXY, sumX2Y float64
	for i := range n {
		xi := x[i]
		xi2 := xi * xi
		yi := y[i]

		sumX += xi
		sumX2 += xi2
		sumX3 += xi2 * xi
		sumX4 += xi2 * xi2
		sumY += yi
		sumXY += xi * yi
		sumX2Y += xi2 * yi
	}

	fn := float64(n)
	det := fn*sumX2*sumX4 + sumX*sumX3*sumX2 + sumX2*sumX*sumX3 -
		(sumX2*sumX2*sumX2 + sumX*sumX*sumX4 + fn*sumX3*sumX3)
	if math.Abs(det) < 1e-12 || math.IsNaN(det) {
		return fitLinear(x, y)
	}

	// Cramer's rule.
	detA := sumY*sumX2*sumX4 + sumX*sumX3*sumX2Y + sumX2*sumXY*sumX3 -
		(sumX2*sumX2*sumX2Y + sumX*sumXY*sumX4 + sumY*sumX3*sumX3)
	detB := fn*sumXY*sumX4 + sumY*sumX3*sumX2 + sumX2*sumX*sumX2Y -
		(sumX2*sumXY*sumX2 + sumY*sumX*sumX4 + fn*sumX3*sumX2Y)
	detC := fn*sumX2*sumX2Y + sumX*sumXY*sumX2 + sumY*sumX*sumX3 -
		(sumY*sumX2*sumX2 + sumX*sumX*sumX2Y + fn*sumXY*sumX3)

	a, b, c := detA/det, detB/det, detC/det

	return newModel(ModelTypePolynomial, x, y, a, b, c)
}

// fitLinear is the polynomial fallback for too few points.
func fitLinear(x, y []float64) *Model {
	a, b, ok := linearFit(x, y)
	if !ok {
		return nil
	}

	return newModel(ModelTypePolynomial, x, y, a, b, 0)
}

// calculateRSquared returns 1 - SS_res/SS_tot, or 0 when the observations
// have no variance.
func calculateRSquared(observed, predicted []float64) float64 {
	if len(observed) == 0 {
		return 0
	}

	mean := calculateMean(observed)
	ssTot := 0.0
	ssRes := 0.0

	for i := range observed {
		ssTot += (observed[i] - mean) * (observed[i] - mean)
		ssRes += (observed[i] - predicted[i]) * (observed[i] - predicted[i])
	}

	if ssTot == 0 {
		return 0
	}

	return 1.0 - (ssRes / ssTot)
}

func calculateRMSE(observed, predicted []float64) float64 {
	if len(observed) == 0 {
		return 0
	}

	sumSq := 0.0
	for i := range observed {
		diff := observed[i] - predicted[i]
		sumSq += diff * diff
	}

	return math.Sqrt(sumSq / float64(len(observed)))
}

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
