package regression

import (
	"fmt"
	"math"
	"strings"

	"github.com/arloliu/patpack/errs"
)

// ModelType identifies the shape of a fitted density-to-ratio curve.
type ModelType uint8

const (
	// ModelTypeHyperbolic is ratio = a + b/x.
	ModelTypeHyperbolic ModelType = iota + 1
	// ModelTypeLogarithmic is ratio = a + b*ln(x).
	ModelTypeLogarithmic
	// ModelTypePower is ratio = a * x^b.
	ModelTypePower
	// ModelTypeExponential is ratio = a * e^(b*x).
	ModelTypeExponential
	// ModelTypePolynomial is ratio = a + b*x + c*x².
	ModelTypePolynomial
)

type shape struct {
	name   string
	coeffs int
	// open reports that the curve is undefined at zero density.
	open bool
}

var shapes = map[ModelType]shape{
	ModelTypeHyperbolic:  {"hyperbolic", 2, true},
	ModelTypeLogarithmic: {"logarithmic", 2, true},
	ModelTypePower:       {"power", 2, true},
	ModelTypeExponential: {"exponential", 2, false},
	ModelTypePolynomial:  {"polynomial", 3, false},
}

// String returns the lower-case model name.
func (t ModelType) String() string {
	if s, ok := shapes[t]; ok {
		return s.name
	}

	return "unknown"
}

// ParseModelType parses a model name case-insensitively.
func ParseModelType(name string) (ModelType, error) {
	for t, s := range shapes {
		if strings.EqualFold(name, s.name) {
			return t, nil
		}
	}

	return 0, errs.New(errs.KindConfigError, "parse model type", "unknown model %q", name)
}

// Estimator evaluates a fitted curve at a repeat density.
//
// Densities are fractions, so inputs above 1 are treated as 1. Negative or
// NaN densities, and zero density for the hyperbolic, logarithmic and power
// shapes, have no estimate and yield NaN.
type Estimator struct {
	Type   ModelType
	coeffs [3]float64
}

// NewEstimator returns an estimator of type t. coeffs holds exactly the
// coefficients the shape needs, a first, and each must be finite.
func NewEstimator(t ModelType, coeffs ...float64) (Estimator, error) {
	const op = "new estimator"

	s, ok := shapes[t]
	if !ok {
		return Estimator{}, errs.New(errs.KindConfigError, op, "unknown model type %d", t)
	}
	if len(coeffs) != s.coeffs {
		return Estimator{}, errs.New(errs.KindConfigError, op, "%s takes %d coefficients, got %d", s.name, s.coeffs, len(coeffs))
	}

	e := Estimator{Type: t}
	for i, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Estimator{}, errs.New(errs.KindConfigError, op, "%s coefficient %d is %v", s.name, i, c)
		}
		e.coeffs[i] = c
	}

	return e, nil
}

// Coefficients returns a copy of the coefficients, a first.
func (e Estimator) Coefficients() []float64 {
	return append([]float64(nil), e.coeffs[:shapes[e.Type].coeffs]...)
}

// Estimate returns the predicted ratio at density x.
func (e Estimator) Estimate(x float64) float64 {
	s, ok := shapes[e.Type]
	if !ok || math.IsNaN(x) || x < 0 || (s.open && x == 0) {
		return math.NaN()
	}
	x = min(x, 1)

	a, b, c := e.coeffs[0], e.coeffs[1], e.coeffs[2]
	switch e.Type {
	case ModelTypeHyperbolic:
		return a + b/x
	case ModelTypeLogarithmic:
		return a + b*math.Log(x)
	case ModelTypePower:
		return a * math.Pow(x, b)
	case ModelTypeExponential:
		return a * math.Exp(b*x)
	default:
		return a + b*x + c*x*x
	}
}

// String renders the curve as a formula.
func (e Estimator) String() string {
	a, b, c := e.coeffs[0], e.coeffs[1], e.coeffs[2]
	switch e.Type {
	case ModelTypeHyperbolic:
		return fmt.Sprintf("ratio = %.2f + %.2f / x", a, b)
	case ModelTypeLogarithmic:
		return fmt.Sprintf("ratio = %.2f + %.2f * ln(x)", a, b)
	case ModelTypePower:
		return fmt.Sprintf("ratio = %.2f * x^%.3f", a, b)
	case ModelTypeExponential:
		return fmt.Sprintf("ratio = %.2f * e^(%.3f * x)", a, b)
	case ModelTypePolynomial:
		if c == 0 {
			return fmt.Sprintf("ratio = %.2f + %.2f*x", a, b)
		}

		return fmt.Sprintf("ratio = %.2f + %.2f*x + %.2f*x²", a, b, c)
	default:
		return "unknown"
	}
}
