package rank

import "math"

// FeatureFuncKind selects one of the fixed shaping function families
// applied to non-term document features. New shapes are added by extending
// this enum, not by open subtyping.
type FeatureFuncKind int

const (
	// Logarithmic maps x to log(λ + x).
	Logarithmic FeatureFuncKind = iota
	// Rational maps x to x / (λ + x).
	Rational
	// Sigmoid maps x to 1 / (λ + exp(-x·λ')).
	Sigmoid
)

// FeatureFunc is a shaping function with its numeric parameters. Lambda is
// the λ parameter of all three families; Scale is the λ' slope used only by
// Sigmoid.
type FeatureFunc struct {
	Kind   FeatureFuncKind
	Lambda float32
	Scale  float32
}

// LogarithmicFunc returns log(λ + x).
func LogarithmicFunc(lambda float32) FeatureFunc {
	return FeatureFunc{Kind: Logarithmic, Lambda: lambda}
}

// RationalFunc returns x / (λ + x).
func RationalFunc(lambda float32) FeatureFunc {
	return FeatureFunc{Kind: Rational, Lambda: lambda}
}

// SigmoidFunc returns 1 / (λ + exp(-x·λ')).
func SigmoidFunc(lambda, scale float32) FeatureFunc {
	return FeatureFunc{Kind: Sigmoid, Lambda: lambda, Scale: scale}
}

// Eval applies the shaping function to x in single precision.
func (f FeatureFunc) Eval(x float32) float32 {
	switch f.Kind {
	case Logarithmic:
		return float32(math.Log(float64(f.Lambda + x)))
	case Rational:
		return x / (f.Lambda + x)
	case Sigmoid:
		return 1 / (f.Lambda + float32(math.Exp(float64(-x*f.Scale))))
	default:
		return float32(math.NaN())
	}
}
