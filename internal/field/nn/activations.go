package nn

import "math"

// densityLogitClamp bounds the density logit before exponentiation so that
// float32 intermediates from the fused backend cannot overflow.
const densityLogitClamp = 15.0

// TruncExp rectifies a density logit into a non-negative density with a
// truncated exponential.
func TruncExp(x float64) float64 {
	if x > densityLogitClamp {
		x = densityLogitClamp
	}
	return math.Exp(x)
}

// Sigmoid is the logistic squashing function.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// ReLU is the rectified linear unit.
func ReLU(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

// Softplus is a smooth rectifier, computed in a form that does not
// overflow for large inputs.
func Softplus(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

// Tanh is the hyperbolic tangent.
func Tanh(x float64) float64 { return math.Tanh(x) }
