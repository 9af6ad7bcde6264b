// Package activations provides the logistic sigmoid used by every layer.
package activations

import "math"

// Sigmoid computes 1 / (1 + e^-x).
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// SigmoidDerivative computes sigmoid(x) * (1 - sigmoid(x)).
// x is the weighted input, not the activation.
func SigmoidDerivative(x float64) float64 {
	sigma := Sigmoid(x)
	return sigma * (1 - sigma)
}
