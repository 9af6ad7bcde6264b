// Package loss provides the squared-error cost used for training.
package loss

// SquaredError computes (a - t)^2 for a single output.
func SquaredError(activation, target float64) float64 {
	diff := activation - target
	return diff * diff
}

// SquaredErrorDerivative computes 2(a - t), the derivative with respect to the activation.
func SquaredErrorDerivative(activation, target float64) float64 {
	return 2 * (activation - target)
}

// Total sums SquaredError over every component of an output vector.
func Total(outputs, targets []float64) float64 {
	if len(outputs) != len(targets) {
		panic("loss: outputs and targets must have same length")
	}

	var sum float64
	for i := range outputs {
		sum += SquaredError(outputs[i], targets[i])
	}
	return sum
}

// DerivativeInPlace writes SquaredErrorDerivative for every component into grad.
func DerivativeInPlace(outputs, targets, grad []float64) {
	n := len(outputs)
	if n != len(targets) || n != len(grad) {
		panic("loss: slices must have same length")
	}

	for i := 0; i < n; i++ {
		grad[i] = SquaredErrorDerivative(outputs[i], targets[i])
	}
}
