// Package opt provides the gradient-descent parameter update.
package opt

// SGD (Stochastic Gradient Descent) optimizer.
//
// The network applies it once per batch with LearningRate already divided
// by the batch size, so gradients can be passed as raw batch sums.
type SGD struct {
	LearningRate float64
}

// StepInPlace updates params in-place: params = params - lr * gradients
func (s SGD) StepInPlace(params, gradients []float64) {
	if len(params) != len(gradients) {
		panic("opt: params and gradients must have same length")
	}
	for i := range params {
		params[i] -= s.LearningRate * gradients[i]
	}
}
