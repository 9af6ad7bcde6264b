// Package layer provides the fully connected sigmoid layer.
package layer

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/FlavioCFOliveira/digitnet/internal/activations"
)

// Dense is a fully connected layer: one affine transform followed by the
// logistic sigmoid.
//
// Weights are stored as an [out × in] gonum matrix where At(n, w) is the
// weight from input w to neuron n.
//
// The weighted-input and activation caches are overwritten by every call to
// Forward and only describe the most recent input. Anything that reads them
// (backpropagation in particular) must do so before the next Forward on the
// same layer.
type Dense struct {
	weights *mat.Dense
	biases  *mat.VecDense
	inSize  int
	outSize int

	// Caches from the most recent Forward call
	input          *mat.VecDense
	weightedInputs *mat.VecDense
	activations    *mat.VecDense
}

// NewDense creates a layer with in inputs and out neurons. Every weight and
// bias is drawn independently from U[-1, 1] using src, which must not be
// shared with another goroutine.
func NewDense(in, out int, src rand.Source) *Dense {
	dist := distuv.Uniform{Min: -1, Max: 1, Src: src}

	weights := make([]float64, out*in)
	biases := make([]float64, out)
	for n := 0; n < out; n++ {
		row := weights[n*in : (n+1)*in]
		for w := range row {
			row[w] = dist.Rand()
		}
		biases[n] = dist.Rand()
	}

	return &Dense{
		weights:        mat.NewDense(out, in, weights),
		biases:         mat.NewVecDense(out, biases),
		inSize:         in,
		outSize:        out,
		input:          mat.NewVecDense(in, nil),
		weightedInputs: mat.NewVecDense(out, nil),
		activations:    mat.NewVecDense(out, nil),
	}
}

// Forward computes z = W·x + b and a = sigmoid(z), storing x, z and a in
// the layer caches. The returned slice is the activation cache itself.
// len(x) must equal InSize; the layer does not check it.
func (d *Dense) Forward(x []float64) []float64 {
	copy(d.input.RawVector().Data, x)
	z := d.weightedInputs
	z.MulVec(d.weights, d.input)
	z.AddVec(z, d.biases)

	for n := 0; n < d.outSize; n++ {
		d.activations.SetVec(n, activations.Sigmoid(z.AtVec(n)))
	}

	return d.activations.RawVector().Data
}

// Weights returns the weight matrix. Mutations are visible to the layer.
func (d *Dense) Weights() *mat.Dense {
	return d.weights
}

// Biases returns the bias vector. Mutations are visible to the layer.
func (d *Dense) Biases() *mat.VecDense {
	return d.biases
}

// Input returns the copy of the input seen by the last Forward.
func (d *Dense) Input() *mat.VecDense {
	return d.input
}

// WeightedInputs returns the pre-activation cache from the last Forward.
func (d *Dense) WeightedInputs() *mat.VecDense {
	return d.weightedInputs
}

// Activations returns the activation cache from the last Forward.
func (d *Dense) Activations() *mat.VecDense {
	return d.activations
}

// Params returns all layer parameters flattened (weights row-major, then biases).
func (d *Dense) Params() []float64 {
	w := d.weights.RawMatrix().Data
	b := d.biases.RawVector().Data
	params := make([]float64, 0, len(w)+len(b))
	params = append(params, w...)
	params = append(params, b...)
	return params
}

// SetParams updates weights and biases from a flattened slice (in-place).
func (d *Dense) SetParams(params []float64) {
	w := d.weights.RawMatrix().Data
	if len(params) != len(w)+d.outSize {
		panic("layer: parameter count mismatch")
	}
	copy(w, params[:len(w)])
	copy(d.biases.RawVector().Data, params[len(w):])
}

// NumParams returns the number of weights plus biases.
func (d *Dense) NumParams() int {
	return d.outSize*d.inSize + d.outSize
}

// SetWeight sets a single weight at (row, col).
func (d *Dense) SetWeight(row, col int, val float64) {
	d.weights.Set(row, col, val)
}

// SetBias sets a single bias.
func (d *Dense) SetBias(idx int, val float64) {
	d.biases.SetVec(idx, val)
}

// GetWeight gets a single weight at (row, col).
func (d *Dense) GetWeight(row, col int) float64 {
	return d.weights.At(row, col)
}

// GetBias gets a single bias.
func (d *Dense) GetBias(idx int) float64 {
	return d.biases.AtVec(idx)
}

// InSize returns the input size of the layer.
func (d *Dense) InSize() int {
	return d.inSize
}

// OutSize returns the neuron count of the layer.
func (d *Dense) OutSize() int {
	return d.outSize
}
