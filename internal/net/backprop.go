package net

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/digitnet/internal/activations"
	"github.com/FlavioCFOliveira/digitnet/internal/loss"
	"github.com/FlavioCFOliveira/digitnet/internal/opt"
)

// Gradient holds the cost gradient of one layer summed over a batch.
// Weights is shaped like the layer's weight matrix.
type Gradient struct {
	Weights *mat.Dense
	Biases  *mat.VecDense
}

// workspace is the per-epoch scratch memory for backpropagation.
type workspace struct {
	grads []Gradient

	// Per-example local errors, one per layer
	deltas []*mat.VecDense
}

func (n *Network) newWorkspace() *workspace {
	ws := &workspace{
		grads:  make([]Gradient, len(n.layers)),
		deltas: make([]*mat.VecDense, len(n.layers)),
	}
	for i, l := range n.layers {
		ws.grads[i] = Gradient{
			Weights: mat.NewDense(l.OutSize(), l.InSize(), nil),
			Biases:  mat.NewVecDense(l.OutSize(), nil),
		}
		ws.deltas[i] = mat.NewVecDense(l.OutSize(), nil)
	}
	return ws
}

// reset zeroes the accumulators before a new batch.
func (ws *workspace) reset() {
	for _, g := range ws.grads {
		g.Weights.Zero()
		g.Biases.Zero()
	}
}

// Gradients returns the cost gradient of every layer summed over pairs,
// without updating any parameter. Layer caches are left describing the
// last pair.
func (n *Network) Gradients(pairs []Pair) ([]Gradient, error) {
	if len(pairs) == 0 {
		return nil, errors.Wrap(ErrConfiguration, "no pairs")
	}
	if err := n.checkPairs(pairs); err != nil {
		return nil, err
	}

	ws := n.newWorkspace()
	for _, p := range pairs {
		n.backpropagate(p, ws)
	}
	return ws.grads, nil
}

// backpropagate evaluates one pair and adds its gradient to ws.grads.
func (n *Network) backpropagate(p Pair, ws *workspace) {
	n.forward(p.Input)
	last := len(n.layers) - 1

	out := n.layers[last]
	delta := ws.deltas[last]
	loss.DerivativeInPlace(out.Activations().RawVector().Data, p.Target, delta.RawVector().Data)
	scaleBySigmoidDerivative(delta, out.WeightedInputs())
	ws.accumulate(last, delta, out.Input())

	for l := last - 1; l >= 0; l-- {
		delta = ws.deltas[l]
		delta.MulVec(n.layers[l+1].Weights().T(), ws.deltas[l+1])
		scaleBySigmoidDerivative(delta, n.layers[l].WeightedInputs())
		ws.accumulate(l, delta, n.layers[l].Input())
	}
}

func (ws *workspace) accumulate(l int, delta, prev *mat.VecDense) {
	g := ws.grads[l]
	floats.Add(g.Biases.RawVector().Data, delta.RawVector().Data)
	g.Weights.RankOne(g.Weights, 1, delta, prev)
}

// scaleBySigmoidDerivative multiplies delta elementwise by σ'(z).
func scaleBySigmoidDerivative(delta, z *mat.VecDense) {
	for j := 0; j < delta.Len(); j++ {
		delta.SetVec(j, delta.AtVec(j)*activations.SigmoidDerivative(z.AtVec(j)))
	}
}

// apply takes one descent step on every layer. This is the only place
// training mutates parameters.
func (n *Network) apply(grads []Gradient, rate float64) {
	sgd := opt.SGD{LearningRate: rate}
	for i, l := range n.layers {
		sgd.StepInPlace(l.Weights().RawMatrix().Data, grads[i].Weights.RawMatrix().Data)
		sgd.StepInPlace(l.Biases().RawVector().Data, grads[i].Biases.RawVector().Data)
	}
}
