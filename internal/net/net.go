// Package net provides the feed-forward network: construction, evaluation
// and mini-batch gradient descent training.
package net

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/FlavioCFOliveira/digitnet/internal/layer"
	"github.com/FlavioCFOliveira/digitnet/internal/loss"
)

// Network is a chain of dense sigmoid layers. The first layer reads the
// network input; every later layer reads the activations of the one before.
//
// A Network is not safe for concurrent use.
type Network struct {
	layers     []*layer.Dense
	inputCount int

	// Seeds the per-call shuffling generator of Train
	rng *rand.Rand
}

// EpochResult reports how much of the training set one Train call used.
type EpochResult struct {
	Batches  int
	Examples int
	// Skipped is the tail that did not fill a complete batch.
	Skipped int
}

type options struct {
	src rand.Source
}

// Option configures New.
type Option func(*options)

// WithSeed makes weight initialization and shuffling reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.src = rand.NewSource(seed)
	}
}

// WithSource uses src for weight initialization and for seeding Train's
// shuffles. The network takes ownership of src.
func WithSource(src rand.Source) Option {
	return func(o *options) {
		o.src = src
	}
}

// New creates a network reading inputCount values, with one layer per entry
// of layerSizes. The last entry is the output width.
func New(inputCount int, layerSizes []int, opts ...Option) (*Network, error) {
	if inputCount <= 0 {
		return nil, errors.Wrapf(ErrConfiguration, "input count must be positive, got %d", inputCount)
	}
	if len(layerSizes) == 0 {
		return nil, errors.Wrap(ErrConfiguration, "at least one layer is required")
	}
	for i, size := range layerSizes {
		if size <= 0 {
			return nil, errors.Wrapf(ErrConfiguration, "layer %d size must be positive, got %d", i, size)
		}
	}

	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.src == nil {
		o.src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	layers := make([]*layer.Dense, len(layerSizes))
	in := inputCount
	for i, size := range layerSizes {
		layers[i] = layer.NewDense(in, size, o.src)
		in = size
	}

	return &Network{
		layers:     layers,
		inputCount: inputCount,
		rng:        rand.New(o.src),
	}, nil
}

// Evaluate runs inputs through every layer and returns the output
// activations. The returned slice is the output layer's cache: it is
// overwritten by the next Evaluate or Train, so copy it to keep it.
func (n *Network) Evaluate(inputs []float64) ([]float64, error) {
	if len(inputs) != n.inputCount {
		return nil, errors.Wrapf(ErrInputShapeMismatch, "got %d inputs, want %d", len(inputs), n.inputCount)
	}
	return n.forward(inputs), nil
}

func (n *Network) forward(x []float64) []float64 {
	curr := x
	for _, l := range n.layers {
		curr = l.Forward(curr)
	}
	return curr
}

// Train runs one epoch of mini-batch gradient descent over pairs.
//
// The pairs are shuffled with a generator local to this call, cut into
// len(pairs)/batchSize batches, and the parameters are updated after each
// batch with learningRate/batchSize times the summed gradient. Pairs left
// over after the last full batch are not used in this call.
func (n *Network) Train(batchSize int, pairs []Pair, learningRate float64) error {
	_, err := n.TrainEpoch(batchSize, pairs, learningRate)
	return err
}

// TrainEpoch is Train, reporting how many batches and examples were used.
func (n *Network) TrainEpoch(batchSize int, pairs []Pair, learningRate float64) (EpochResult, error) {
	if batchSize <= 0 {
		return EpochResult{}, errors.Wrapf(ErrConfiguration, "batch size must be positive, got %d", batchSize)
	}
	if len(pairs) == 0 {
		return EpochResult{}, errors.Wrap(ErrConfiguration, "no training pairs")
	}
	if err := n.checkPairs(pairs); err != nil {
		return EpochResult{}, err
	}

	r := rand.New(rand.NewSource(n.rng.Uint64()))
	shuffled := ShufflePairs(r, pairs)

	batches := len(shuffled) / batchSize
	ws := n.newWorkspace()
	rate := learningRate / float64(batchSize)

	for b := 0; b < batches; b++ {
		ws.reset()
		for _, p := range shuffled[b*batchSize : (b+1)*batchSize] {
			n.backpropagate(p, ws)
		}
		n.apply(ws.grads, rate)
	}

	examples := batches * batchSize
	return EpochResult{
		Batches:  batches,
		Examples: examples,
		Skipped:  len(pairs) - examples,
	}, nil
}

// checkPairs verifies every pair against the network's input and output
// widths.
func (n *Network) checkPairs(pairs []Pair) error {
	out := n.OutputCount()
	for i, p := range pairs {
		if len(p.Input) != n.inputCount {
			return errors.Wrapf(ErrInputShapeMismatch, "pair %d: got %d inputs, want %d", i, len(p.Input), n.inputCount)
		}
		if len(p.Target) != out {
			return errors.Wrapf(ErrInputShapeMismatch, "pair %d: got %d targets, want %d", i, len(p.Target), out)
		}
	}
	return nil
}

// Cost returns the mean over pairs of the summed squared error between the
// network output and the target.
func (n *Network) Cost(pairs []Pair) (float64, error) {
	if len(pairs) == 0 {
		return 0, errors.Wrap(ErrConfiguration, "no pairs to score")
	}
	if err := n.checkPairs(pairs); err != nil {
		return 0, err
	}

	total := 0.0
	for _, p := range pairs {
		total += loss.Total(n.forward(p.Input), p.Target)
	}
	return total / float64(len(pairs)), nil
}

// Layers returns the network's layers, input side first.
func (n *Network) Layers() []*layer.Dense {
	return n.layers
}

// InputCount returns the length every input vector must have.
func (n *Network) InputCount() int {
	return n.inputCount
}

// OutputCount returns the width of the output layer.
func (n *Network) OutputCount() int {
	return n.layers[len(n.layers)-1].OutSize()
}

// Topology returns the input count followed by every layer size.
func (n *Network) Topology() []int {
	sizes := make([]int, 0, len(n.layers)+1)
	sizes = append(sizes, n.inputCount)
	for _, l := range n.layers {
		sizes = append(sizes, l.OutSize())
	}
	return sizes
}

// Params returns all network parameters flattened, layer by layer.
func (n *Network) Params() []float64 {
	var params []float64
	for _, l := range n.layers {
		params = append(params, l.Params()...)
	}
	return params
}

// SetParams sets all network parameters from a flattened slice laid out
// as Params returns it.
func (n *Network) SetParams(params []float64) error {
	if len(params) != n.NumParams() {
		return errors.Wrapf(ErrConfiguration, "got %d parameters, want %d", len(params), n.NumParams())
	}
	offset := 0
	for _, l := range n.layers {
		count := l.NumParams()
		l.SetParams(params[offset : offset+count])
		offset += count
	}
	return nil
}

// NumParams returns the total number of weights and biases.
func (n *Network) NumParams() int {
	total := 0
	for _, l := range n.layers {
		total += l.NumParams()
	}
	return total
}

// Summary writes a table of the network's layers to w.
func (n *Network) Summary(w io.Writer) {
	fmt.Fprintln(w, "_________________________________________________________________")
	fmt.Fprintf(w, "%-25s %-20s %-10s\n", "Layer", "Output Shape", "Param #")
	fmt.Fprintln(w, "=================================================================")
	fmt.Fprintf(w, "%-25s %-20s %-10d\n", "Input", fmt.Sprintf("(%d)", n.inputCount), 0)
	for i, l := range n.layers {
		fmt.Fprintf(w, "%-25s %-20s %-10d\n", fmt.Sprintf("Dense_%d", i), fmt.Sprintf("(%d)", l.OutSize()), l.NumParams())
	}
	fmt.Fprintln(w, "=================================================================")
	fmt.Fprintf(w, "Total params: %d\n", n.NumParams())
}
