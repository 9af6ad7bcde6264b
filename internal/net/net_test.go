// Package net provides unit tests for the feed-forward network.
package net

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/digitnet/internal/loss"
)

func newTestNetwork(t *testing.T, inputCount int, sizes ...int) *Network {
	t.Helper()
	n, err := New(inputCount, sizes, WithSeed(1))
	require.NoError(t, err)
	return n
}

func randomVector(r *rand.Rand, size int, lo, hi float64) []float64 {
	v := make([]float64, size)
	for i := range v {
		v[i] = lo + (hi-lo)*r.Float64()
	}
	return v
}

// snapshot copies every parameter and layer cache of n.
func snapshot(n *Network) [][]float64 {
	snap := [][]float64{n.Params()}
	for _, l := range n.Layers() {
		snap = append(snap,
			append([]float64(nil), l.WeightedInputs().RawVector().Data...),
			append([]float64(nil), l.Activations().RawVector().Data...))
	}
	return snap
}

// TestNewConfigurationErrors tests that invalid topologies are rejected.
func TestNewConfigurationErrors(t *testing.T) {
	tests := []struct {
		name       string
		inputCount int
		sizes      []int
	}{
		{"zero inputs", 0, []int{2}},
		{"negative inputs", -3, []int{2}},
		{"no layers", 3, nil},
		{"empty layers", 3, []int{}},
		{"zero layer", 3, []int{4, 0, 2}},
		{"negative layer", 3, []int{-1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(tt.inputCount, tt.sizes)
			assert.Nil(t, n)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

// TestNetworkTopology tests layer chaining and the topology accessors.
func TestNetworkTopology(t *testing.T) {
	n := newTestNetwork(t, 784, 16, 16, 10)

	assert.Equal(t, 784, n.InputCount())
	assert.Equal(t, 10, n.OutputCount())
	assert.Equal(t, []int{784, 16, 16, 10}, n.Topology())
	require.Len(t, n.Layers(), 3)

	in := n.InputCount()
	for i, l := range n.Layers() {
		assert.Equal(t, in, l.InSize(), "layer %d input size", i)
		in = l.OutSize()
	}
	assert.Equal(t, 784*16+16+16*16+16+16*10+10, n.NumParams())
}

// TestEvaluateOutputsInUnitInterval tests that every output lies in (0, 1).
func TestEvaluateOutputsInUnitInterval(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	topologies := [][]int{
		{1, 1},
		{3, 4, 2},
		{10, 16, 16, 10},
		{2, 3, 1},
	}

	for _, topo := range topologies {
		n := newTestNetwork(t, topo[0], topo[1:]...)
		for i := 0; i < 20; i++ {
			out, err := n.Evaluate(randomVector(r, topo[0], -1, 1))
			require.NoError(t, err)
			require.Len(t, out, topo[len(topo)-1])
			for _, v := range out {
				assert.Greater(t, v, 0.0)
				assert.Less(t, v, 1.0)
			}
		}
	}
}

// TestEvaluateDeterministic tests that evaluation without training is pure.
func TestEvaluateDeterministic(t *testing.T) {
	n := newTestNetwork(t, 4, 5, 3)
	input := []float64{0.1, -0.4, 0.9, 0.0}

	out, err := n.Evaluate(input)
	require.NoError(t, err)
	first := append([]float64(nil), out...)

	_, err = n.Evaluate([]float64{1, 1, 1, 1})
	require.NoError(t, err)

	again, err := n.Evaluate(input)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

// TestWithSeedReproducible tests that equal seeds build equal networks.
func TestWithSeedReproducible(t *testing.T) {
	a, err := New(3, []int{4, 2}, WithSeed(11))
	require.NoError(t, err)
	b, err := New(3, []int{4, 2}, WithSource(rand.NewSource(11)))
	require.NoError(t, err)
	c, err := New(3, []int{4, 2}, WithSeed(12))
	require.NoError(t, err)

	assert.Equal(t, a.Params(), b.Params())
	assert.NotEqual(t, a.Params(), c.Params())
}

// TestEvaluateShapeMismatch tests that a wrong-length input leaves the
// network untouched.
func TestEvaluateShapeMismatch(t *testing.T) {
	n := newTestNetwork(t, 3, 4, 2)
	_, err := n.Evaluate([]float64{0.2, 0.4, 0.6})
	require.NoError(t, err)
	before := snapshot(n)

	for _, input := range [][]float64{nil, {1, 2}, {1, 2, 3, 4}} {
		out, err := n.Evaluate(input)
		assert.Nil(t, out)
		assert.ErrorIs(t, err, ErrInputShapeMismatch)
	}

	assert.Equal(t, before, snapshot(n))
}

// TestTrainConfigurationErrors tests that invalid Train arguments mutate nothing.
func TestTrainConfigurationErrors(t *testing.T) {
	n := newTestNetwork(t, 2, 2, 1)
	pairs := []Pair{{Input: []float64{0, 1}, Target: []float64{1}}}
	before := n.Params()

	assert.ErrorIs(t, n.Train(0, pairs, 0.5), ErrConfiguration)
	assert.ErrorIs(t, n.Train(-4, pairs, 0.5), ErrConfiguration)
	assert.ErrorIs(t, n.Train(1, nil, 0.5), ErrConfiguration)
	assert.ErrorIs(t, n.Train(1, []Pair{}, 0.5), ErrConfiguration)

	assert.Equal(t, before, n.Params())
}

// TestTrainPairShapeMismatch tests that one malformed pair rejects the whole call.
func TestTrainPairShapeMismatch(t *testing.T) {
	n := newTestNetwork(t, 2, 2, 1)
	good := Pair{Input: []float64{0, 1}, Target: []float64{1}}
	before := n.Params()

	err := n.Train(1, []Pair{good, {Input: []float64{1}, Target: []float64{0}}}, 0.5)
	assert.ErrorIs(t, err, ErrInputShapeMismatch)

	err = n.Train(1, []Pair{good, {Input: []float64{1, 0}, Target: []float64{0, 1}}}, 0.5)
	assert.ErrorIs(t, err, ErrInputShapeMismatch)

	assert.Equal(t, before, n.Params())
}

// TestGradientsMatchFiniteDifferences checks backpropagation against
// central finite differences of the cost.
func TestGradientsMatchFiniteDifferences(t *testing.T) {
	n := newTestNetwork(t, 3, 4, 2)
	p := Pair{Input: []float64{0.3, -0.7, 0.5}, Target: []float64{1, 0}}

	grads, err := n.Gradients([]Pair{p})
	require.NoError(t, err)

	var analytic []float64
	for _, g := range grads {
		analytic = append(analytic, g.Weights.RawMatrix().Data...)
		analytic = append(analytic, g.Biases.RawVector().Data...)
	}
	require.Len(t, analytic, n.NumParams())

	cost := func(params []float64) float64 {
		require.NoError(t, n.SetParams(params))
		out, err := n.Evaluate(p.Input)
		require.NoError(t, err)
		return loss.Total(out, p.Target)
	}
	numeric := fd.Gradient(nil, cost, n.Params(), &fd.Settings{Formula: fd.Central})

	for i := range analytic {
		assert.InDelta(t, numeric[i], analytic[i], 1e-4, "parameter %d", i)
	}
}

// TestGradientsSumOverPairs tests that batch gradients are per-pair sums.
func TestGradientsSumOverPairs(t *testing.T) {
	n := newTestNetwork(t, 2, 3, 2)
	p1 := Pair{Input: []float64{0.1, 0.9}, Target: []float64{0, 1}}
	p2 := Pair{Input: []float64{-0.5, 0.2}, Target: []float64{1, 0}}

	g1, err := n.Gradients([]Pair{p1})
	require.NoError(t, err)
	g2, err := n.Gradients([]Pair{p2})
	require.NoError(t, err)
	both, err := n.Gradients([]Pair{p1, p2})
	require.NoError(t, err)

	for l := range both {
		want := append([]float64(nil), g1[l].Weights.RawMatrix().Data...)
		floats.Add(want, g2[l].Weights.RawMatrix().Data)
		assert.True(t, floats.EqualApprox(want, both[l].Weights.RawMatrix().Data, 1e-12), "layer %d weights", l)

		want = append([]float64(nil), g1[l].Biases.RawVector().Data...)
		floats.Add(want, g2[l].Biases.RawVector().Data)
		assert.True(t, floats.EqualApprox(want, both[l].Biases.RawVector().Data, 1e-12), "layer %d biases", l)
	}
}

// TestTrainAppliesAveragedGradient tests that one full batch moves every
// parameter by learningRate/batchSize times the summed gradient.
func TestTrainAppliesAveragedGradient(t *testing.T) {
	n := newTestNetwork(t, 2, 3, 2)
	pairs := []Pair{
		{Input: []float64{0.1, 0.9}, Target: []float64{0, 1}},
		{Input: []float64{-0.5, 0.2}, Target: []float64{1, 0}},
	}
	const lr = 0.5

	grads, err := n.Gradients(pairs)
	require.NoError(t, err)
	var flat []float64
	for _, g := range grads {
		flat = append(flat, g.Weights.RawMatrix().Data...)
		flat = append(flat, g.Biases.RawVector().Data...)
	}
	want := n.Params()
	floats.AddScaled(want, -lr/float64(len(pairs)), flat)

	res, err := n.TrainEpoch(len(pairs), pairs, lr)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Batches)
	assert.True(t, floats.EqualApprox(want, n.Params(), 1e-12))
}

// TestTrainSingleNeuronConverges tests the 1-1 network on the pair {[1], [1]}.
func TestTrainSingleNeuronConverges(t *testing.T) {
	n := newTestNetwork(t, 1, 1)
	// Worst start inside the initialization range
	require.NoError(t, n.SetParams([]float64{-1, -1}))
	pairs := []Pair{{Input: []float64{1}, Target: []float64{1}}}

	prev := 0.0
	for i := 0; i < 500; i++ {
		require.NoError(t, n.Train(1, pairs, 0.5))
		out, err := n.Evaluate(pairs[0].Input)
		require.NoError(t, err)
		require.Greater(t, out[0], prev, "call %d", i)
		prev = out[0]
	}
	assert.InDelta(t, 1.0, prev, 0.025)

	for i := 0; i < 2500; i++ {
		require.NoError(t, n.Train(1, pairs, 0.5))
	}
	out, err := n.Evaluate(pairs[0].Input)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 0.01)
}

// TestTrainReducesCost tests that a few hundred epochs fit the OR function.
func TestTrainReducesCost(t *testing.T) {
	n := newTestNetwork(t, 2, 1)
	pairs := []Pair{
		{Input: []float64{0, 0}, Target: []float64{0}},
		{Input: []float64{0, 1}, Target: []float64{1}},
		{Input: []float64{1, 0}, Target: []float64{1}},
		{Input: []float64{1, 1}, Target: []float64{1}},
	}

	before, err := n.Cost(pairs)
	require.NoError(t, err)
	for epoch := 0; epoch < 300; epoch++ {
		require.NoError(t, n.Train(2, pairs, 2.0))
	}
	after, err := n.Cost(pairs)
	require.NoError(t, err)

	assert.Less(t, after, before)
}

// TestTrainEpochTruncatesRemainder tests that the tail of a partial batch is skipped.
func TestTrainEpochTruncatesRemainder(t *testing.T) {
	n := newTestNetwork(t, 2, 2)
	r := rand.New(rand.NewSource(3))
	pairs := make([]Pair, 23)
	for i := range pairs {
		pairs[i] = Pair{Input: randomVector(r, 2, 0, 1), Target: []float64{1, 0}}
	}

	res, err := n.TrainEpoch(10, pairs, 0.1)
	require.NoError(t, err)
	assert.Equal(t, EpochResult{Batches: 2, Examples: 20, Skipped: 3}, res)

	// Replaying the same shuffle on a twin network and stepping on the first
	// 20 shuffled pairs only must land on the same parameters
	twin := newTestNetwork(t, 2, 2)
	lr, batchSize := 0.1, 10
	shuffled := ShufflePairs(rand.New(rand.NewSource(twin.rng.Uint64())), pairs)
	for b := 0; b < 2; b++ {
		grads, err := twin.Gradients(shuffled[b*batchSize : (b+1)*batchSize])
		require.NoError(t, err)
		twin.apply(grads, lr/float64(batchSize))
	}
	assert.Equal(t, twin.Params(), n.Params())

	// A batch larger than the data set processes nothing
	before := n.Params()
	res, err = n.TrainEpoch(30, pairs, 0.1)
	require.NoError(t, err)
	assert.Equal(t, EpochResult{Batches: 0, Examples: 0, Skipped: 23}, res)
	assert.Equal(t, before, n.Params())
}

// TestTrainReproducible tests that seeded networks train identically and
// that the caller's slice keeps its order.
func TestTrainReproducible(t *testing.T) {
	r := rand.New(rand.NewSource(8))
	pairs := make([]Pair, 12)
	for i := range pairs {
		pairs[i] = Pair{Input: []float64{float64(i), r.Float64()}, Target: []float64{r.Float64()}}
	}
	order := make([]float64, len(pairs))
	for i, p := range pairs {
		order[i] = p.Input[0]
	}

	a, err := New(2, []int{3, 1}, WithSeed(21))
	require.NoError(t, err)
	b, err := New(2, []int{3, 1}, WithSeed(21))
	require.NoError(t, err)
	for epoch := 0; epoch < 5; epoch++ {
		require.NoError(t, a.Train(4, pairs, 0.3))
		require.NoError(t, b.Train(4, pairs, 0.3))
	}

	assert.Equal(t, a.Params(), b.Params())
	for i, p := range pairs {
		assert.Equal(t, order[i], p.Input[0])
	}
}

// TestShuffleIsBijection tests that Shuffle returns a permutation.
func TestOneHot(t *testing.T) {
	v, err := OneHot(3, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 1, 0}, v)

	_, err = OneHot(5, 5)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = OneHot(-1, 5)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestShuffleIsBijection(t *testing.T) {
	r := rand.New(rand.NewSource(3))

	for _, size := range []int{0, 1, 2, 7, 100} {
		perm := Shuffle(r, size)
		require.Len(t, perm, size)
		sorted := append([]int(nil), perm...)
		sort.Ints(sorted)
		for i, v := range sorted {
			assert.Equal(t, i, v)
		}
	}
}

// TestShufflePairs tests that every pair appears exactly once and the
// source slice is untouched.
func TestShufflePairs(t *testing.T) {
	pairs := make([]Pair, 50)
	for i := range pairs {
		pairs[i] = Pair{Input: []float64{float64(i)}}
	}

	shuffled := ShufflePairs(rand.New(rand.NewSource(4)), pairs)
	require.Len(t, shuffled, len(pairs))

	seen := make(map[float64]bool)
	moved := false
	for i, p := range shuffled {
		seen[p.Input[0]] = true
		if p.Input[0] != float64(i) {
			moved = true
		}
	}
	assert.Len(t, seen, len(pairs))
	assert.True(t, moved)
	for i, p := range pairs {
		assert.Equal(t, float64(i), p.Input[0])
	}
}

// TestSetParamsLengthMismatch tests that a wrong parameter count is rejected.
func TestSetParamsLengthMismatch(t *testing.T) {
	n := newTestNetwork(t, 2, 2, 1)
	before := n.Params()

	assert.ErrorIs(t, n.SetParams(make([]float64, 3)), ErrConfiguration)
	assert.Equal(t, before, n.Params())
}

// TestCostShapeMismatch tests Cost argument validation.
func TestCostShapeMismatch(t *testing.T) {
	n := newTestNetwork(t, 2, 1)

	_, err := n.Cost(nil)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = n.Cost([]Pair{{Input: []float64{1}, Target: []float64{1}}})
	assert.ErrorIs(t, err, ErrInputShapeMismatch)
}
