package net

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Pair is one training example: an input vector and the activations the
// output layer should produce for it (typically one-hot).
//
// The network only reads the vectors; they stay owned by the caller.
type Pair struct {
	Input  []float64
	Target []float64
}

// Sample is a labelled input used to measure classification accuracy.
// Label is the index of the output neuron that should fire strongest.
type Sample struct {
	Input []float64
	Label int
}

// OneHot returns a target of length classes with a 1 at label.
func OneHot(label, classes int) ([]float64, error) {
	if label < 0 || label >= classes {
		return nil, errors.Wrapf(ErrConfiguration, "label %d out of range [0, %d)", label, classes)
	}
	v := make([]float64, classes)
	v[label] = 1
	return v, nil
}

// Shuffle returns a uniformly random permutation of 0..n-1 using an
// iterative Fisher-Yates pass.
func Shuffle(r *rand.Rand, n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// ShufflePairs returns a new slice holding the pairs in a random order.
// The input slice is left untouched.
func ShufflePairs(r *rand.Rand, pairs []Pair) []Pair {
	shuffled := make([]Pair, len(pairs))
	for i, j := range Shuffle(r, len(pairs)) {
		shuffled[i] = pairs[j]
	}
	return shuffled
}
