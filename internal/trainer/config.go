// Package trainer drives a network through repeated training epochs and
// measures its classification accuracy on held-out samples.
package trainer

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/digitnet/internal/net"
	"github.com/FlavioCFOliveira/digitnet/internal/opt"
)

// Config holds training configuration
type Config struct {
	InputCount int
	// Topology lists the layer sizes after the input; the last is the
	// output width.
	Topology     []int
	Epochs       int
	BatchSize    int
	LearningRate float64
	// Seed makes every network built by the session reproducible. Zero
	// seeds from the clock.
	Seed uint64
	// Schedule adjusts the learning rate per epoch. Nil keeps it constant.
	Schedule opt.Schedule
}

// DefaultConfig returns the MNIST setup: 784-16-16-10, one epoch per run,
// batches of 10 and a learning rate of 3.
func DefaultConfig() Config {
	return Config{
		InputCount:   784,
		Topology:     []int{16, 16, 10},
		Epochs:       1,
		BatchSize:    10,
		LearningRate: 3.0,
	}
}

// Validate validates training configuration
func (c Config) Validate() error {
	if c.InputCount <= 0 {
		return errors.Wrap(net.ErrConfiguration, "input count must be positive")
	}
	if len(c.Topology) == 0 {
		return errors.Wrap(net.ErrConfiguration, "topology must have at least one layer")
	}
	for i, size := range c.Topology {
		if size <= 0 {
			return errors.Wrapf(net.ErrConfiguration, "layer %d size must be positive", i)
		}
	}
	if c.Epochs <= 0 {
		return errors.Wrap(net.ErrConfiguration, "epochs must be positive")
	}
	if c.BatchSize <= 0 {
		return errors.Wrap(net.ErrConfiguration, "batch size must be positive")
	}
	if err := validateLearningRate(c.LearningRate); err != nil {
		return err
	}
	return nil
}

func validateLearningRate(lr float64) error {
	if lr <= 0 || math.IsNaN(lr) || math.IsInf(lr, 0) {
		return errors.Wrapf(net.ErrConfiguration, "learning rate must be positive and finite, got %v", lr)
	}
	return nil
}

// ParseTopology parses a layer size list such as "16,16,10" or "16 16 10".
func ParseTopology(s string) ([]int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(parts) == 0 {
		return nil, errors.Wrapf(net.ErrConfiguration, "empty topology %q", s)
	}

	sizes := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrapf(net.ErrConfiguration, "layer %d: %v", i, err)
		}
		if n <= 0 {
			return nil, errors.Wrapf(net.ErrConfiguration, "layer %d size must be positive, got %d", i, n)
		}
		sizes[i] = n
	}
	return sizes, nil
}

// SnapBatchSize returns the largest batch size that still cuts total
// examples into as many full batches as requested does, computed as
// total / (total / requested). With 50000 examples a request of 30 becomes
// 30 (1666 batches) while 7000 becomes 7142 (7 batches).
func SnapBatchSize(total, requested int) int {
	if requested <= 0 || total <= 0 {
		return requested
	}
	if requested >= total {
		return total
	}
	return total / (total / requested)
}
