package net

import (
	"log"
	"time"
)

// EpochStats summarizes one finished training epoch.
type EpochStats struct {
	Epoch int
	// Cost is the mean summed squared error on the test samples against
	// one-hot targets.
	Cost float64
	// Accuracy is the fraction of test samples classified correctly, or 0
	// when there is no test set.
	Accuracy float64
	// Improvement is Accuracy minus the accuracy of the previous epoch.
	Improvement  float64
	Batches      int
	LearningRate float64
	Elapsed      time.Duration
}

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(epoch int, stats EpochStats, n *Network)
}

// Stopper is implemented by callbacks that can ask the training loop to
// stop after the current epoch.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(n *Network)                            {}
func (c BaseCallback) OnTrainEnd(n *Network)                              {}
func (c BaseCallback) OnEpochBegin(epoch int, n *Network)                 {}
func (c BaseCallback) OnEpochEnd(epoch int, stats EpochStats, n *Network) {}

// EarlyStopping stops training when test accuracy has stopped improving.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64

	best         float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		best:      -1,
	}
}

func (c *EarlyStopping) OnEpochEnd(epoch int, stats EpochStats, n *Network) {
	if stats.Accuracy > c.best+c.Threshold {
		c.best = stats.Accuracy
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if c.numBadEpochs >= c.Patience {
		c.Stopped = true
	}
}

// ShouldStop reports whether the patience has run out.
func (c *EarlyStopping) ShouldStop() bool {
	return c.Stopped
}

// Logger logs training progress every Interval epochs.
type Logger struct {
	BaseCallback
	Interval int
	// Out defaults to the standard logger.
	Out *log.Logger
}

func (c Logger) OnEpochEnd(epoch int, stats EpochStats, n *Network) {
	if c.Interval <= 0 || epoch%c.Interval != 0 {
		return
	}
	out := c.Out
	if out == nil {
		out = log.Default()
	}
	out.Printf("Epoch %d: cost = %.6f accuracy = %.2f%% (%+.2f%%) in %s",
		epoch, stats.Cost, stats.Accuracy*100, stats.Improvement*100, stats.Elapsed.Round(time.Millisecond))
}
