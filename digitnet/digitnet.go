// Package digitnet is the public entry point to the feed-forward network
// engine, its MNIST loader and its training session.
package digitnet

import (
	"github.com/FlavioCFOliveira/digitnet/internal/activations"
	"github.com/FlavioCFOliveira/digitnet/internal/loss"
	"github.com/FlavioCFOliveira/digitnet/internal/mnist"
	"github.com/FlavioCFOliveira/digitnet/internal/net"
	"github.com/FlavioCFOliveira/digitnet/internal/opt"
	"github.com/FlavioCFOliveira/digitnet/internal/trainer"
)

// Re-export common types and functions for easier access
type (
	Network     = net.Network
	Pair        = net.Pair
	Sample      = net.Sample
	Option      = net.Option
	EpochResult = net.EpochResult
	Gradient    = net.Gradient

	Session = trainer.Session
	Config  = trainer.Config
	Status  = trainer.Status
	Result  = trainer.Result

	Dataset      = mnist.Dataset
	MNISTOptions = mnist.Options

	Schedule = opt.Schedule
)

// Errors
var (
	ErrConfiguration      = net.ErrConfiguration
	ErrInputShapeMismatch = net.ErrInputShapeMismatch
	ErrBusy               = trainer.ErrBusy
)

// Network creation
func New(inputCount int, layerSizes []int, opts ...Option) (*Network, error) {
	return net.New(inputCount, layerSizes, opts...)
}

func WithSeed(seed uint64) Option {
	return net.WithSeed(seed)
}

// Activation and cost primitives
func Sigmoid(x float64) float64 {
	return activations.Sigmoid(x)
}

func SigmoidDerivative(x float64) float64 {
	return activations.SigmoidDerivative(x)
}

func SquaredError(activation, target float64) float64 {
	return loss.SquaredError(activation, target)
}

func SquaredErrorDerivative(activation, target float64) float64 {
	return loss.SquaredErrorDerivative(activation, target)
}

// Data
func LoadMNIST(dir string, opts MNISTOptions) (*Dataset, error) {
	return mnist.Load(dir, opts)
}

func LoadCSV(filename string, labelCols []int, hasHeader bool) ([]Pair, error) {
	return net.LoadCSV(filename, labelCols, hasHeader)
}

// Training sessions
func DefaultConfig() Config {
	return trainer.DefaultConfig()
}

func NewSession(cfg Config, train []Pair, test []Sample, opts ...trainer.Option) (*Session, error) {
	return trainer.NewSession(cfg, train, test, opts...)
}

func SnapBatchSize(total, requested int) int {
	return trainer.SnapBatchSize(total, requested)
}

// Callbacks
type Callback = net.Callback

func WithCallbacks(callbacks ...Callback) trainer.Option {
	return trainer.WithCallbacks(callbacks...)
}

func Logger(interval int) net.Logger {
	return net.Logger{Interval: interval}
}

func CSVLogger(filename string, append bool) *net.CSVLogger {
	return net.NewCSVLogger(filename, append)
}

func EarlyStopping(patience int, threshold float64) *net.EarlyStopping {
	return net.NewEarlyStopping(patience, threshold)
}

// Learning rate schedules
func StepDecay(every int, gamma float64) Schedule {
	return opt.StepDecay{Every: every, Gamma: gamma}
}

func ExponentialDecay(gamma float64) Schedule {
	return opt.ExponentialDecay{Gamma: gamma}
}
