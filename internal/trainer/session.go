package trainer

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/digitnet/internal/loss"
	"github.com/FlavioCFOliveira/digitnet/internal/net"
	"github.com/FlavioCFOliveira/digitnet/internal/opt"
)

// ErrBusy is returned by calls that would touch the network while a
// training run is in progress.
var ErrBusy = errors.New("training in progress")

// Status is a snapshot of a session.
type Status struct {
	Training     bool
	TotalEpochs  int
	Accuracy     float64
	Epochs       int
	BatchSize    int
	LearningRate float64
}

// Result is the outcome of testing the network on the held-out samples.
type Result struct {
	Accuracy float64
	// Cost is the mean summed squared error against one-hot targets.
	Cost float64
	// Improvement is Accuracy minus the previous test's accuracy.
	Improvement float64
}

// Session owns a network, its training data and its hyperparameters.
//
// Training runs either synchronously with Run or on a background goroutine
// with Start. While a run is in progress the network belongs to it: Evaluate,
// Test, Reset and the setters return ErrBusy.
type Session struct {
	mu sync.Mutex

	cfg       Config
	network   *net.Network
	train     []net.Pair
	test      []net.Sample
	callbacks []net.Callback
	seeds     *rand.Rand

	training     bool
	totalEpochs  int
	lastAccuracy float64
	done         chan struct{}
	runErr       error
}

// Option configures a Session.
type Option func(*Session)

// WithCallbacks registers callbacks notified by every run.
func WithCallbacks(callbacks ...net.Callback) Option {
	return func(s *Session) {
		s.callbacks = append(s.callbacks, callbacks...)
	}
}

// NewSession validates cfg, checks the test samples against the topology
// and builds the first network.
func NewSession(cfg Config, train []net.Pair, test []net.Sample, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(train) == 0 {
		return nil, errors.Wrap(net.ErrConfiguration, "no training pairs")
	}
	cfg.Topology = append([]int(nil), cfg.Topology...)
	if cfg.Schedule == nil {
		cfg.Schedule = opt.Constant{}
	}

	outputs := cfg.Topology[len(cfg.Topology)-1]
	for i, sample := range test {
		if len(sample.Input) != cfg.InputCount {
			return nil, errors.Wrapf(net.ErrInputShapeMismatch, "test sample %d: got %d inputs, want %d", i, len(sample.Input), cfg.InputCount)
		}
		if sample.Label < 0 || sample.Label >= outputs {
			return nil, errors.Wrapf(net.ErrConfiguration, "test sample %d: label %d outside %d outputs", i, sample.Label, outputs)
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	s := &Session{
		cfg:   cfg,
		train: train,
		test:  test,
		seeds: rand.New(rand.NewSource(seed)),
	}
	for _, fn := range opts {
		fn(s)
	}

	network, err := s.newNetwork()
	if err != nil {
		return nil, err
	}
	s.network = network
	return s, nil
}

func (s *Session) newNetwork() (*net.Network, error) {
	return net.New(s.cfg.InputCount, s.cfg.Topology, net.WithSeed(s.seeds.Uint64()))
}

// Network returns the session's current network. It must not be used
// while a run is in progress.
func (s *Session) Network() *net.Network {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

// Run trains for the configured number of epochs and returns when done.
// The context is checked between epochs.
func (s *Session) Run(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	err := s.run(ctx)
	s.release(err)
	return err
}

// Start runs the configured epochs on a new goroutine. Use Wait to collect
// the result.
func (s *Session) Start(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	go func() {
		s.release(s.run(ctx))
	}()
	return nil
}

// Wait blocks until the current background run finishes and returns its
// error. It returns immediately when nothing was started.
func (s *Session) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.training {
		return ErrBusy
	}
	s.training = true
	s.done = make(chan struct{})
	s.runErr = nil
	return nil
}

func (s *Session) release(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.training = false
	s.runErr = err
	close(s.done)
}

// run is called with the training flag held, so the network and the
// configuration cannot change underneath it.
func (s *Session) run(ctx context.Context) error {
	s.mu.Lock()
	cfg := s.cfg
	network := s.network
	s.mu.Unlock()

	for _, cb := range s.callbacks {
		cb.OnTrainBegin(network)
	}
	defer func() {
		for _, cb := range s.callbacks {
			cb.OnTrainEnd(network)
		}
	}()

	for e := 0; e < cfg.Epochs; e++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		epoch := s.totalEpochs + 1
		s.mu.Unlock()

		for _, cb := range s.callbacks {
			cb.OnEpochBegin(epoch, network)
		}

		start := time.Now()
		rate := cfg.Schedule.Rate(epoch-1, cfg.LearningRate)
		res, err := network.TrainEpoch(cfg.BatchSize, s.train, rate)
		if err != nil {
			return errors.Wrapf(err, "epoch %d", epoch)
		}
		elapsed := time.Since(start)

		result, err := s.score(network)
		if err != nil {
			return errors.Wrapf(err, "epoch %d", epoch)
		}

		s.mu.Lock()
		s.totalEpochs = epoch
		result.Improvement = result.Accuracy - s.lastAccuracy
		s.lastAccuracy = result.Accuracy
		s.mu.Unlock()

		stats := net.EpochStats{
			Epoch:        epoch,
			Cost:         result.Cost,
			Accuracy:     result.Accuracy,
			Improvement:  result.Improvement,
			Batches:      res.Batches,
			LearningRate: rate,
			Elapsed:      elapsed,
		}
		stop := false
		for _, cb := range s.callbacks {
			cb.OnEpochEnd(epoch, stats, network)
			if st, ok := cb.(net.Stopper); ok && st.ShouldStop() {
				stop = true
			}
		}
		if stop {
			break
		}
	}
	return nil
}

// score measures accuracy and cost on the test samples. The predicted
// digit is the output neuron with the highest activation.
func (s *Session) score(network *net.Network) (Result, error) {
	if len(s.test) == 0 {
		return Result{}, nil
	}

	target := make([]float64, network.OutputCount())
	correct := 0
	cost := 0.0
	for _, sample := range s.test {
		out, err := network.Evaluate(sample.Input)
		if err != nil {
			return Result{}, err
		}
		if floats.MaxIdx(out) == sample.Label {
			correct++
		}
		target[sample.Label] = 1
		cost += loss.Total(out, target)
		target[sample.Label] = 0
	}

	n := float64(len(s.test))
	return Result{Accuracy: float64(correct) / n, Cost: cost / n}, nil
}

// Test scores the network on the test samples and records the accuracy
// as the baseline for the next improvement.
func (s *Session) Test() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.training {
		return Result{}, ErrBusy
	}

	result, err := s.score(s.network)
	if err != nil {
		return Result{}, err
	}
	result.Improvement = result.Accuracy - s.lastAccuracy
	s.lastAccuracy = result.Accuracy
	return result, nil
}

// Evaluate runs one input through the network and returns a copy of the
// output activations.
func (s *Session) Evaluate(input []float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.training {
		return nil, ErrBusy
	}

	out, err := s.network.Evaluate(input)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), out...), nil
}

// Reset replaces the network with a freshly initialized one, clears the
// epoch count and tests the new network so the next improvement is measured
// against its untrained accuracy.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.training {
		return ErrBusy
	}

	network, err := s.newNetwork()
	if err != nil {
		return err
	}
	baseline, err := s.score(network)
	if err != nil {
		return err
	}
	s.network = network
	s.totalEpochs = 0
	s.lastAccuracy = baseline.Accuracy
	return nil
}

// SetEpochs sets the number of epochs per run.
func (s *Session) SetEpochs(epochs int) error {
	if epochs <= 0 {
		return errors.Wrapf(net.ErrConfiguration, "epochs must be positive, got %d", epochs)
	}
	return s.update(func(c *Config) { c.Epochs = epochs })
}

// SetBatchSize sets the mini-batch size. Callers that want batches to
// divide the training set evenly can pass the size through SnapBatchSize
// first.
func (s *Session) SetBatchSize(size int) error {
	if size <= 0 {
		return errors.Wrapf(net.ErrConfiguration, "batch size must be positive, got %d", size)
	}
	return s.update(func(c *Config) { c.BatchSize = size })
}

// SetLearningRate sets the base learning rate.
func (s *Session) SetLearningRate(lr float64) error {
	if err := validateLearningRate(lr); err != nil {
		return err
	}
	return s.update(func(c *Config) { c.LearningRate = lr })
}

func (s *Session) update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.training {
		return ErrBusy
	}
	fn(&s.cfg)
	return nil
}

// TrainCount returns the number of training pairs.
func (s *Session) TrainCount() int {
	return len(s.train)
}

// Status returns a snapshot of the session. It is safe to call while a
// run is in progress.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Training:     s.training,
		TotalEpochs:  s.totalEpochs,
		Accuracy:     s.lastAccuracy,
		Epochs:       s.cfg.Epochs,
		BatchSize:    s.cfg.BatchSize,
		LearningRate: s.cfg.LearningRate,
	}
}
