package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/FlavioCFOliveira/digitnet/internal/mnist"
	"github.com/FlavioCFOliveira/digitnet/internal/net"
	"github.com/FlavioCFOliveira/digitnet/internal/opt"
	"github.com/FlavioCFOliveira/digitnet/internal/trainer"
)

// Handwritten digit classification on MNIST
// Trains a sigmoid network with mini-batch gradient descent and reports
// test accuracy after every epoch.
func main() {
	dataDir := flag.String("data", "data/mnist", "directory holding train-images-idx3-ubyte[.gz] and train-labels-idx1-ubyte[.gz]")
	epochs := flag.Int("epochs", 1, "epochs to train")
	batch := flag.Int("batch", 10, "mini-batch size")
	lr := flag.Float64("lr", 3.0, "learning rate")
	hidden := flag.String("hidden", "16,16", "hidden layer sizes")
	trainCount := flag.Int("train", mnist.DefaultTrainCount, "training examples")
	testCount := flag.Int("test", mnist.DefaultTestCount, "test examples following the training ones")
	seed := flag.Uint64("seed", 0, "random seed (0 seeds from the clock)")
	csvPath := flag.String("csv", "", "append per-epoch statistics to this CSV file")
	snap := flag.Bool("snap", false, "round the batch size so batches divide the training set evenly")
	decay := flag.Float64("decay", 0, "multiply the learning rate by this factor every epoch (0 disables)")
	patience := flag.Int("patience", 0, "stop after this many epochs without accuracy improvement (0 disables)")
	flag.Parse()

	log.Println("=== MNIST Digit Classification ===")

	sizes, err := trainer.ParseTopology(*hidden)
	if err != nil {
		log.Fatalf("invalid -hidden: %v", err)
	}

	log.Printf("Loading MNIST from %s...", *dataDir)
	ds, err := mnist.Load(*dataDir, mnist.Options{TrainCount: *trainCount, TestCount: *testCount})
	if err != nil {
		log.Fatalf("failed to load MNIST: %v", err)
	}
	log.Printf("Loaded %d training pairs and %d test samples", len(ds.Train), len(ds.Test))

	cfg := trainer.Config{
		InputCount:   mnist.InputSize,
		Topology:     append(sizes, mnist.Classes),
		Epochs:       *epochs,
		BatchSize:    *batch,
		LearningRate: *lr,
		Seed:         *seed,
	}
	if *snap {
		cfg.BatchSize = trainer.SnapBatchSize(len(ds.Train), cfg.BatchSize)
	}
	if *decay > 0 {
		cfg.Schedule = opt.ExponentialDecay{Gamma: *decay}
	}

	callbacks := []net.Callback{net.Logger{Interval: 1}}
	if *csvPath != "" {
		callbacks = append(callbacks, net.NewCSVLogger(*csvPath, true))
	}
	if *patience > 0 {
		callbacks = append(callbacks, net.NewEarlyStopping(*patience, 0))
	}

	session, err := trainer.NewSession(cfg, ds.Train, ds.Test, trainer.WithCallbacks(callbacks...))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	session.Network().Summary(os.Stderr)

	initial, err := session.Test()
	if err != nil {
		log.Fatalf("test failed: %v", err)
	}
	log.Printf("Untrained accuracy: %.2f%%", initial.Accuracy*100)
	log.Printf("Training for %d epochs, batch size %d, learning rate %g", cfg.Epochs, cfg.BatchSize, cfg.LearningRate)

	// Ctrl-C stops training after the current epoch
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := session.Start(ctx); err != nil {
		log.Fatalf("failed to start training: %v", err)
	}
	if err := session.Wait(); err != nil {
		if ctx.Err() != nil {
			log.Printf("Training interrupted: %v", err)
		} else {
			log.Fatalf("training failed: %v", err)
		}
	}

	status := session.Status()
	log.Printf("Total elapsed epochs: %d", status.TotalEpochs)
	log.Printf("Current accuracy: %.2f%%", status.Accuracy*100)
}
