package main

import (
	"context"
	"flag"
	"log"
	"os"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/FlavioCFOliveira/digitnet/internal/net"
	"github.com/FlavioCFOliveira/digitnet/internal/trainer"
)

// Iris dataset: 3 classes (Setosa, Versicolor, Virginica)
// Each sample has 4 features (sepal length, sepal width, petal length, petal width)
func main() {
	dataPath := flag.String("data", "", "CSV file with 4 feature columns and a class index column (defaults to synthetic data)")
	hasHeader := flag.Bool("header", true, "the CSV file starts with a header row")
	epochs := flag.Int("epochs", 200, "epochs to train")
	batch := flag.Int("batch", 10, "mini-batch size")
	lr := flag.Float64("lr", 2.0, "learning rate")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	log.Println("Training Iris classifier (4-8-3 network)...")

	var pairs []net.Pair
	var err error
	if *dataPath != "" {
		pairs, err = loadIris(*dataPath, *hasHeader)
		if err != nil {
			log.Fatalf("failed to load %s: %v", *dataPath, err)
		}
	} else {
		pairs = generateIrisData(*seed)
	}
	net.Normalize(pairs)

	// Shuffle once so the split holds every class
	pairs = net.ShufflePairs(rand.New(rand.NewSource(*seed)), pairs)
	train, held := net.Split(pairs, 0.8)
	test := make([]net.Sample, len(held))
	for i, p := range held {
		test[i] = net.Sample{Input: p.Input, Label: floats.MaxIdx(p.Target)}
	}

	cfg := trainer.Config{
		InputCount:   4,
		Topology:     []int{8, 3},
		Epochs:       *epochs,
		BatchSize:    *batch,
		LearningRate: *lr,
		Seed:         *seed,
	}
	session, err := trainer.NewSession(cfg, train, test,
		trainer.WithCallbacks(net.Logger{Interval: 20}))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	session.Network().Summary(os.Stderr)

	if err := session.Run(context.Background()); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	result, err := session.Test()
	if err != nil {
		log.Fatalf("test failed: %v", err)
	}
	log.Printf("Final Accuracy: %.1f%%", result.Accuracy*100)

	log.Println("Sample predictions:")
	for i := 0; i < len(test) && i < 10; i++ {
		pred, err := session.Evaluate(test[i].Input)
		if err != nil {
			log.Fatalf("evaluate failed: %v", err)
		}
		log.Printf("Sample %d: Predicted=%d, Actual=%d", i, floats.MaxIdx(pred), test[i].Label)
	}
}

// loadIris reads rows of 4 features followed by a class index and turns
// the class into a one-hot target.
func loadIris(path string, hasHeader bool) ([]net.Pair, error) {
	rows, err := net.LoadCSV(path, []int{4}, hasHeader)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		target, err := net.OneHot(int(rows[i].Target[0]), 3)
		if err != nil {
			return nil, err
		}
		rows[i].Target = target
	}
	return rows, nil
}

// generateIrisData draws 30 noisy samples around the mean of each class.
func generateIrisData(seed uint64) []net.Pair {
	means := [][]float64{
		{5.0, 3.4, 1.5, 0.2}, // Setosa
		{5.9, 2.8, 4.3, 1.3}, // Versicolor
		{6.6, 3.0, 5.6, 2.0}, // Virginica
	}
	noise := distuv.Normal{Mu: 0, Sigma: 0.2, Src: rand.NewSource(seed)}

	var pairs []net.Pair
	for class, mean := range means {
		for i := 0; i < 30; i++ {
			input := make([]float64, len(mean))
			for j, m := range mean {
				input[j] = m + noise.Rand()
			}
			target := make([]float64, len(means))
			target[class] = 1
			pairs = append(pairs, net.Pair{Input: input, Target: target})
		}
	}
	return pairs
}
