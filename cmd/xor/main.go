package main

import (
	"flag"
	"log"

	"github.com/FlavioCFOliveira/digitnet/internal/net"
)

func main() {
	epochs := flag.Int("epochs", 5000, "epochs to train")
	lr := flag.Float64("lr", 4.0, "learning rate")
	seed := flag.Uint64("seed", 42, "random seed")
	dataPath := flag.String("data", "", "CSV file whose last column is the target (defaults to the XOR table)")
	hasHeader := flag.Bool("header", false, "the CSV file starts with a header row")
	flag.Parse()

	log.Println("=== XOR Training Example ===")

	// XOR training data
	pairs := []net.Pair{
		{Input: []float64{0, 0}, Target: []float64{0}},
		{Input: []float64{0, 1}, Target: []float64{1}},
		{Input: []float64{1, 0}, Target: []float64{1}},
		{Input: []float64{1, 1}, Target: []float64{0}},
	}
	if *dataPath != "" {
		loaded, err := loadPairs(*dataPath, *hasHeader)
		if err != nil {
			log.Fatalf("failed to load %s: %v", *dataPath, err)
		}
		pairs = loaded
	}

	// The XOR function cannot be solved by a single layer, but a hidden
	// layer of three sigmoid neurons is enough
	in := len(pairs[0].Input)
	network, err := net.New(in, []int{3, 1}, net.WithSeed(*seed))
	if err != nil {
		log.Fatalf("failed to create network: %v", err)
	}
	log.Printf("Network architecture: %v", network.Topology())

	batch := len(pairs)
	for epoch := 0; epoch < *epochs; epoch++ {
		if err := network.Train(batch, pairs, *lr); err != nil {
			log.Fatalf("training failed: %v", err)
		}
		if epoch%500 == 0 {
			cost, err := network.Cost(pairs)
			if err != nil {
				log.Fatalf("failed to compute cost: %v", err)
			}
			log.Printf("Epoch %d, Cost: %.6f", epoch, cost)
		}
	}

	log.Println("Testing trained network:")
	for _, p := range pairs {
		pred, err := network.Evaluate(p.Input)
		if err != nil {
			log.Fatalf("evaluate failed: %v", err)
		}
		log.Printf("Input: %v, Predicted: %.4f, Target: %v", p.Input, pred[0], p.Target[0])
	}
}

// loadPairs reads a CSV file using its last column as the target and
// scales every input feature to [0, 1].
func loadPairs(path string, hasHeader bool) ([]net.Pair, error) {
	probe, err := net.LoadCSV(path, nil, hasHeader)
	if err != nil {
		return nil, err
	}
	last := len(probe[0].Input) - 1

	pairs, err := net.LoadCSV(path, []int{last}, hasHeader)
	if err != nil {
		return nil, err
	}
	net.Normalize(pairs)
	return pairs, nil
}
