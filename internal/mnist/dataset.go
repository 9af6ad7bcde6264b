package mnist

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/digitnet/internal/net"
)

const (
	// Classes is the number of digit classes and the output width.
	Classes = 10
	// InputSize is the pixel count of one 28x28 image.
	InputSize = 28 * 28

	DefaultTrainCount = 50000
	DefaultTestCount  = 10000

	trainImagesFile = "train-images-idx3-ubyte"
	trainLabelsFile = "train-labels-idx1-ubyte"
)

// Options selects how the MNIST training file is split. Zero values use
// the defaults.
type Options struct {
	TrainCount int
	TestCount  int
}

func (o Options) withDefaults() Options {
	if o.TrainCount <= 0 {
		o.TrainCount = DefaultTrainCount
	}
	if o.TestCount <= 0 {
		o.TestCount = DefaultTestCount
	}
	return o
}

// Dataset holds training pairs with one-hot targets and a held-out test
// set labelled by digit.
type Dataset struct {
	Train []net.Pair
	Test  []net.Sample
}

// Load reads the MNIST training images and labels from dir. The first
// TrainCount images become training pairs and the following TestCount
// become test samples. Both plain and .gz files are accepted.
func Load(dir string, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()

	imagesPath := resolve(dir, trainImagesFile)
	rc, err := Open(imagesPath)
	if err != nil {
		return nil, err
	}
	images, err := ReadImages(rc)
	rc.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", imagesPath)
	}

	labelsPath := resolve(dir, trainLabelsFile)
	rc, err = Open(labelsPath)
	if err != nil {
		return nil, err
	}
	labels, err := ReadLabels(rc)
	rc.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", labelsPath)
	}

	return Build(images, labels, opts)
}

// Build pairs decoded images with their labels and splits them.
func Build(images [][]float64, labels []byte, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()

	if len(images) != len(labels) {
		return nil, errors.Errorf("got %d images but %d labels", len(images), len(labels))
	}
	need := opts.TrainCount + opts.TestCount
	if len(images) < need {
		return nil, errors.Errorf("need %d examples for a %d/%d split, have %d",
			need, opts.TrainCount, opts.TestCount, len(images))
	}

	ds := &Dataset{
		Train: make([]net.Pair, opts.TrainCount),
		Test:  make([]net.Sample, opts.TestCount),
	}
	for i := range ds.Train {
		target, err := net.OneHot(int(labels[i]), Classes)
		if err != nil {
			return nil, errors.Wrapf(err, "example %d", i)
		}
		ds.Train[i] = net.Pair{Input: images[i], Target: target}
	}
	for i := range ds.Test {
		j := opts.TrainCount + i
		if int(labels[j]) >= Classes {
			return nil, errors.Errorf("example %d: label %d out of range", j, labels[j])
		}
		ds.Test[i] = net.Sample{Input: images[j], Label: int(labels[j])}
	}

	return ds, nil
}

// resolve prefers name.gz in dir and falls back to the uncompressed name.
func resolve(dir, name string) string {
	path := filepath.Join(dir, name+".gz")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(dir, name)
}
