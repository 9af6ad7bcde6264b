package net

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// LoadCSV loads training pairs from a CSV file.
// labelCols specifies the indices of columns that form the target vector,
// in that order. All other columns form the input, in file order.
// hasHeader skips the first line if true.
func LoadCSV(filename string, labelCols []int, hasHeader bool) ([]Pair, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return ReadCSV(file, labelCols, hasHeader)
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(r io.Reader, labelCols []int, hasHeader bool) ([]Pair, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv")
	}

	if len(records) == 0 {
		return nil, errors.New("csv file is empty")
	}

	startRow := 0
	if hasHeader {
		startRow = 1
	}

	if len(records) <= startRow {
		return nil, errors.New("csv file has no data rows")
	}

	numCols := len(records[0])
	isLabelCol := make(map[int]bool)
	for _, col := range labelCols {
		if col < 0 || col >= numCols {
			return nil, errors.Errorf("label column %d out of range [0, %d)", col, numCols)
		}
		isLabelCol[col] = true
	}

	pairs := make([]Pair, 0, len(records)-startRow)
	for i := startRow; i < len(records); i++ {
		record := records[i]
		if len(record) != numCols {
			return nil, errors.Errorf("inconsistent number of columns at row %d", i)
		}

		input := make([]float64, 0, numCols-len(isLabelCol))
		values := make([]float64, numCols)
		for j, valStr := range record {
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse value at row %d, col %d", i, j)
			}
			values[j] = val
			if !isLabelCol[j] {
				input = append(input, val)
			}
		}

		target := make([]float64, len(labelCols))
		for k, col := range labelCols {
			target[k] = values[col]
		}

		pairs = append(pairs, Pair{Input: input, Target: target})
	}

	return pairs, nil
}

// Normalize performs per-feature min-max normalization of the pair inputs
// in place. Constant features become 0.
func Normalize(pairs []Pair) {
	if len(pairs) == 0 {
		return
	}

	numFeatures := len(pairs[0].Input)
	lo := make([]float64, numFeatures)
	hi := make([]float64, numFeatures)
	copy(lo, pairs[0].Input)
	copy(hi, pairs[0].Input)

	for _, p := range pairs {
		for i, val := range p.Input {
			if val < lo[i] {
				lo[i] = val
			}
			if val > hi[i] {
				hi[i] = val
			}
		}
	}

	for _, p := range pairs {
		for i := range p.Input {
			diff := hi[i] - lo[i]
			if diff != 0 {
				p.Input[i] = (p.Input[i] - lo[i]) / diff
			} else {
				p.Input[i] = 0
			}
		}
	}
}

// Split splits pairs into two based on the given ratio (0.0 to 1.0).
// Both results share the backing array of pairs.
func Split(pairs []Pair, ratio float64) (train, test []Pair) {
	if ratio <= 0 {
		return nil, pairs
	}
	if ratio >= 1 {
		return pairs, nil
	}

	splitIdx := int(float64(len(pairs)) * ratio)
	return pairs[:splitIdx], pairs[splitIdx:]
}
