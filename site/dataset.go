package site

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/rodneyosodo/starfish/pkg/errors"
)

// DataSource loads a site's local dataset: a feature matrix and a
// continuous outcome vector of equal length.
type DataSource interface {
	Load(ctx context.Context) (x [][]float64, y []float64, err error)
}

// CSVSource reads a dataset from a CSV file whose last column is the
// outcome. A non-numeric first row is treated as a header and skipped.
type CSVSource struct {
	Path string
}

func (s CSVSource) Load(_ context.Context) ([][]float64, []float64, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset %s: %w", s.Path, errors.ErrDataUnavailable)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse dataset %s: %w", s.Path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("dataset %s: %w", s.Path, errors.ErrDataUnavailable)
	}

	start := 0
	if _, err := strconv.ParseFloat(records[0][len(records[0])-1], 64); err != nil {
		start = 1
	}

	var x [][]float64
	var y []float64
	for _, record := range records[start:] {
		if len(record) < 2 {
			return nil, nil, fmt.Errorf("dataset row with %d columns: %w", len(record), errors.ErrInvalidData)
		}
		row := make([]float64, len(record)-1)
		for j, field := range record[:len(record)-1] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to parse dataset value %q: %w", field, err)
			}
			row[j] = v
		}
		outcome, err := strconv.ParseFloat(record[len(record)-1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse outcome %q: %w", record[len(record)-1], err)
		}
		x = append(x, row)
		y = append(y, outcome)
	}

	return x, y, nil
}

// SliceSource serves an in-memory dataset, used by tests and embedders.
type SliceSource struct {
	X [][]float64
	Y []float64
}

func (s SliceSource) Load(_ context.Context) ([][]float64, []float64, error) {
	return s.X, s.Y, nil
}

// splitTrainTest partitions rows deterministically: a seeded shuffle
// followed by an 80/20 cut, so every round of a run sees the same split.
func splitTrainTest(x [][]float64, y []float64, testFraction float64, seed int64) (xTrain, xTest [][]float64, yTrain, yTest []float64) {
	n := len(y)
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	nTest := int(float64(n) * testFraction)
	if nTest == 0 && n > 1 {
		nTest = 1
	}

	for i, idx := range perm {
		if i < nTest {
			xTest = append(xTest, x[idx])
			yTest = append(yTest, y[idx])
		} else {
			xTrain = append(xTrain, x[idx])
			yTrain = append(yTrain, y[idx])
		}
	}

	return xTrain, xTest, yTrain, yTest
}
