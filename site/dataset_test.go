package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodneyosodo/starfish/pkg/errors"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestCSVSourceLoad(t *testing.T) {
	cases := []struct {
		desc    string
		content string
		rows    int
		err     error
	}{
		{
			desc:    "with header",
			content: "group,age,outcome\n0,34,1.2\n1,29,3.4\n",
			rows:    2,
		},
		{
			desc:    "without header",
			content: "0,34,1.2\n1,29,3.4\n0,41,2.1\n",
			rows:    3,
		},
		{
			desc:    "empty file",
			content: "",
			err:     errors.ErrDataUnavailable,
		},
		{
			desc:    "single column row",
			content: "1.2\n",
			err:     errors.ErrInvalidData,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			source := CSVSource{Path: writeCSV(t, tc.content)}
			x, y, err := source.Load(context.Background())
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Len(t, x, tc.rows)
			assert.Len(t, y, tc.rows)
			assert.Len(t, x[0], 2)
		})
	}
}

func TestCSVSourceMissingFile(t *testing.T) {
	source := CSVSource{Path: filepath.Join(t.TempDir(), "missing.csv")}
	_, _, err := source.Load(context.Background())
	assert.ErrorIs(t, err, errors.ErrDataUnavailable)
}

func TestSplitTrainTest(t *testing.T) {
	n := 50
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range y {
		x[i] = []float64{float64(i)}
		y[i] = float64(i)
	}

	xTrain, xTest, yTrain, yTest := splitTrainTest(x, y, 0.2, 42)

	assert.Len(t, yTest, 10)
	assert.Len(t, yTrain, 40)
	assert.Len(t, xTest, 10)
	assert.Len(t, xTrain, 40)

	// Partition: every row lands on exactly one side.
	seen := make(map[float64]bool, n)
	for _, v := range append(append([]float64{}, yTrain...), yTest...) {
		assert.False(t, seen[v])
		seen[v] = true
	}
	assert.Len(t, seen, n)

	// Same seed, same split.
	_, _, yTrain2, yTest2 := splitTrainTest(x, y, 0.2, 42)
	assert.Equal(t, yTrain, yTrain2)
	assert.Equal(t, yTest, yTest2)
}

func TestSplitTrainTestSmall(t *testing.T) {
	x := [][]float64{{1}, {2}}
	y := []float64{1, 2}

	// Two rows still yield a non-empty held-out partition.
	_, _, yTrain, yTest := splitTrainTest(x, y, 0.2, 42)
	assert.Len(t, yTrain, 1)
	assert.Len(t, yTest, 1)

	_, _, yTrain, yTest = splitTrainTest([][]float64{{1}}, []float64{1}, 0.2, 42)
	assert.Len(t, yTrain, 1)
	assert.Empty(t, yTest)
}
