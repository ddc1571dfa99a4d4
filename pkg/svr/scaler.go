package svr

import "math"

// Scaler standardizes features to zero mean and unit variance. Statistics
// are fit on the training partition only and applied identically to the
// held-out partition.
type Scaler struct {
	mean []float64
	std  []float64
}

func FitScaler(x [][]float64) *Scaler {
	if len(x) == 0 {
		return &Scaler{}
	}
	d := len(x[0])
	mean := make([]float64, d)
	std := make([]float64, d)

	for _, row := range x {
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(x))
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			dev := v - mean[j]
			std[j] += dev * dev
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		// Zero-variance features pass through unscaled.
		if std[j] == 0 {
			std[j] = 1
		}
	}

	return &Scaler{mean: mean, std: std}
}

func (s *Scaler) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.mean[j]) / s.std[j]
		}
		out[i] = scaled
	}

	return out
}
