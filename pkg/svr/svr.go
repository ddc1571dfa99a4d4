// Package svr implements a radial-basis-kernel support vector regressor
// fitted by coordinate descent on the dual coefficients. The model predicts
// f(x) = sum_j beta_j * K(x_j, x) + b with beta constrained to [-C, C] and
// an epsilon-insensitive loss.
package svr

import (
	"fmt"
	"math"

	"github.com/rodneyosodo/starfish/pkg/errors"
)

const (
	maxEpochs = 200
	tolerance = 1e-6
)

type Params struct {
	C       float64
	Epsilon float64
	// Gamma <= 0 selects the scale heuristic 1/(d * var(X)).
	Gamma float64
}

// WarmState carries a previous round's global estimate used to prime a fresh
// regressor. Field names match the artifact wire format.
type WarmState struct {
	SupportVectors [][]float64 `json:"support_vectors_"`
	DualCoef       [][]float64 `json:"dual_coef"`
	Intercept      float64     `json:"intercept"`
}

type SVR struct {
	params Params
	gamma  float64

	vectors  [][]float64
	beta     []float64
	b        float64
	warmBeta []float64
}

func New(p Params) *SVR {
	if p.C <= 0 {
		p.C = 1.0
	}
	if p.Epsilon <= 0 {
		p.Epsilon = 0.1
	}

	return &SVR{params: p}
}

// SetWarmStart primes the model from a previous round's global estimate.
// The state is rejected when its support vectors do not match the expected
// feature dimensionality: dual solutions from a differently-shaped fit are
// not valid initializers.
func (s *SVR) SetWarmStart(ws WarmState, dim int) error {
	if len(ws.DualCoef) == 0 || len(ws.DualCoef[0]) == 0 {
		return fmt.Errorf("warm start has no dual coefficients: %w", errors.ErrShapeMismatch)
	}
	if len(ws.SupportVectors) != len(ws.DualCoef[0]) {
		return fmt.Errorf("warm start has %d support vectors for %d dual coefficients: %w",
			len(ws.SupportVectors), len(ws.DualCoef[0]), errors.ErrShapeMismatch)
	}
	for _, sv := range ws.SupportVectors {
		if len(sv) != dim {
			return fmt.Errorf("warm start support vector width %d, want %d: %w", len(sv), dim, errors.ErrShapeMismatch)
		}
	}

	s.vectors = ws.SupportVectors
	s.beta = append([]float64(nil), ws.DualCoef[0]...)
	s.b = ws.Intercept
	s.warmBeta = append([]float64(nil), ws.DualCoef[0]...)

	return nil
}

// Fit trains the regressor on x, y. A primed warm state is used as the
// starting point of the dual optimization when its length matches the
// training set; fitting always recomputes the full solution.
func (s *SVR) Fit(x [][]float64, y []float64) error {
	n := len(y)
	if n == 0 || len(x) != n {
		return fmt.Errorf("training set has %d rows for %d outcomes: %w", len(x), n, errors.ErrDataUnavailable)
	}
	d := len(x[0])
	for i, row := range x {
		if len(row) != d {
			return fmt.Errorf("ragged feature matrix row %d: %w", i, errors.ErrFitFailure)
		}
	}

	s.gamma = s.params.Gamma
	if s.gamma <= 0 {
		s.gamma = scaleGamma(x)
	}

	kernel := make([][]float64, n)
	for i := range kernel {
		kernel[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			k := s.rbf(x[i], x[j])
			kernel[i][j] = k
			kernel[j][i] = k
		}
	}

	beta := make([]float64, n)
	if len(s.warmBeta) == n {
		copy(beta, s.warmBeta)
		for i := range beta {
			beta[i] = clamp(beta[i], -s.params.C, s.params.C)
		}
	}

	// f caches K*beta so each coordinate update is O(n).
	f := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			f[i] += kernel[i][j] * beta[j]
		}
	}

	eps := s.params.Epsilon
	for epoch := 0; epoch < maxEpochs; epoch++ {
		var maxDelta float64
		for i := 0; i < n; i++ {
			kii := kernel[i][i]
			if kii <= 0 {
				continue
			}
			r := y[i] - (f[i] - kii*beta[i])
			var nb float64
			switch {
			case r > eps:
				nb = (r - eps) / kii
			case r < -eps:
				nb = (r + eps) / kii
			default:
				nb = 0
			}
			nb = clamp(nb, -s.params.C, s.params.C)
			delta := nb - beta[i]
			if delta == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				f[j] += delta * kernel[j][i]
			}
			beta[i] = nb
			if math.Abs(delta) > maxDelta {
				maxDelta = math.Abs(delta)
			}
		}
		if maxDelta < tolerance {
			break
		}
	}

	// Intercept from the KKT conditions on margin support vectors; when
	// every coefficient sits on the box boundary or at zero, fall back to
	// the mean residual.
	var bSum float64
	var bCount int
	for i := 0; i < n; i++ {
		a := math.Abs(beta[i])
		if a > tolerance && a < s.params.C-tolerance {
			bSum += y[i] - f[i] - eps*sign(beta[i])
			bCount++
		}
	}
	if bCount == 0 {
		for i := 0; i < n; i++ {
			bSum += y[i] - f[i]
		}
		bCount = n
	}

	s.vectors = x
	s.beta = beta
	s.b = bSum / float64(bCount)
	s.warmBeta = nil

	return nil
}

// Predict evaluates the fitted model at a single point.
func (s *SVR) Predict(x []float64) float64 {
	var out float64
	for j, sv := range s.vectors {
		out += s.beta[j] * s.rbf(sv, x)
	}

	return out + s.b
}

func (s *SVR) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = s.Predict(row)
	}

	return out
}

// DualCoef returns the dual coefficients in the wire shape, one row over the
// training vectors.
func (s *SVR) DualCoef() [][]float64 {
	return [][]float64{append([]float64(nil), s.beta...)}
}

func (s *SVR) Intercept() float64 {
	return s.b
}

func (s *SVR) SupportVectors() [][]float64 {
	return s.vectors
}

func (s *SVR) rbf(a, b []float64) float64 {
	var sq float64
	for i := range a {
		d := a[i] - b[i]
		sq += d * d
	}

	return math.Exp(-s.gamma * sq)
}

func scaleGamma(x [][]float64) float64 {
	n := len(x)
	d := len(x[0])
	var mean, meanSq float64
	for _, row := range x {
		for _, v := range row {
			mean += v
			meanSq += v * v
		}
	}
	total := float64(n * d)
	mean /= total
	variance := meanSq/total - mean*mean
	if variance <= 0 {
		return 1 / float64(d)
	}

	return 1 / (float64(d) * variance)
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
