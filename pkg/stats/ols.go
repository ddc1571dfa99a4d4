// Package stats implements the covariate-adjusted linear model fit and its
// derived inference statistics. The design matrix convention follows the
// payload contract: index 0 is the intercept, indices 1..n_group_columns are
// the dummy-coded group indicators, and the remaining indices are continuous
// covariates.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rodneyosodo/starfish/payload"
	"github.com/rodneyosodo/starfish/pkg/errors"
)

const ciLevel = 0.95

// OLSResult holds an ordinary least squares fit with inference statistics.
type OLSResult struct {
	N int // observations
	P int // fitted parameters including the intercept

	Coef         []float64
	StdErr       []float64
	TValues      []float64
	PValues      []float64
	ConfIntLower []float64
	ConfIntUpper []float64

	RSquared    float64
	AdjRSquared float64
	FStatistic  float64
	FPValue     float64

	SSModel    float64
	SSResidual float64
	SSTotal    float64
	DFModel    float64
	DFResidual float64
}

// FitOLS fits y on x by least squares with an intercept column prepended.
// Requires more observations than parameters; a rank-deficient design matrix
// surfaces as ErrFitFailure.
func FitOLS(x [][]float64, y []float64) (*OLSResult, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, fmt.Errorf("design matrix has %d rows for %d outcomes: %w", len(x), n, errors.ErrDataUnavailable)
	}
	d := len(x[0])
	p := d + 1
	if n <= p {
		return nil, fmt.Errorf("%d observations for %d parameters: %w", n, p, errors.ErrFitFailure)
	}

	design := mat.NewDense(n, p, nil)
	for i, row := range x {
		if len(row) != d {
			return nil, fmt.Errorf("ragged design matrix row %d: %w", i, errors.ErrFitFailure)
		}
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}
	outcome := mat.NewVecDense(n, y)

	var qr mat.QR
	qr.Factorize(design)
	beta := mat.NewDense(p, 1, nil)
	if err := qr.SolveTo(beta, false, outcome); err != nil {
		return nil, fmt.Errorf("singular design matrix: %w", errors.ErrFitFailure)
	}

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = beta.At(j, 0)
	}

	// Residuals and sums of squares about the mean.
	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	var ssResidual, ssTotal float64
	for i := 0; i < n; i++ {
		fitted := coef[0]
		for j := 0; j < d; j++ {
			fitted += coef[j+1] * x[i][j]
		}
		e := y[i] - fitted
		ssResidual += e * e
		dev := y[i] - yMean
		ssTotal += dev * dev
	}
	ssModel := ssTotal - ssResidual
	if ssModel < 0 {
		ssModel = 0
	}

	dfResidual := float64(n - p)
	dfModel := float64(p - 1)
	sigma2 := ssResidual / dfResidual

	// Standard errors from the residual-variance-scaled inverse information
	// matrix diagonal.
	var xtx, inv mat.Dense
	xtx.Mul(design.T(), design)
	if err := inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("singular information matrix: %w", errors.ErrFitFailure)
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dfResidual}
	tCrit := tDist.Quantile(0.5 + ciLevel/2)

	stdErr := make([]float64, p)
	tValues := make([]float64, p)
	pValues := make([]float64, p)
	ciLower := make([]float64, p)
	ciUpper := make([]float64, p)
	for j := 0; j < p; j++ {
		v := sigma2 * inv.At(j, j)
		if v < 0 {
			v = 0
		}
		stdErr[j] = math.Sqrt(v)
		if stdErr[j] > 0 {
			tValues[j] = coef[j] / stdErr[j]
			pValues[j] = 2 * (1 - tDist.CDF(math.Abs(tValues[j])))
		} else {
			tValues[j] = 0
			pValues[j] = 1
		}
		ciLower[j] = coef[j] - tCrit*stdErr[j]
		ciUpper[j] = coef[j] + tCrit*stdErr[j]
	}

	var rSquared float64
	if ssTotal > 0 {
		rSquared = 1 - ssResidual/ssTotal
	}
	adjRSquared := rSquared
	if dfResidual > 0 {
		adjRSquared = 1 - (1-rSquared)*float64(n-1)/dfResidual
	}

	var fStat, fPValue float64
	fPValue = 1
	if dfModel > 0 && dfResidual > 0 && ssResidual > 0 {
		fStat = (ssModel / dfModel) / (ssResidual / dfResidual)
		fDist := distuv.F{D1: dfModel, D2: dfResidual}
		fPValue = 1 - fDist.CDF(fStat)
	}

	return &OLSResult{
		N:            n,
		P:            p,
		Coef:         coef,
		StdErr:       stdErr,
		TValues:      tValues,
		PValues:      pValues,
		ConfIntLower: ciLower,
		ConfIntUpper: ciUpper,
		RSquared:     rSquared,
		AdjRSquared:  adjRSquared,
		FStatistic:   fStat,
		FPValue:      fPValue,
		SSModel:      ssModel,
		SSResidual:   ssResidual,
		SSTotal:      ssTotal,
		DFModel:      dfModel,
		DFResidual:   dfResidual,
	}, nil
}

// PartialEtaSquared approximates the partial eta-squared for the group
// effect as sum(t_i^2) / (sum(t_i^2) + df_residual) over the group-indicator
// coefficient indices 1..nGroup. Returns 0 when there are no group columns
// or the indices run past the coefficient vector. Valid for
// single-degree-of-freedom effects only; it is not the exact Type-III
// partial eta-squared.
func PartialEtaSquared(tValues []float64, dfResidual float64, nGroup int) float64 {
	if nGroup <= 0 || nGroup >= len(tValues) {
		return 0
	}

	var tSquaredSum float64
	for i := 1; i <= nGroup; i++ {
		tSquaredSum += tValues[i] * tValues[i]
	}

	denom := tSquaredSum + dfResidual
	if denom <= 0 {
		return 0
	}

	return tSquaredSum / denom
}

// LinearPayload assembles the local statistics payload for a fitted linear
// model. The reported sample size is the number of training rows the fit used.
func LinearPayload(res *OLSResult, nGroupColumns int) payload.LinearStats {
	return payload.LinearStats{
		SampleSize:        res.N,
		Coef:              res.Coef,
		StdErr:            res.StdErr,
		TValues:           res.TValues,
		PValues:           res.PValues,
		ConfIntLower:      res.ConfIntLower,
		ConfIntUpper:      res.ConfIntUpper,
		RSquared:          res.RSquared,
		AdjRSquared:       res.AdjRSquared,
		FStatistic:        res.FStatistic,
		FPValue:           res.FPValue,
		SSModel:           res.SSModel,
		SSResidual:        res.SSResidual,
		SSTotal:           res.SSTotal,
		DFModel:           res.DFModel,
		DFResidual:        res.DFResidual,
		PartialEtaSquared: PartialEtaSquared(res.TValues, res.DFResidual, nGroupColumns),
		NGroupColumns:     nGroupColumns,
	}
}
