package aggregate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rodneyosodo/starfish/payload"
	"github.com/rodneyosodo/starfish/pkg/artifact"
	"github.com/rodneyosodo/starfish/pkg/errors"
)

// ciZ is the normal critical value for the 95% pooled confidence interval.
const ciZ = 1.96

type linearEngine struct{}

func (linearEngine) Aggregate(blobs [][]byte) ([]byte, error) {
	locals, err := decodeAll[payload.LinearStats](blobs)
	if err != nil {
		return nil, err
	}

	global, err := Linear(locals)
	if err != nil {
		return nil, err
	}

	return artifact.EncodeLines(global)
}

// Linear pools site estimates by inverse-variance-weighted meta-analysis.
// Coefficients are pooled independently per index; sums of squares and
// residual degrees of freedom are additive over disjoint samples; df_model
// is structural and must agree across sites.
func Linear(locals []payload.LinearStats) (payload.LinearGlobal, error) {
	if len(locals) == 0 {
		return payload.LinearGlobal{}, errors.ErrNoPayloads
	}

	nCoef := len(locals[0].Coef)
	dfModel := locals[0].DFModel
	for i, l := range locals {
		if err := l.Validate(); err != nil {
			return payload.LinearGlobal{}, fmt.Errorf("payload %d: %w", i, err)
		}
		if len(l.Coef) != nCoef {
			return payload.LinearGlobal{}, fmt.Errorf("payload %d has %d coefficients, want %d: %w",
				i, len(l.Coef), nCoef, errors.ErrShapeMismatch)
		}
		if l.DFModel != dfModel {
			return payload.LinearGlobal{}, fmt.Errorf("payload %d has df_model %v, want %v: %w",
				i, l.DFModel, dfModel, errors.ErrShapeMismatch)
		}
	}

	var totalSampleSize int
	for _, l := range locals {
		totalSampleSize += l.SampleSize
	}

	norm := distuv.UnitNormal

	coef := make([]float64, nCoef)
	stdErr := make([]float64, nCoef)
	zValues := make([]float64, nCoef)
	pValues := make([]float64, nCoef)
	ciLower := make([]float64, nCoef)
	ciUpper := make([]float64, nCoef)

	for i := 0; i < nCoef; i++ {
		var totalWeight, weightedSum, plainSum float64
		for _, l := range locals {
			se := l.StdErr[i]
			var w float64
			if se > 0 {
				w = 1 / (se * se)
			}
			totalWeight += w
			weightedSum += l.Coef[i] * w
			plainSum += l.Coef[i]
		}

		if totalWeight > 0 {
			coef[i] = weightedSum / totalWeight
			stdErr[i] = math.Sqrt(1 / totalWeight)
			zValues[i] = coef[i] / stdErr[i]
			pValues[i] = 2 * (1 - norm.CDF(math.Abs(zValues[i])))
			ciLower[i] = coef[i] - ciZ*stdErr[i]
			ciUpper[i] = coef[i] + ciZ*stdErr[i]
		} else {
			// No site reported a usable variance: fall back to the
			// unweighted mean with a degenerate interval.
			coef[i] = plainSum / float64(len(locals))
			stdErr[i] = 0
			zValues[i] = 0
			pValues[i] = 1
			ciLower[i] = coef[i]
			ciUpper[i] = coef[i]
		}
	}

	var ssModel, ssResidual, dfResidual float64
	for _, l := range locals {
		ssModel += l.SSModel
		ssResidual += l.SSResidual
		dfResidual += l.DFResidual
	}
	ssTotal := ssModel + ssResidual

	var fStat float64
	fPValue := 1.0
	if dfModel > 0 && dfResidual > 0 && ssResidual > 0 {
		fStat = (ssModel / dfModel) / (ssResidual / dfResidual)
		fDist := distuv.F{D1: dfModel, D2: dfResidual}
		fPValue = 1 - fDist.CDF(fStat)
	}

	var rSquared float64
	if ssTotal > 0 {
		rSquared = ssModel / ssTotal
	}
	adjRSquared := rSquared
	if denom := float64(totalSampleSize) - dfModel - 1; denom > 0 {
		adjRSquared = 1 - (1-rSquared)*float64(totalSampleSize-1)/denom
	}

	var partialEta float64
	if totalSampleSize > 0 {
		for _, l := range locals {
			partialEta += l.PartialEtaSquared * float64(l.SampleSize)
		}
		partialEta /= float64(totalSampleSize)
	}

	return payload.LinearGlobal{
		TotalSampleSize:   totalSampleSize,
		NSites:            len(locals),
		Coef:              coef,
		StdErr:            stdErr,
		ZValues:           zValues,
		PValues:           pValues,
		ConfIntLower:      ciLower,
		ConfIntUpper:      ciUpper,
		RSquared:          rSquared,
		AdjRSquared:       adjRSquared,
		FStatistic:        fStat,
		FPValue:           fPValue,
		SSModel:           ssModel,
		SSResidual:        ssResidual,
		SSTotal:           ssTotal,
		DFModel:           dfModel,
		DFResidual:        dfResidual,
		PartialEtaSquared: partialEta,
	}, nil
}

func decodeAll[T any](blobs [][]byte) ([]T, error) {
	var out []T
	for _, blob := range blobs {
		lines, err := artifact.DecodeLines[T](blob)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	if len(out) == 0 {
		return nil, errors.ErrNoPayloads
	}

	return out, nil
}
