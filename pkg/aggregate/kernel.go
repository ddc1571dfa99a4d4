package aggregate

import (
	"fmt"
	"math"

	"github.com/rodneyosodo/starfish/payload"
	"github.com/rodneyosodo/starfish/pkg/artifact"
	"github.com/rodneyosodo/starfish/pkg/errors"
)

type kernelEngine struct{}

func (kernelEngine) Aggregate(blobs [][]byte) ([]byte, error) {
	locals, err := decodeAll[payload.KernelStats](blobs)
	if err != nil {
		return nil, err
	}

	global, err := Kernel(locals)
	if err != nil {
		return nil, err
	}

	return artifact.EncodeLines(global)
}

// Kernel pools kernel-model parameters by sample-size-weighted averaging.
// All usable payloads must report dual-coefficient matrices of identical
// shape. Payloads without a usable dual-coefficient/intercept pair are
// skipped; aggregation fails when none remain. When every usable payload
// carries support vectors they are pooled the same way, so the global
// estimate can prime the next round's fits.
func Kernel(locals []payload.KernelStats) (payload.KernelGlobal, error) {
	if len(locals) == 0 {
		return payload.KernelGlobal{}, errors.ErrNoPayloads
	}

	var usable []payload.KernelStats
	for _, l := range locals {
		if len(l.DualCoef) == 0 || l.SampleSize < 1 {
			continue
		}
		if err := l.Validate(); err != nil {
			return payload.KernelGlobal{}, err
		}
		usable = append(usable, l)
	}
	if len(usable) == 0 {
		return payload.KernelGlobal{}, fmt.Errorf("no usable dual coefficients: %w", errors.ErrNoPayloads)
	}

	rows := len(usable[0].DualCoef)
	cols := len(usable[0].DualCoef[0])
	for i, l := range usable {
		if len(l.DualCoef) != rows || len(l.DualCoef[0]) != cols {
			return payload.KernelGlobal{}, fmt.Errorf("payload %d dual coefficients %dx%d, want %dx%d: %w",
				i, len(l.DualCoef), len(l.DualCoef[0]), rows, cols, errors.ErrShapeMismatch)
		}
	}

	svDim := 0
	poolVectors := true
	for i, l := range usable {
		if len(l.SupportVectors) == 0 {
			poolVectors = false

			break
		}
		if len(l.SupportVectors) != cols {
			return payload.KernelGlobal{}, fmt.Errorf("payload %d has %d support vectors for %d dual coefficients: %w",
				i, len(l.SupportVectors), cols, errors.ErrShapeMismatch)
		}
		if i == 0 {
			svDim = len(l.SupportVectors[0])
		} else if len(l.SupportVectors[0]) != svDim {
			return payload.KernelGlobal{}, fmt.Errorf("payload %d support vector width %d, want %d: %w",
				i, len(l.SupportVectors[0]), svDim, errors.ErrShapeMismatch)
		}
	}

	var totalSampleSize int
	for _, l := range usable {
		totalSampleSize += l.SampleSize
	}

	dualCoef := make([][]float64, rows)
	for r := range dualCoef {
		dualCoef[r] = make([]float64, cols)
	}
	var vectors [][]float64
	if poolVectors {
		vectors = make([][]float64, cols)
		for r := range vectors {
			vectors[r] = make([]float64, svDim)
		}
	}
	var intercept, mse, mae, r2 float64

	for _, l := range usable {
		w := float64(l.SampleSize)
		for r := range l.DualCoef {
			for c, v := range l.DualCoef[r] {
				dualCoef[r][c] += v * w
			}
		}
		if poolVectors {
			for r := range l.SupportVectors {
				for c, v := range l.SupportVectors[r] {
					vectors[r][c] += v * w
				}
			}
		}
		intercept += l.Intercept * w
		mse += l.MetricMSE * w
		mae += l.MetricMAE * w
		r2 += l.MetricR2 * w
	}

	total := float64(totalSampleSize)
	for r := range dualCoef {
		for c := range dualCoef[r] {
			dualCoef[r][c] /= total
		}
	}
	for r := range vectors {
		for c := range vectors[r] {
			vectors[r][c] /= total
		}
	}
	intercept /= total
	mse /= total
	mae /= total
	r2 /= total

	return payload.KernelGlobal{
		TotalSampleSize: totalSampleSize,
		NSites:          len(usable),
		SupportVectors:  vectors,
		DualCoef:        dualCoef,
		Intercept:       intercept,
		MetricMSE:       mse,
		MetricRMSE:      math.Sqrt(mse),
		MetricMAE:       mae,
		MetricR2:        r2,
	}, nil
}
