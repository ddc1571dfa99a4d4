package payload_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rodneyosodo/starfish/payload"
	"github.com/rodneyosodo/starfish/pkg/errors"
)

func validLinear() payload.LinearStats {
	return payload.LinearStats{
		SampleSize:    10,
		Coef:          []float64{1.0, 0.5},
		StdErr:        []float64{0.2, 0.1},
		TValues:       []float64{5.0, 5.0},
		PValues:       []float64{0.01, 0.01},
		ConfIntLower:  []float64{0.6, 0.3},
		ConfIntUpper:  []float64{1.4, 0.7},
		DFModel:       1,
		DFResidual:    8,
		NGroupColumns: 1,
	}
}

func TestLinearStatsValidate(t *testing.T) {
	cases := []struct {
		desc   string
		mutate func(*payload.LinearStats)
		err    error
	}{
		{
			desc:   "valid payload",
			mutate: func(*payload.LinearStats) {},
		},
		{
			desc:   "zero sample size",
			mutate: func(s *payload.LinearStats) { s.SampleSize = 0 },
			err:    errors.ErrInvalidData,
		},
		{
			desc:   "empty coefficients",
			mutate: func(s *payload.LinearStats) { s.Coef = nil },
			err:    errors.ErrInvalidData,
		},
		{
			desc:   "vector length mismatch",
			mutate: func(s *payload.LinearStats) { s.PValues = []float64{0.01} },
			err:    errors.ErrShapeMismatch,
		},
		{
			desc:   "negative standard error",
			mutate: func(s *payload.LinearStats) { s.StdErr[0] = -0.1 },
			err:    errors.ErrInvalidData,
		},
		{
			desc:   "non-finite statistic",
			mutate: func(s *payload.LinearStats) { s.FStatistic = math.Inf(1) },
			err:    errors.ErrInvalidData,
		},
		{
			desc:   "non-finite coefficient",
			mutate: func(s *payload.LinearStats) { s.Coef[1] = math.NaN() },
			err:    errors.ErrInvalidData,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			s := validLinear()
			tc.mutate(&s)
			err := s.Validate()
			if tc.err == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestKernelStatsValidate(t *testing.T) {
	cases := []struct {
		desc string
		s    payload.KernelStats
		err  error
	}{
		{
			desc: "valid payload",
			s: payload.KernelStats{
				SampleSize: 10,
				DualCoef:   [][]float64{{0.5, -0.5}},
				Intercept:  1.0,
			},
		},
		{
			desc: "zero sample size",
			s:    payload.KernelStats{DualCoef: [][]float64{{0.5}}},
			err:  errors.ErrInvalidData,
		},
		{
			desc: "empty dual coefficients",
			s:    payload.KernelStats{SampleSize: 10},
			err:  errors.ErrInvalidData,
		},
		{
			desc: "ragged dual coefficients",
			s: payload.KernelStats{
				SampleSize: 10,
				DualCoef:   [][]float64{{0.5, 0.5}, {0.5}},
			},
			err: errors.ErrShapeMismatch,
		},
		{
			desc: "non-finite intercept",
			s: payload.KernelStats{
				SampleSize: 10,
				DualCoef:   [][]float64{{0.5}},
				Intercept:  math.NaN(),
			},
			err: errors.ErrInvalidData,
		},
		{
			desc: "support vectors with dual coefficients",
			s: payload.KernelStats{
				SampleSize:     10,
				SupportVectors: [][]float64{{1.0, 2.0}, {3.0, 4.0}},
				DualCoef:       [][]float64{{0.5, -0.5}},
			},
		},
		{
			desc: "support vector count off dual coefficients",
			s: payload.KernelStats{
				SampleSize:     10,
				SupportVectors: [][]float64{{1.0, 2.0}},
				DualCoef:       [][]float64{{0.5, -0.5}},
			},
			err: errors.ErrShapeMismatch,
		},
		{
			desc: "ragged support vectors",
			s: payload.KernelStats{
				SampleSize:     10,
				SupportVectors: [][]float64{{1.0, 2.0}, {3.0}},
				DualCoef:       [][]float64{{0.5, -0.5}},
			},
			err: errors.ErrShapeMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.s.Validate()
			if tc.err == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
