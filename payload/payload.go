// Package payload defines the statistics blobs exchanged between sites and
// the coordinator. Field names match the wire format one-to-one: a local
// payload is published by a site after its round fit, a global payload is
// published by the coordinator after aggregation.
package payload

import (
	"fmt"
	"math"

	"github.com/rodneyosodo/starfish/pkg/errors"
)

// LinearStats is the per-site output of the covariate-adjusted linear model.
type LinearStats struct {
	SampleSize        int       `json:"sample_size"`
	Coef              []float64 `json:"coef_"`
	StdErr            []float64 `json:"std_err"`
	TValues           []float64 `json:"t_values"`
	PValues           []float64 `json:"p_values"`
	ConfIntLower      []float64 `json:"conf_int_lower"`
	ConfIntUpper      []float64 `json:"conf_int_upper"`
	RSquared          float64   `json:"r_squared"`
	AdjRSquared       float64   `json:"adj_r_squared"`
	FStatistic        float64   `json:"f_statistic"`
	FPValue           float64   `json:"f_pvalue"`
	SSModel           float64   `json:"ss_model"`
	SSResidual        float64   `json:"ss_residual"`
	SSTotal           float64   `json:"ss_total"`
	DFModel           float64   `json:"df_model"`
	DFResidual        float64   `json:"df_residual"`
	PartialEtaSquared float64   `json:"partial_eta_squared"`
	NGroupColumns     int       `json:"n_group_columns"`
}

// LinearGlobal is the pooled linear-model estimate. The pooled estimate is a
// weighted sum of independent site estimates, so its null distribution is
// normal and z values replace the per-site t values.
type LinearGlobal struct {
	TotalSampleSize   int       `json:"total_sample_size"`
	NSites            int       `json:"n_sites"`
	Coef              []float64 `json:"coef_"`
	StdErr            []float64 `json:"std_err"`
	ZValues           []float64 `json:"z_values"`
	PValues           []float64 `json:"p_values"`
	ConfIntLower      []float64 `json:"conf_int_lower"`
	ConfIntUpper      []float64 `json:"conf_int_upper"`
	RSquared          float64   `json:"r_squared"`
	AdjRSquared       float64   `json:"adj_r_squared"`
	FStatistic        float64   `json:"f_statistic"`
	FPValue           float64   `json:"f_pvalue"`
	SSModel           float64   `json:"ss_model"`
	SSResidual        float64   `json:"ss_residual"`
	SSTotal           float64   `json:"ss_total"`
	DFModel           float64   `json:"df_model"`
	DFResidual        float64   `json:"df_residual"`
	PartialEtaSquared float64   `json:"partial_eta_squared"`
}

// KernelStats is the per-site output of the kernel regression model. The
// support vectors travel with the dual coefficients so the next round's
// warm-start state can be reconstructed from the pooled estimate.
type KernelStats struct {
	SampleSize     int         `json:"sample_size"`
	SupportVectors [][]float64 `json:"support_vectors_"`
	DualCoef       [][]float64 `json:"dual_coef"`
	Intercept      float64     `json:"intercept"`
	MetricMSE      float64     `json:"metric_mse"`
	MetricRMSE     float64     `json:"metric_rmse"`
	MetricMAE      float64     `json:"metric_mae"`
	MetricR2       float64     `json:"metric_r2"`
}

// KernelGlobal is the pooled kernel-model estimate.
type KernelGlobal struct {
	TotalSampleSize int         `json:"total_sample_size"`
	NSites          int         `json:"n_sites"`
	SupportVectors  [][]float64 `json:"support_vectors_"`
	DualCoef        [][]float64 `json:"dual_coef"`
	Intercept       float64     `json:"intercept"`
	MetricMSE       float64     `json:"metric_mse"`
	MetricRMSE      float64     `json:"metric_rmse"`
	MetricMAE       float64     `json:"metric_mae"`
	MetricR2        float64     `json:"metric_r2"`
}

func (s LinearStats) Validate() error {
	if s.SampleSize < 1 {
		return fmt.Errorf("sample size %d: %w", s.SampleSize, errors.ErrInvalidData)
	}
	n := len(s.Coef)
	if n == 0 {
		return fmt.Errorf("empty coefficient vector: %w", errors.ErrInvalidData)
	}
	vectors := map[string][]float64{
		"std_err":        s.StdErr,
		"t_values":       s.TValues,
		"p_values":       s.PValues,
		"conf_int_lower": s.ConfIntLower,
		"conf_int_upper": s.ConfIntUpper,
	}
	for name, v := range vectors {
		if len(v) != n {
			return fmt.Errorf("%s has %d entries, want %d: %w", name, len(v), n, errors.ErrShapeMismatch)
		}
	}
	for i, se := range s.StdErr {
		if se < 0 {
			return fmt.Errorf("negative standard error at %d: %w", i, errors.ErrInvalidData)
		}
	}
	scalars := []float64{
		s.RSquared, s.AdjRSquared, s.FStatistic, s.FPValue,
		s.SSModel, s.SSResidual, s.SSTotal, s.DFModel, s.DFResidual,
		s.PartialEtaSquared,
	}
	for _, v := range scalars {
		if err := checkFinite(v); err != nil {
			return err
		}
	}
	for _, v := range [][]float64{s.Coef, s.StdErr, s.TValues, s.PValues, s.ConfIntLower, s.ConfIntUpper} {
		for _, f := range v {
			if err := checkFinite(f); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s KernelStats) Validate() error {
	if s.SampleSize < 1 {
		return fmt.Errorf("sample size %d: %w", s.SampleSize, errors.ErrInvalidData)
	}
	if len(s.DualCoef) == 0 {
		return fmt.Errorf("empty dual coefficients: %w", errors.ErrInvalidData)
	}
	width := len(s.DualCoef[0])
	for _, row := range s.DualCoef {
		if len(row) != width {
			return fmt.Errorf("ragged dual coefficients: %w", errors.ErrShapeMismatch)
		}
		for _, f := range row {
			if err := checkFinite(f); err != nil {
				return err
			}
		}
	}
	if len(s.SupportVectors) > 0 {
		if len(s.SupportVectors) != width {
			return fmt.Errorf("%d support vectors for %d dual coefficients: %w",
				len(s.SupportVectors), width, errors.ErrShapeMismatch)
		}
		dim := len(s.SupportVectors[0])
		for _, sv := range s.SupportVectors {
			if len(sv) != dim {
				return fmt.Errorf("ragged support vectors: %w", errors.ErrShapeMismatch)
			}
			for _, f := range sv {
				if err := checkFinite(f); err != nil {
					return err
				}
			}
		}
	}
	for _, v := range []float64{s.Intercept, s.MetricMSE, s.MetricRMSE, s.MetricMAE, s.MetricR2} {
		if err := checkFinite(v); err != nil {
			return err
		}
	}

	return nil
}

func checkFinite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("non-finite statistic %v: %w", v, errors.ErrInvalidData)
	}

	return nil
}
