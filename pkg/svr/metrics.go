package svr

import "math"

// Metrics holds held-out regression quality measures.
type Metrics struct {
	MSE  float64
	RMSE float64
	MAE  float64
	R2   float64
}

// Evaluate computes held-out metrics from true and predicted outcomes.
func Evaluate(yTrue, yPred []float64) Metrics {
	n := len(yTrue)
	if n == 0 || len(yPred) != n {
		return Metrics{}
	}

	var mean float64
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(n)

	var sse, sae, sst float64
	for i := range yTrue {
		e := yTrue[i] - yPred[i]
		sse += e * e
		sae += math.Abs(e)
		dev := yTrue[i] - mean
		sst += dev * dev
	}

	mse := sse / float64(n)
	r2 := 0.0
	if sst > 0 {
		r2 = 1 - sse/sst
	}

	return Metrics{
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		MAE:  sae / float64(n),
		R2:   r2,
	}
}
