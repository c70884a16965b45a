package model_selection

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/metrics"
)

// AsVector views the first column of m as a vector without copying when m
// already is one.
func AsVector(m mat.Matrix) mat.Vector {
	if v, ok := m.(mat.Vector); ok {
		return v
	}
	r, _ := m.Dims()
	return mat.NewVecDense(r, mat.Col(nil, 0, m))
}

// NegMSEScorer scores regressors by negated mean squared error.
func NegMSEScorer(est model.Estimator, X, y mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return math.NaN(), err
	}
	mse, err := metrics.MSE(AsVector(y), AsVector(pred))
	if err != nil {
		return math.NaN(), err
	}
	return -mse, nil
}

// AccuracyScorer scores classifiers by accuracy.
func AccuracyScorer(est model.Estimator, X, y mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return math.NaN(), err
	}
	return metrics.AccuracyScore(AsVector(y), AsVector(pred))
}

// SilhouetteScorer scores clusterers by the silhouette of the held-out rows
// under the predicted assignment. y is ignored. Partitions the silhouette is
// undefined for (one cluster, or every row its own cluster) score NaN.
func SilhouetteScorer(est model.Estimator, X, _ mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return math.NaN(), err
	}
	v := AsVector(pred)
	labels := make([]int, v.Len())
	for i := range labels {
		labels[i] = int(v.AtVec(i))
	}
	score, err := metrics.SilhouetteScore(X, labels)
	if err != nil {
		return math.NaN(), nil
	}
	return score, nil
}
