// Package model holds the estimator contracts shared by preprocessing, the
// sklearn-style models and the pipeline.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデル。教師なしモデルは y に nil を受け取る。
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor は n×1 の予測を返す
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is implemented by models with a built-in score; higher is better.
// Regressors return R², classifiers accuracy, k-means negative inertia.
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// Estimator is what GridSearchCV and Pipeline fit and predict with.
type Estimator interface {
	Fitter
	Predictor
}

// Transformer は Pipeline の前段。Fit は学習行だけで行い、同じ変換を
// 検証行にも適用する。
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// LinearModel exposes fitted weights. Multiclass models return one row per
// class.
type LinearModel interface {
	Coef() *mat.Dense
	Intercept() []float64
}
