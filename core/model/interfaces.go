package model

import "gonum.org/v1/gonum/mat"

// Regressor is a scored estimator with a continuous target.
type Regressor interface {
	Estimator
	Scorer
}

// Classifier is a scored estimator over float-coded class labels.
type Classifier interface {
	Estimator
	Scorer

	// DecisionFunction returns one column of signed margins per class.
	DecisionFunction(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted class labels seen during fitting.
	Classes() []float64
}

// Clusterer is a scored estimator that keeps the training assignment.
type Clusterer interface {
	Estimator
	Scorer

	// Labels returns the cluster of each training row.
	Labels() []int

	// Inertia returns the sum of squared distances to the closest centroid.
	Inertia() float64
}

// ParameterGetter exposes hyperparameters under their sklearn names.
// Pipeline.GetParams prefixes them with "<step>__".
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
