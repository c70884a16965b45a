package linear_model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/metrics"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// maxDLoss bounds the squared-loss gradient like scikit-learn's plain SGD.
const maxDLoss = 1e12

// SGDRegressor fits a linear model with squared loss by stochastic gradient
// descent. Compatible with scikit-learn's SGDRegressor for the options it
// exposes.
type SGDRegressor struct {
	model.BaseEstimator

	// Hyperparameters
	penalty            string  // "l2", "l1", "elasticnet"
	alpha              float64 // Regularization strength
	l1Ratio            float64 // Elastic net mixing, 0 = l2, 1 = l1
	learningRate       string  // "constant", "invscaling"
	eta0               float64 // Initial learning rate
	powerT             float64 // Exponent for invscaling
	maxIter            int     // Maximum number of epochs
	tol                float64 // Stopping tolerance; negative disables it
	earlyStopping      bool    // Hold out a validation fraction and stop on its score
	validationFraction float64 // Share of training rows held out when early stopping
	nIterNoChange      int     // Epochs without improvement before stopping
	fitIntercept       bool    // Whether to fit intercept
	shuffle            bool    // Shuffle rows every epoch
	randomState        uint64  // Seed for shuffling and the validation split

	// Model parameters
	coef_      []float64
	intercept_ float64
	nIter_     int
	t_         int
	nFeatures_ int

	mu sync.RWMutex
}

// SGDRegressorOption is a functional option for SGDRegressor.
type SGDRegressorOption func(*SGDRegressor)

// NewSGDRegressor creates an SGDRegressor with scikit-learn's defaults.
func NewSGDRegressor(opts ...SGDRegressorOption) *SGDRegressor {
	r := &SGDRegressor{
		penalty:            "l2",
		alpha:              1e-4,
		l1Ratio:            0.15,
		learningRate:       "invscaling",
		eta0:               0.01,
		powerT:             0.25,
		maxIter:            1000,
		tol:                1e-3,
		validationFraction: 0.1,
		nIterNoChange:      5,
		fitIntercept:       true,
		shuffle:            true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithSGDPenalty sets the regularization type.
func WithSGDPenalty(penalty string) SGDRegressorOption {
	return func(r *SGDRegressor) { r.penalty = penalty }
}

// WithSGDAlpha sets the regularization strength.
func WithSGDAlpha(alpha float64) SGDRegressorOption {
	return func(r *SGDRegressor) { r.alpha = alpha }
}

// WithSGDL1Ratio sets the elastic net mixing parameter.
func WithSGDL1Ratio(ratio float64) SGDRegressorOption {
	return func(r *SGDRegressor) { r.l1Ratio = ratio }
}

// WithSGDLearningRate sets the learning rate schedule.
func WithSGDLearningRate(schedule string) SGDRegressorOption {
	return func(r *SGDRegressor) { r.learningRate = schedule }
}

// WithSGDEta0 sets the initial learning rate.
func WithSGDEta0(eta0 float64) SGDRegressorOption {
	return func(r *SGDRegressor) { r.eta0 = eta0 }
}

// WithSGDMaxIter sets the maximum number of epochs.
func WithSGDMaxIter(maxIter int) SGDRegressorOption {
	return func(r *SGDRegressor) { r.maxIter = maxIter }
}

// WithSGDTol sets the stopping tolerance.
func WithSGDTol(tol float64) SGDRegressorOption {
	return func(r *SGDRegressor) { r.tol = tol }
}

// WithSGDEarlyStopping enables stopping on a held-out validation score.
func WithSGDEarlyStopping(enabled bool) SGDRegressorOption {
	return func(r *SGDRegressor) { r.earlyStopping = enabled }
}

// WithSGDRandomState sets the seed.
func WithSGDRandomState(seed uint64) SGDRegressorOption {
	return func(r *SGDRegressor) { r.randomState = seed }
}

func (r *SGDRegressor) validate() error {
	switch r.penalty {
	case "l2", "l1", "elasticnet":
	default:
		return errors.NewValidationError("penalty", "must be l2, l1 or elasticnet", r.penalty)
	}
	switch r.learningRate {
	case "constant", "invscaling":
	default:
		return errors.NewValidationError("learning_rate", "must be constant or invscaling", r.learningRate)
	}
	if r.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.alpha)
	}
	if r.l1Ratio < 0 || r.l1Ratio > 1 {
		return errors.NewValidationError("l1_ratio", "must be in [0, 1]", r.l1Ratio)
	}
	if r.eta0 <= 0 {
		return errors.NewValidationError("eta0", "must be positive", r.eta0)
	}
	if r.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be at least 1", r.maxIter)
	}
	if r.earlyStopping && (r.validationFraction <= 0 || r.validationFraction >= 1) {
		return errors.NewValidationError("validation_fraction", "must be in (0, 1)", r.validationFraction)
	}
	return nil
}

// Fit trains the model. y is an n×1 matrix or a vector.
func (r *SGDRegressor) Fit(X, y mat.Matrix) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validate(); err != nil {
		return err
	}
	if y == nil {
		return errors.NewValueError("SGDRegressor.Fit", "target is required")
	}
	nSamples, nFeatures := X.Dims()
	if yRows, _ := y.Dims(); yRows != nSamples {
		return errors.NewDimensionError("SGDRegressor.Fit", nSamples, yRows, 0)
	}
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("SGDRegressor.Fit", "empty data", errors.ErrEmptyData)
	}

	rows := make([][]float64, nSamples)
	targets := make([]float64, nSamples)
	for i := range rows {
		rows[i] = mat.Row(nil, i, X)
		targets[i] = y.At(i, 0)
	}

	rng := rand.New(rand.NewPCG(r.randomState, r.randomState))
	train := make([]int, nSamples)
	for i := range train {
		train[i] = i
	}
	var valid []int
	if r.earlyStopping {
		perm := rng.Perm(nSamples)
		nValid := int(math.Ceil(r.validationFraction * float64(nSamples)))
		if nValid < 1 || nSamples-nValid < 1 {
			return errors.NewInsufficientDataError("SGDRegressor.Fit", 2, nSamples,
				"early stopping needs rows on both sides of the validation split")
		}
		valid, train = perm[:nValid], perm[nValid:]
	}

	r.coef_ = make([]float64, nFeatures)
	r.intercept_ = 0
	r.nFeatures_ = nFeatures
	r.t_ = 1
	r.nIter_ = 0

	best := math.Inf(1) // 損失（小さいほど良い）
	noImprovement := 0
	converged := false
	threshold := r.tol
	if !r.earlyStopping {
		// 学習損失の総和で比較するため tol もサンプル数倍する
		threshold = r.tol * float64(len(train))
	}

	for epoch := 0; epoch < r.maxIter; epoch++ {
		if r.shuffle {
			rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
		}
		sumLoss := 0.0
		for _, i := range train {
			sumLoss += r.step(rows[i], targets[i])
		}
		r.nIter_++

		if err := errors.CheckNumericalStability("SGDRegressor.Fit", r.coef_, epoch); err != nil {
			return err
		}
		if err := errors.CheckScalar("SGDRegressor.Fit", r.intercept_, epoch); err != nil {
			return err
		}

		loss := sumLoss
		if r.earlyStopping {
			loss = r.meanSquaredError(rows, targets, valid)
		}
		if r.tol >= 0 && loss > best-threshold {
			noImprovement++
		} else {
			noImprovement = 0
		}
		if loss < best {
			best = loss
		}
		if noImprovement >= r.nIterNoChange {
			converged = true
			break
		}
	}

	if !converged && r.tol >= 0 {
		errors.Warn(errors.NewConvergenceWarning("SGDRegressor", r.nIter_,
			"Maximum number of iteration reached before convergence. Consider increasing max_iter."))
	}

	r.SetFitted()
	return nil
}

// step applies one SGD update and returns the squared loss before it.
func (r *SGDRegressor) step(x []float64, y float64) float64 {
	eta := r.eta0
	if r.learningRate == "invscaling" {
		eta = r.eta0 / math.Pow(float64(r.t_), r.powerT)
	}

	p := floats.Dot(r.coef_, x) + r.intercept_
	dloss := errors.ClipValue(p-y, -maxDLoss, maxDLoss)

	l1 := 0.0
	switch r.penalty {
	case "l1":
		l1 = 1
	case "elasticnet":
		l1 = r.l1Ratio
	}

	if l1 < 1 {
		floats.Scale(1-(1-l1)*eta*r.alpha, r.coef_)
	}
	floats.AddScaled(r.coef_, -eta*dloss, x)
	if r.fitIntercept {
		r.intercept_ -= eta * dloss
	}
	if l1 > 0 {
		// 軟閾値処理による L1 の近接更新
		shrink := eta * r.alpha * l1
		for j, w := range r.coef_ {
			r.coef_[j] = math.Copysign(math.Max(0, math.Abs(w)-shrink), w)
		}
	}

	r.t_++
	return 0.5 * (p - y) * (p - y)
}

func (r *SGDRegressor) meanSquaredError(rows [][]float64, targets []float64, idx []int) float64 {
	sum := 0.0
	for _, i := range idx {
		d := floats.Dot(r.coef_, rows[i]) + r.intercept_ - targets[i]
		sum += d * d
	}
	return sum / float64(len(idx))
}

// Predict returns the n×1 predictions.
func (r *SGDRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.CheckFitted("SGDRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != r.nFeatures_ {
		return nil, errors.NewDimensionError("SGDRegressor.Predict", r.nFeatures_, cols, 1)
	}
	if rows == 0 {
		return nil, errors.NewModelError("SGDRegressor.Predict", "empty data", errors.ErrEmptyData)
	}

	out := mat.NewVecDense(rows, nil)
	out.MulVec(X, mat.NewVecDense(cols, r.coef_))
	for i := 0; i < rows; i++ {
		out.SetVec(i, out.AtVec(i)+r.intercept_)
	}
	return out, nil
}

// Score returns the coefficient of determination R² on (X, y).
func (r *SGDRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := y.Dims()
	truth := mat.NewVecDense(n, mat.Col(nil, 0, y))
	return metrics.R2Score(truth, pred.(*mat.VecDense))
}

// Coef returns the 1×n_features coefficients.
func (r *SGDRegressor) Coef() *mat.Dense {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.coef_ == nil {
		return nil
	}
	return mat.NewDense(1, len(r.coef_), append([]float64(nil), r.coef_...))
}

// Intercept returns the fitted intercept.
func (r *SGDRegressor) Intercept() []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return []float64{r.intercept_}
}

// NIter returns the number of epochs run by the last Fit.
func (r *SGDRegressor) NIter() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nIter_
}

// GetParams returns the hyperparameters.
func (r *SGDRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":             r.penalty,
		"alpha":               r.alpha,
		"l1_ratio":            r.l1Ratio,
		"learning_rate":       r.learningRate,
		"eta0":                r.eta0,
		"power_t":             r.powerT,
		"max_iter":            r.maxIter,
		"tol":                 r.tol,
		"early_stopping":      r.earlyStopping,
		"validation_fraction": r.validationFraction,
		"n_iter_no_change":    r.nIterNoChange,
		"fit_intercept":       r.fitIntercept,
		"random_state":        r.randomState,
	}
}

func (r *SGDRegressor) String() string {
	return fmt.Sprintf("SGDRegressor(penalty=%s, alpha=%g, l1_ratio=%g, learning_rate=%s, eta0=%g, max_iter=%d, tol=%g)",
		r.penalty, r.alpha, r.l1Ratio, r.learningRate, r.eta0, r.maxIter, r.tol)
}
