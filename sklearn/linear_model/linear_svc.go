package linear_model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/metrics"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// LinearSVC is a linear support vector classifier, one-vs-rest for more
// than two classes. Compatible with scikit-learn's LinearSVC.
//
// penalty="l2" is solved in the dual by coordinate descent (hinge or
// squared hinge). penalty="l1" only supports squared hinge and is solved in
// the primal by accelerated proximal gradient.
type LinearSVC struct {
	model.BaseEstimator

	// Hyperparameters
	C                float64 // Inverse regularization strength
	penalty          string  // "l2", "l1"
	loss             string  // "hinge", "squared_hinge"
	tol              float64 // Stopping tolerance
	maxIter          int     // Maximum passes over the data
	fitIntercept     bool    // Whether to fit intercept
	interceptScaling float64 // Synthetic feature value used for the intercept
	randomState      uint64  // Seed for the coordinate order

	// Model parameters
	coef_      [][]float64 // One row per binary problem
	intercept_ []float64
	classes_   []float64
	nIter_     int
	nFeatures_ int

	mu sync.RWMutex
}

// LinearSVCOption is a functional option for LinearSVC.
type LinearSVCOption func(*LinearSVC)

// NewLinearSVC creates a LinearSVC with scikit-learn's defaults.
func NewLinearSVC(opts ...LinearSVCOption) *LinearSVC {
	svc := &LinearSVC{
		C:                1.0,
		penalty:          "l2",
		loss:             "squared_hinge",
		tol:              1e-4,
		maxIter:          1000,
		fitIntercept:     true,
		interceptScaling: 1.0,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithSVCC sets the inverse regularization strength.
func WithSVCC(c float64) LinearSVCOption {
	return func(s *LinearSVC) { s.C = c }
}

// WithSVCPenalty sets the regularization type.
func WithSVCPenalty(penalty string) LinearSVCOption {
	return func(s *LinearSVC) { s.penalty = penalty }
}

// WithSVCLoss sets the loss function.
func WithSVCLoss(loss string) LinearSVCOption {
	return func(s *LinearSVC) { s.loss = loss }
}

// WithSVCTol sets the stopping tolerance.
func WithSVCTol(tol float64) LinearSVCOption {
	return func(s *LinearSVC) { s.tol = tol }
}

// WithSVCMaxIter sets the maximum number of iterations.
func WithSVCMaxIter(maxIter int) LinearSVCOption {
	return func(s *LinearSVC) { s.maxIter = maxIter }
}

// WithSVCRandomState sets the seed.
func WithSVCRandomState(seed uint64) LinearSVCOption {
	return func(s *LinearSVC) { s.randomState = seed }
}

func (s *LinearSVC) validate() error {
	if s.C <= 0 {
		return errors.NewValidationError("C", "must be positive", s.C)
	}
	switch s.loss {
	case "hinge", "squared_hinge":
	default:
		return errors.NewValidationError("loss", "must be hinge or squared_hinge", s.loss)
	}
	switch s.penalty {
	case "l2":
	case "l1":
		if s.loss == "hinge" {
			return errors.NewValidationError("penalty",
				"penalty='l1' is not supported with loss='hinge'", s.penalty)
		}
	default:
		return errors.NewValidationError("penalty", "must be l1 or l2", s.penalty)
	}
	if s.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be at least 1", s.maxIter)
	}
	return nil
}

// Fit trains one binary problem per class (a single one for two classes).
func (s *LinearSVC) Fit(X, y mat.Matrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(); err != nil {
		return err
	}
	if y == nil {
		return errors.NewValueError("LinearSVC.Fit", "target is required")
	}
	nSamples, nFeatures := X.Dims()
	if yRows, _ := y.Dims(); yRows != nSamples {
		return errors.NewDimensionError("LinearSVC.Fit", nSamples, yRows, 0)
	}
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LinearSVC.Fit", "empty data", errors.ErrEmptyData)
	}

	labels := make([]float64, nSamples)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	s.classes_ = uniqueSorted(labels)
	if len(s.classes_) < 2 {
		return errors.NewInsufficientDataError("LinearSVC.Fit", 2, len(s.classes_), "distinct classes")
	}

	// 切片は値 interceptScaling の特徴量として扱う
	width := nFeatures
	if s.fitIntercept {
		width++
	}
	rows := make([][]float64, nSamples)
	for i := range rows {
		rows[i] = make([]float64, width)
		mat.Row(rows[i][:nFeatures], i, X)
		if s.fitIntercept {
			rows[i][nFeatures] = s.interceptScaling
		}
	}

	positives := s.classes_[1:]
	if len(s.classes_) > 2 {
		positives = s.classes_
	}

	s.coef_ = make([][]float64, len(positives))
	s.intercept_ = make([]float64, len(positives))
	s.nFeatures_ = nFeatures
	s.nIter_ = 0

	signs := make([]float64, nSamples)
	for k, pos := range positives {
		for i, l := range labels {
			signs[i] = -1
			if l == pos {
				signs[i] = 1
			}
		}

		var w []float64
		var iters int
		if s.penalty == "l1" {
			w, iters = s.solvePrimalL1(rows, signs)
		} else {
			w, iters = s.solveDual(rows, signs, uint64(k))
		}
		if err := errors.CheckNumericalStability("LinearSVC.Fit", w, iters); err != nil {
			return err
		}
		s.nIter_ = max(s.nIter_, iters)

		s.coef_[k] = w[:nFeatures]
		if s.fitIntercept {
			s.intercept_[k] = w[nFeatures] * s.interceptScaling
		}
	}

	if s.nIter_ >= s.maxIter {
		errors.Warn(errors.NewConvergenceWarning("LinearSVC", s.nIter_,
			"Liblinear failed to converge, increase the number of iterations."))
	}

	s.SetFitted()
	return nil
}

// solveDual runs dual coordinate descent for the l2-regularized problem.
// Returns the weights and the number of outer iterations.
func (s *LinearSVC) solveDual(rows [][]float64, signs []float64, stream uint64) ([]float64, int) {
	n := len(rows)
	w := make([]float64, len(rows[0]))
	alpha := make([]float64, n)

	upper, diag := s.C, 0.0
	if s.loss == "squared_hinge" {
		upper, diag = math.Inf(1), 1/(2*s.C)
	}
	qii := make([]float64, n)
	for i, x := range rows {
		qii[i] = floats.Dot(x, x) + diag
	}

	rng := rand.New(rand.NewPCG(s.randomState, stream))
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	iter := 0
	for iter < s.maxIter {
		iter++
		rng.Shuffle(n, func(a, b int) { order[a], order[b] = order[b], order[a] })

		pgMax, pgMin := math.Inf(-1), math.Inf(1)
		for _, i := range order {
			if qii[i] <= 0 {
				continue
			}
			g := signs[i]*floats.Dot(w, rows[i]) - 1 + diag*alpha[i]

			pg := 0.0
			switch {
			case alpha[i] == 0:
				pg = math.Min(g, 0)
			case alpha[i] == upper:
				pg = math.Max(g, 0)
			default:
				pg = g
			}
			pgMax = math.Max(pgMax, pg)
			pgMin = math.Min(pgMin, pg)

			if math.Abs(pg) > 1e-12 {
				old := alpha[i]
				alpha[i] = math.Min(math.Max(alpha[i]-g/qii[i], 0), upper)
				floats.AddScaled(w, (alpha[i]-old)*signs[i], rows[i])
			}
		}
		if pgMax-pgMin <= s.tol {
			break
		}
	}
	return w, iter
}

// solvePrimalL1 minimizes ||w||_1 + C Σ max(0, 1 - y w·x)² with FISTA. The
// synthetic intercept feature is not penalized.
func (s *LinearSVC) solvePrimalL1(rows [][]float64, signs []float64) ([]float64, int) {
	d := len(rows[0])
	penalized := d
	if s.fitIntercept {
		penalized = d - 1
	}

	// Lipschitz 定数の上界 2C||X||_F²
	lip := 0.0
	for _, x := range rows {
		lip += floats.Dot(x, x)
	}
	lip *= 2 * s.C
	if lip == 0 {
		return make([]float64, d), 0
	}
	step := 1 / lip

	w := make([]float64, d)
	prev := make([]float64, d)
	z := make([]float64, d)
	grad := make([]float64, d)
	tk := 1.0

	iter := 0
	for iter < s.maxIter {
		iter++

		for j := range grad {
			grad[j] = 0
		}
		for i, x := range rows {
			margin := 1 - signs[i]*floats.Dot(z, x)
			if margin > 0 {
				floats.AddScaled(grad, -2*s.C*margin*signs[i], x)
			}
		}

		copy(prev, w)
		for j := range w {
			v := z[j] - step*grad[j]
			if j < penalized {
				v = math.Copysign(math.Max(0, math.Abs(v)-step), v)
			}
			w[j] = v
		}

		tNext := (1 + math.Sqrt(1+4*tk*tk)) / 2
		for j := range z {
			z[j] = w[j] + (tk-1)/tNext*(w[j]-prev[j])
		}
		tk = tNext

		change, scale := 0.0, 1.0
		for j := range w {
			change = math.Max(change, math.Abs(w[j]-prev[j]))
			scale = math.Max(scale, math.Abs(w[j]))
		}
		if change <= s.tol*scale {
			break
		}
	}
	return w, iter
}

// DecisionFunction returns signed distances to the separating hyperplanes:
// one column for two classes, one column per class otherwise.
func (s *LinearSVC) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decision(X)
}

func (s *LinearSVC) decision(X mat.Matrix) (*mat.Dense, error) {
	if err := s.CheckFitted("LinearSVC", "DecisionFunction"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != s.nFeatures_ {
		return nil, errors.NewDimensionError("LinearSVC.DecisionFunction", s.nFeatures_, cols, 1)
	}
	if rows == 0 {
		return nil, errors.NewModelError("LinearSVC.DecisionFunction", "empty data", errors.ErrEmptyData)
	}

	coef := mat.NewDense(len(s.coef_), cols, nil)
	for k, w := range s.coef_ {
		coef.SetRow(k, w)
	}
	out := mat.NewDense(rows, len(s.coef_), nil)
	out.Mul(X, coef.T())
	out.Apply(func(_, k int, v float64) float64 { return v + s.intercept_[k] }, out)
	return out, nil
}

// Predict returns the predicted class label for each row.
func (s *LinearSVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores, err := s.decision(X)
	if err != nil {
		return nil, err
	}
	rows, k := scores.Dims()
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		if k == 1 {
			label := s.classes_[0]
			if scores.At(i, 0) > 0 {
				label = s.classes_[1]
			}
			out.SetVec(i, label)
			continue
		}
		out.SetVec(i, s.classes_[floats.MaxIdx(scores.RawRowView(i))])
	}
	return out, nil
}

// Score returns the mean accuracy on (X, y).
func (s *LinearSVC) Score(X, y mat.Matrix) (float64, error) {
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := y.Dims()
	return metrics.AccuracyScore(mat.NewVecDense(n, mat.Col(nil, 0, y)), pred.(*mat.VecDense))
}

// Classes returns the sorted class labels seen during Fit.
func (s *LinearSVC) Classes() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.classes_...)
}

// Coef returns one row of coefficients per binary problem.
func (s *LinearSVC) Coef() *mat.Dense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.coef_) == 0 {
		return nil
	}
	out := mat.NewDense(len(s.coef_), s.nFeatures_, nil)
	for k, w := range s.coef_ {
		out.SetRow(k, w)
	}
	return out
}

// Intercept returns one intercept per binary problem.
func (s *LinearSVC) Intercept() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]float64(nil), s.intercept_...)
}

// NIter returns the largest iteration count over the binary problems.
func (s *LinearSVC) NIter() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nIter_
}

// GetParams returns the hyperparameters.
func (s *LinearSVC) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":                 s.C,
		"penalty":           s.penalty,
		"loss":              s.loss,
		"tol":               s.tol,
		"max_iter":          s.maxIter,
		"fit_intercept":     s.fitIntercept,
		"intercept_scaling": s.interceptScaling,
		"random_state":      s.randomState,
	}
}

func (s *LinearSVC) String() string {
	return fmt.Sprintf("LinearSVC(C=%g, penalty=%s, loss=%s, max_iter=%d, tol=%g)",
		s.C, s.penalty, s.loss, s.maxIter, s.tol)
}

func uniqueSorted(v []float64) []float64 {
	seen := make(map[float64]struct{}, len(v))
	var out []float64
	for _, x := range v {
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	return out
}
