package model_selection

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
)

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(100, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 20)
	assert.Len(t, train, 80)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	train2, test2, err := TrainTestSplit(100, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	_, other, err := TrainTestSplit(100, 0.2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, test, other)

	_, test, err = TrainTestSplit(5, 0.2, 1)
	require.NoError(t, err)
	assert.Len(t, test, 1)
}

func TestTrainTestSplitErrors(t *testing.T) {
	_, _, err := TrainTestSplit(1, 0.2, 1)
	var insufficient *errors.InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))

	_, _, err = TrainTestSplit(10, 1.5, 1)
	var invalid *errors.ValidationError
	assert.True(t, errors.As(err, &invalid))
}

func TestStratifiedTrainTestSplit(t *testing.T) {
	y := make([]float64, 100)
	for i := range y {
		switch {
		case i < 60:
			y[i] = 0
		case i < 90:
			y[i] = 1
		default:
			y[i] = 2
		}
	}

	train, test, err := StratifiedTrainTestSplit(y, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 20)
	assert.Len(t, train, 80)

	counts := map[float64]int{}
	for _, i := range test {
		counts[y[i]]++
	}
	assert.Equal(t, map[float64]int{0: 12, 1: 6, 2: 2}, counts)

	_, again, err := StratifiedTrainTestSplit(y, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, test, again)
}

func TestStratifiedTrainTestSplitSingleMemberClass(t *testing.T) {
	_, _, err := StratifiedTrainTestSplit([]float64{0, 0, 0, 0, 1}, 0.2, 42)
	var insufficient *errors.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Got)
}

func TestKFold(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	folds, err := NewKFold(3, true, 42).Split(X, nil)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	var sizes []int
	seen := map[int]bool{}
	for _, f := range folds {
		sizes = append(sizes, len(f.TestIndices))
		assert.Len(t, f.TrainIndices, 10-len(f.TestIndices))
		for _, i := range f.TestIndices {
			assert.False(t, seen[i], "row %d in two test folds", i)
			seen[i] = true
		}
	}
	assert.Equal(t, []int{4, 3, 3}, sizes)
	assert.Len(t, seen, 10)

	_, err = NewKFold(5, false, 0).Split(mat.NewDense(3, 1, nil), nil)
	assert.Error(t, err)
}

func TestStratifiedKFold(t *testing.T) {
	n := 20
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		y.SetVec(i, float64(i%2))
	}

	folds, err := NewStratifiedKFold(5, true, 1).Split(X, y)
	require.NoError(t, err)
	for _, f := range folds {
		require.Len(t, f.TestIndices, 4)
		ones := 0
		for _, i := range f.TestIndices {
			ones += int(y.AtVec(i))
		}
		assert.Equal(t, 2, ones)
	}

	_, err = NewStratifiedKFold(5, false, 0).Split(X, nil)
	assert.Error(t, err)
}

func TestAxisPoints(t *testing.T) {
	lin := Linspace("C", 0.1, 10, 50).Points()
	require.Len(t, lin, 50)
	assert.Equal(t, 0.1, lin[0])
	assert.Equal(t, 10.0, lin[49])

	lg := Logspace("alpha", -6, 1, 8).Points()
	require.Len(t, lg, 8)
	assert.InDelta(t, 1e-6, lg[0].(float64), 1e-18)
	assert.InDelta(t, 10.0, lg[7].(float64), 1e-12)

	k := IntLinspace("n_clusters", 1, 50, 25).Points()
	require.Len(t, k, 25)
	assert.Equal(t, 1, k[0])
	assert.Equal(t, 50, k[24])

	assert.Equal(t, []any{1, 2, 3}, IntLinspace("k", 1, 3, 5).Points())
	assert.Equal(t, "alpha=logspace(-6, 1, 8)", Logspace("alpha", -6, 1, 8).String())
	assert.Equal(t, "loss={hinge, squared_hinge}", Values("loss", "hinge", "squared_hinge").String())
}

func TestParamGridCandidates(t *testing.T) {
	grid := ParamGrid{
		Values("a", 1, 2),
		Values("b", "x", "y", "z"),
	}
	assert.Equal(t, 6, grid.Size())

	c := grid.Candidates()
	require.Len(t, c, 6)
	assert.Equal(t, Params{"a": 1, "b": "x"}, c[0])
	assert.Equal(t, Params{"a": 1, "b": "y"}, c[1])
	assert.Equal(t, Params{"a": 2, "b": "z"}, c[5])

	assert.Equal(t, 1.0, c[0].GetFloat("a", 0))
	assert.Equal(t, "dflt", c[0].GetString("missing", "dflt"))
	assert.Equal(t, "{a=1, b=x}", c[0].String())

	assert.Nil(t, ParamGrid{}.Candidates())
}

// constEstimator predicts a constant taken from its parameters.
type constEstimator struct {
	value float64
}

func (c *constEstimator) Fit(X, _ mat.Matrix) error {
	if c.value == 99 {
		panic("boom")
	}
	return nil
}

func (c *constEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, c.value)
	}
	return out, nil
}

func constFactory(p Params) (model.Estimator, error) {
	v := p.GetFloat("value", 0)
	if v < 0 {
		return nil, errors.NewValidationError("value", "must be non-negative", v)
	}
	return &constEstimator{value: v}, nil
}

func searchData() (*mat.Dense, *mat.VecDense) {
	n := 20
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.SetVec(i, 3)
	}
	return X, y
}

func TestGridSearchCV(t *testing.T) {
	X, y := searchData()
	logger, _ := log.NewTestLogger(log.LevelDebug)

	gs := NewGridSearchCV(constFactory,
		ParamGrid{Values("value", -1.0, 1.0, 3.0, 3.0, 99.0, 5.0)},
		NewKFold(4, true, 42), NegMSEScorer, 3)
	gs.Logger = logger

	require.NoError(t, gs.Fit(context.Background(), X, y))

	assert.Equal(t, 2, gs.BestIndex, "ties go to the earliest candidate")
	assert.Equal(t, 0.0, gs.BestScore)
	assert.Equal(t, Params{"value": 3.0}, gs.BestParams)
	require.NotNil(t, gs.BestEstimator)

	assert.True(t, gs.Results[0].Failed())
	assert.Contains(t, gs.Results[0].Err, "non-negative")
	assert.True(t, gs.Results[4].Failed(), "panicking fits are contained")
	assert.InDelta(t, -4.0, gs.Results[1].MeanScore, 1e-12)

	assert.True(t, logger.ContainsMessage("grid search finished"))
	assert.True(t, logger.ContainsField(log.FailedFitsKey, 2.0))
}

func TestGridSearchCVIndependentOfWorkers(t *testing.T) {
	X, y := searchData()
	grid := ParamGrid{Linspace("value", 0, 6, 13)}

	var best []int
	var results [][]CandidateResult
	for _, workers := range []int{1, 8} {
		gs := NewGridSearchCV(constFactory, grid, NewKFold(5, false, 0), NegMSEScorer, workers)
		gs.Logger = log.OrDefault(nil, "test")
		require.NoError(t, gs.Fit(context.Background(), X, y))
		best = append(best, gs.BestIndex)
		results = append(results, gs.Results)
	}
	assert.Equal(t, best[0], best[1])
	assert.Equal(t, results[0], results[1])
}

func TestGridSearchCVAllFail(t *testing.T) {
	X, y := searchData()
	gs := NewGridSearchCV(constFactory, ParamGrid{Values("value", -1.0, 99.0)},
		NewKFold(2, false, 0), NegMSEScorer, 2)

	err := gs.Fit(context.Background(), X, y)
	var modelErr *errors.ModelError
	assert.True(t, errors.As(err, &modelErr))
}

func TestGridSearchCVTargetLengthMismatch(t *testing.T) {
	X, _ := searchData()
	gs := NewGridSearchCV(constFactory, ParamGrid{Values("value", 1.0)}, NewKFold(2, false, 0), NegMSEScorer, 1)

	err := gs.Fit(context.Background(), X, mat.NewVecDense(5, nil))
	var shape *errors.InputShapeError
	require.True(t, errors.As(err, &shape))
	assert.Equal(t, []int{20, 1}, shape.Expected)
	assert.Equal(t, []int{5, 1}, shape.Got)
}

func TestGridSearchCVCancelled(t *testing.T) {
	X, y := searchData()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gs := NewGridSearchCV(constFactory, ParamGrid{Values("value", 1.0, 2.0)},
		NewKFold(2, false, 0), NegMSEScorer, 1)
	err := gs.Fit(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSilhouetteScorerUndefinedIsNaN(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	score, err := SilhouetteScorer(&constEstimator{value: 0}, X, nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(score))
}
