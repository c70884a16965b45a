package model_selection

import (
	"context"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
)

// EstimatorFactory builds a fresh, unfitted estimator for a candidate.
type EstimatorFactory func(p Params) (model.Estimator, error)

// ScoreFunc scores a fitted estimator on held-out data. Higher is better.
// A NaN score marks the candidate as failed.
type ScoreFunc func(est model.Estimator, X, y mat.Matrix) (float64, error)

// CandidateResult holds the cross-validation outcome of one candidate.
type CandidateResult struct {
	Params     Params    `json:"params"`
	FoldScores []float64 `json:"fold_scores"`
	MeanScore  float64   `json:"mean_score"`
	StdScore   float64   `json:"std_score"`
	Err        string    `json:"error,omitempty"`
}

// Failed reports whether the candidate is excluded from selection.
func (c CandidateResult) Failed() bool { return math.IsNaN(c.MeanScore) }

// GridSearchCV evaluates every candidate of a ParamGrid with cross
// validation and refits the best one on the whole training data.
//
// Candidate × fold fits run on an errgroup limited to Workers goroutines.
// A fit that errors or panics scores NaN; NaN candidates are skipped, ties
// go to the earliest candidate, and the outcome does not depend on Workers.
type GridSearchCV struct {
	Factory EstimatorFactory
	Grid    ParamGrid
	CV      Splitter
	Scoring ScoreFunc
	Workers int
	Refit   bool
	Logger  log.Logger

	Results       []CandidateResult
	BestIndex     int
	BestParams    Params
	BestScore     float64
	BestEstimator model.Estimator
}

// NewGridSearchCV creates a grid search that refits the winner.
// workers <= 0 means one worker per CPU core.
func NewGridSearchCV(factory EstimatorFactory, grid ParamGrid, cv Splitter, scoring ScoreFunc, workers int) *GridSearchCV {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &GridSearchCV{
		Factory:   factory,
		Grid:      grid,
		CV:        cv,
		Scoring:   scoring,
		Workers:   workers,
		Refit:     true,
		BestIndex: -1,
	}
}

// Fit runs the search. y may be nil for unsupervised estimators.
func (g *GridSearchCV) Fit(ctx context.Context, X, y mat.Matrix) error {
	logger := log.OrDefault(g.Logger, "model_selection")
	start := time.Now()

	candidates := g.Grid.Candidates()
	if len(candidates) == 0 {
		return errors.NewValueError("GridSearchCV.Fit", "empty parameter grid")
	}
	// y は nil（教師なし）か X と同じ行数
	if y != nil {
		xr, _ := X.Dims()
		if yr, _ := y.Dims(); yr != xr {
			return errors.NewInputShapeError("training", []int{xr, 1}, []int{yr, 1})
		}
	}
	folds, err := g.CV.Split(X, y)
	if err != nil {
		return errors.Wrap(err, "split folds")
	}

	logger.Info("grid search started",
		log.OperationKey, log.OperationSearch,
		log.CandidatesKey, len(candidates),
		log.FoldsKey, len(folds),
		log.WorkersKey, g.Workers,
	)

	// 各foldのデータは全候補で共有する（読み取りのみ）
	type foldData struct {
		xTrain, xTest *mat.Dense
		yTrain, yTest mat.Matrix
	}
	data := make([]foldData, len(folds))
	for f, fold := range folds {
		data[f] = foldData{
			xTrain: SelectRows(X, fold.TrainIndices),
			xTest:  SelectRows(X, fold.TestIndices),
			yTrain: SelectTargets(y, fold.TrainIndices),
			yTest:  SelectTargets(y, fold.TestIndices),
		}
	}

	scores := make([][]float64, len(candidates))
	fitErrs := make([][]error, len(candidates))
	for c := range candidates {
		scores[c] = make([]float64, len(folds))
		fitErrs[c] = make([]error, len(folds))
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.Workers, 1))
	for c := range candidates {
		for f := range folds {
			eg.Go(errors.SafeTask("GridSearchCV.worker", func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				score, err := g.evaluate(candidates[c], data[f].xTrain, data[f].yTrain, data[f].xTest, data[f].yTest)
				if err != nil {
					score = math.NaN()
					fitErrs[c][f] = err
				}
				scores[c][f] = score
				return nil
			}))
		}
	}
	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "grid search interrupted")
	}

	g.Results = make([]CandidateResult, len(candidates))
	g.BestIndex = -1
	g.BestScore = math.NaN()
	failed := 0
	for c, p := range candidates {
		res := CandidateResult{Params: p, FoldScores: scores[c], MeanScore: math.NaN(), StdScore: math.NaN()}
		if err := firstError(fitErrs[c]); err != nil {
			res.Err = err.Error()
		}
		if !hasNaN(scores[c]) {
			res.MeanScore, res.StdScore = stat.PopMeanStdDev(scores[c], nil)
		}
		g.Results[c] = res

		if res.Failed() {
			failed++
			logger.Debug("candidate failed", log.HyperParamsKey, p.String(), log.ReasonKey, res.Err)
			continue
		}
		if g.BestIndex < 0 || res.MeanScore > g.BestScore {
			g.BestIndex = c
			g.BestScore = res.MeanScore
		}
	}
	if g.BestIndex < 0 {
		return errors.NewModelError("GridSearchCV.Fit", "every candidate failed",
			errors.Wrapf(errors.New(firstResultError(g.Results)), "%d candidates", len(candidates)))
	}
	g.BestParams = candidates[g.BestIndex].Clone()

	if g.Refit {
		est, err := g.Factory(g.BestParams)
		if err != nil {
			return errors.Wrap(err, "build best estimator")
		}
		if err := errors.SafeExecute("GridSearchCV.Refit", func() error { return est.Fit(X, y) }); err != nil {
			return errors.Wrap(err, "refit best estimator")
		}
		g.BestEstimator = est
	}

	logger.Info("grid search finished",
		log.OperationKey, log.OperationSearch,
		log.BestScoreKey, g.BestScore,
		log.BestParamsKey, g.BestParams.String(),
		log.FailedFitsKey, failed,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// evaluate fits one candidate on one fold inside a panic boundary.
func (g *GridSearchCV) evaluate(p Params, xTrain *mat.Dense, yTrain mat.Matrix, xTest *mat.Dense, yTest mat.Matrix) (float64, error) {
	var score float64
	err := errors.SafeExecute("GridSearchCV.evaluate", func() error {
		est, err := g.Factory(p)
		if err != nil {
			return err
		}
		if err := est.Fit(xTrain, yTrain); err != nil {
			return err
		}
		score, err = g.Scoring(est, xTest, yTest)
		return err
	})
	if err == nil && math.IsNaN(score) {
		err = errors.NewValueError("GridSearchCV.evaluate", "score is NaN")
	}
	return score, err
}

func hasNaN(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func firstResultError(results []CandidateResult) string {
	for _, r := range results {
		if r.Err != "" {
			return r.Err
		}
	}
	return "no candidate produced a score"
}
