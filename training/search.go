package training

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
	ms "github.com/YuminosukeSato/autotrain/sklearn/model_selection"
)

// searchJob is what the three trainers hand to runSearch.
type searchJob struct {
	space   SearchSpace
	factory ms.EstimatorFactory
	cv      ms.Splitter
	scoring ms.ScoreFunc
}

// runSearch picks and fits the final estimator on the training partition
// according to the space's strategy:
//
//   - fixed: fit Base once.
//   - enumerate: fit every candidate on the training rows and keep the best
//     in-sample score.
//   - grid_cv: GridSearchCV over Grid with job.cv, refit on the training rows.
func runSearch(ctx context.Context, cfg Config, job searchJob, X, y mat.Matrix) (model.Estimator, SearchSummary, error) {
	est, summary, err := search(ctx, cfg, job, X, y)
	if err != nil {
		return nil, summary, err
	}
	if g, ok := est.(model.ParameterGetter); ok && cfg.Logger.Enabled(ctx, log.LevelDebug) {
		cfg.Logger.Debug("final estimator", log.HyperParamsKey, fmt.Sprint(g.GetParams()))
	}
	return est, summary, nil
}

func search(ctx context.Context, cfg Config, job searchJob, X, y mat.Matrix) (model.Estimator, SearchSummary, error) {
	// 全候補に Base を重ねる
	factory := func(p ms.Params) (model.Estimator, error) {
		merged := job.space.Base.Clone()
		for k, v := range p {
			merged[k] = v
		}
		return job.factory(merged)
	}

	switch job.space.Strategy {
	case StrategyFixed:
		params := job.space.Base.Clone()
		est, err := factory(params)
		if err != nil {
			return nil, SearchSummary{}, err
		}
		if err := est.Fit(X, y); err != nil {
			return nil, SearchSummary{}, errors.Wrapf(err, "fit %s", params)
		}
		return est, SearchSummary{Strategy: StrategyFixed, Candidates: 1, BestParams: params}, nil

	case StrategyEnumerate:
		return enumerate(ctx, cfg, job, factory, X, y)

	case StrategyGridCV:
		gs := ms.NewGridSearchCV(factory, job.space.Grid, job.cv, job.scoring, cfg.Workers)
		gs.Logger = cfg.Logger
		if err := gs.Fit(ctx, X, y); err != nil {
			return nil, SearchSummary{}, err
		}
		failed := 0
		for _, r := range gs.Results {
			if r.Failed() {
				failed++
			}
		}
		best := job.space.Base.Clone()
		for k, v := range gs.BestParams {
			best[k] = v
		}
		score := gs.BestScore
		return gs.BestEstimator, SearchSummary{
			Strategy:   StrategyGridCV,
			Candidates: len(gs.Results),
			Folds:      job.cv.GetNSplits(),
			FailedFits: failed,
			BestParams: best,
			BestScore:  &score,
		}, nil
	}
	return nil, SearchSummary{}, errors.NewValidationError("strategy", "unknown search strategy", job.space.Strategy)
}

// enumerate fits each candidate on all of X in parallel and keeps the
// highest in-sample score; ties go to the earliest candidate.
func enumerate(ctx context.Context, cfg Config, job searchJob, factory ms.EstimatorFactory, X, y mat.Matrix) (model.Estimator, SearchSummary, error) {
	candidates := job.space.Candidates()
	fitted := make([]model.Estimator, len(candidates))
	scores := make([]float64, len(candidates))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, p := range candidates {
		eg.Go(errors.SafeTask("training.enumerate", func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			scores[i] = math.NaN()
			err := errors.SafeExecute("training.enumerate.fit", func() error {
				est, err := factory(p)
				if err != nil {
					return err
				}
				if err := est.Fit(X, y); err != nil {
					return err
				}
				s, err := job.scoring(est, X, y)
				if err != nil {
					return err
				}
				fitted[i], scores[i] = est, s
				return nil
			})
			if err != nil {
				cfg.Logger.Debug("candidate failed", log.HyperParamsKey, p.String(), log.ErrAttrKey, err)
			}
			return nil
		}))
	}
	if err := eg.Wait(); err != nil {
		return nil, SearchSummary{}, errors.Wrap(err, "enumeration interrupted")
	}

	best, failed := -1, 0
	for i, s := range scores {
		if math.IsNaN(s) {
			failed++
			continue
		}
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	if best < 0 {
		return nil, SearchSummary{}, errors.NewModelError("training.enumerate", "every candidate failed",
			errors.Newf("%d candidates", len(candidates)))
	}

	cfg.Logger.Info("enumeration finished",
		log.CandidatesKey, len(candidates),
		log.FailedFitsKey, failed,
		log.BestScoreKey, scores[best],
		log.BestParamsKey, candidates[best].String(),
	)
	score := scores[best]
	return fitted[best], SearchSummary{
		Strategy:   StrategyEnumerate,
		Candidates: len(candidates),
		FailedFits: failed,
		BestParams: candidates[best],
		BestScore:  &score,
	}, nil
}
