package training

import (
	"context"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/metrics"
	"github.com/YuminosukeSato/autotrain/pkg/log"
	"github.com/YuminosukeSato/autotrain/preprocessing"
	"github.com/YuminosukeSato/autotrain/sklearn/linear_model"
	ms "github.com/YuminosukeSato/autotrain/sklearn/model_selection"
	"github.com/YuminosukeSato/autotrain/sklearn/pipeline"
)

// RegressionTrainer fits scaler → SGDRegressor to a numeric target.
type RegressionTrainer struct {
	cfg Config
}

// NewRegressionTrainer creates a regression trainer.
func NewRegressionTrainer(cfg Config) *RegressionTrainer {
	return &RegressionTrainer{cfg: cfg.withDefaults()}
}

func (t *RegressionTrainer) Name() string { return ModelRegression }

// regressionFactory builds the candidate pipeline. The scaler is refit on
// whatever rows Fit sees, so CV folds never leak into each other.
func regressionFactory(seed uint64) ms.EstimatorFactory {
	return func(p ms.Params) (model.Estimator, error) {
		reg := linear_model.NewSGDRegressor(
			linear_model.WithSGDPenalty(p.GetString("penalty", "l2")),
			linear_model.WithSGDAlpha(p.GetFloat("alpha", 1e-4)),
			linear_model.WithSGDL1Ratio(p.GetFloat("l1_ratio", 0.15)),
			linear_model.WithSGDLearningRate(p.GetString("learning_rate", "invscaling")),
			linear_model.WithSGDEta0(p.GetFloat("eta0", 0.01)),
			linear_model.WithSGDMaxIter(p.GetInt("max_iter", 1000)),
			linear_model.WithSGDTol(p.GetFloat("tol", 1e-3)),
			linear_model.WithSGDEarlyStopping(true),
			linear_model.WithSGDRandomState(seed),
		)
		return pipeline.NewPipeline("sgdregressor", reg,
			pipeline.Step{Name: "scaler", Transformer: preprocessing.NewStandardScalerDefault()},
		), nil
	}
}

// Train runs the regression trainer. Metrics: MSE_value, R2_value and
// label_index on the validation rows.
func (t *RegressionTrainer) Train(ctx context.Context, req Request) Result {
	return run(ctx, t.cfg, ModelRegression, req, func(ctx context.Context, st runState) (Envelope, error) {
		X, y, target, err := supervisedData(req)
		if err != nil {
			return Envelope{}, err
		}
		n, _ := X.Dims()
		trainIdx, testIdx, err := ms.TrainTestSplit(n, t.cfg.TestSize, t.cfg.Seed)
		if err != nil {
			return Envelope{}, err
		}
		st.logSplit(req.Data.Names()[target], len(trainIdx), len(testIdx))
		xTrain, xTest := ms.SelectRows(X, trainIdx), ms.SelectRows(X, testIdx)
		yTrain, yTest := ms.SelectTargets(y, trainIdx), ms.SelectTargets(y, testIdx)
		if err := checkVariance(xTrain, featureNames(req.Data, target)); err != nil {
			return Envelope{}, err
		}

		space, err := RegressionSpace(st.tier)
		if err != nil {
			return Envelope{}, err
		}
		cfg := t.cfg
		cfg.Logger = st.logger
		est, summary, err := runSearch(ctx, cfg, searchJob{
			space:   space,
			factory: regressionFactory(t.cfg.Seed),
			cv:      ms.NewKFold(t.cfg.CVFolds, true, t.cfg.Seed),
			scoring: ms.NegMSEScorer,
		}, xTrain, yTrain)
		if err != nil {
			return Envelope{}, err
		}

		pred, err := est.Predict(xTest)
		if err != nil {
			return Envelope{}, err
		}
		truth, predicted := ms.AsVector(yTest), ms.AsVector(pred)
		mse, err := metrics.MSE(truth, predicted)
		if err != nil {
			return Envelope{}, err
		}
		r2, err := metrics.R2Score(truth, predicted)
		if err != nil {
			return Envelope{}, err
		}

		st.logger.Debug("validation scored", log.PhaseKey, log.PhaseValidation, log.R2ScoreKey, r2)

		env := Envelope{
			Metrics: map[string]float64{
				MetricMSE:        mse,
				MetricR2:         r2,
				MetricLabelIndex: float64(target),
			},
			Search: summary,
		}
		if t.cfg.Artifacts != nil {
			env.PlotPath, err = t.cfg.Artifacts.SaveRegressionPlot(vectorValues(truth), vectorValues(predicted))
			if err != nil {
				return Envelope{}, err
			}
		}
		return env, nil
	})
}
