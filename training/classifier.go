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

// ClassifierTrainer fits imputer → scaler → LinearSVC to a class target.
type ClassifierTrainer struct {
	cfg Config
}

// NewClassifierTrainer creates a classifier trainer.
func NewClassifierTrainer(cfg Config) *ClassifierTrainer {
	return &ClassifierTrainer{cfg: cfg.withDefaults()}
}

func (t *ClassifierTrainer) Name() string { return ModelSVM }

func classifierFactory(seed uint64) ms.EstimatorFactory {
	return func(p ms.Params) (model.Estimator, error) {
		svc := linear_model.NewLinearSVC(
			linear_model.WithSVCC(p.GetFloat("C", 1)),
			linear_model.WithSVCPenalty(p.GetString("penalty", "l2")),
			linear_model.WithSVCLoss(p.GetString("loss", "squared_hinge")),
			linear_model.WithSVCMaxIter(p.GetInt("max_iter", 1000)),
			linear_model.WithSVCTol(p.GetFloat("tol", 1e-4)),
			linear_model.WithSVCRandomState(seed),
		)
		return pipeline.NewPipeline("linearsvc", svc,
			pipeline.Step{Name: "imputer", Transformer: preprocessing.NewSimpleImputer(preprocessing.ImputeMostFrequent)},
			pipeline.Step{Name: "scaler", Transformer: preprocessing.NewStandardScalerDefault()},
		), nil
	}
}

// Train runs the classifier trainer. Metrics: weighted Precision_value,
// Accuracy_value, weighted Recall_value and weighted F1_score_value on the
// stratified validation rows.
func (t *ClassifierTrainer) Train(ctx context.Context, req Request) Result {
	return run(ctx, t.cfg, ModelSVM, req, func(ctx context.Context, st runState) (Envelope, error) {
		X, y, target, err := supervisedData(req)
		if err != nil {
			return Envelope{}, err
		}
		trainIdx, testIdx, err := ms.StratifiedTrainTestSplit(vectorValues(y), t.cfg.TestSize, t.cfg.Seed)
		if err != nil {
			return Envelope{}, err
		}
		st.logSplit(req.Data.Names()[target], len(trainIdx), len(testIdx))
		xTrain, xTest := ms.SelectRows(X, trainIdx), ms.SelectRows(X, testIdx)
		yTrain, yTest := ms.SelectTargets(y, trainIdx), ms.SelectTargets(y, testIdx)
		if err := checkVariance(xTrain, featureNames(req.Data, target)); err != nil {
			return Envelope{}, err
		}

		space, err := ClassifierSpace(st.tier)
		if err != nil {
			return Envelope{}, err
		}
		cfg := t.cfg
		cfg.Logger = st.logger
		est, summary, err := runSearch(ctx, cfg, searchJob{
			space:   space,
			factory: classifierFactory(t.cfg.Seed),
			cv:      ms.NewStratifiedKFold(t.cfg.CVFolds, true, t.cfg.Seed),
			scoring: ms.AccuracyScorer,
		}, xTrain, yTrain)
		if err != nil {
			return Envelope{}, err
		}

		pred, err := est.Predict(xTest)
		if err != nil {
			return Envelope{}, err
		}
		truth, predicted := ms.AsVector(yTest), ms.AsVector(pred)
		acc, err := metrics.AccuracyScore(truth, predicted)
		if err != nil {
			return Envelope{}, err
		}
		prf, err := metrics.PrecisionRecallFScore(truth, predicted)
		if err != nil {
			return Envelope{}, err
		}
		st.logger.Debug("validation scored",
			log.PhaseKey, log.PhaseValidation,
			log.ClassesKey, len(metrics.Labels(truth, predicted)),
			log.AccuracyKey, acc,
		)

		env := Envelope{
			Metrics: map[string]float64{
				MetricPrecision: prf.Precision,
				MetricAccuracy:  acc,
				MetricRecall:    prf.Recall,
				MetricF1:        prf.F1,
			},
			Search: summary,
		}
		if t.cfg.Artifacts != nil {
			cm, labels, err := metrics.ConfusionMatrix(truth, predicted)
			if err != nil {
				return Envelope{}, err
			}
			env.PlotPath, err = t.cfg.Artifacts.SaveConfusionMatrixPlot(cm, labels)
			if err != nil {
				return Envelope{}, err
			}
		}
		return env, nil
	})
}
