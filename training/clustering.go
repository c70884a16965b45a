package training

import (
	"context"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/metrics"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
	"github.com/YuminosukeSato/autotrain/preprocessing"
	"github.com/YuminosukeSato/autotrain/sklearn/cluster"
	ms "github.com/YuminosukeSato/autotrain/sklearn/model_selection"
)

// ClusteringTrainer fits KMeans to the whole standardised table. The target
// of the request is ignored.
type ClusteringTrainer struct {
	cfg Config
}

// NewClusteringTrainer creates a clustering trainer.
func NewClusteringTrainer(cfg Config) *ClusteringTrainer {
	return &ClusteringTrainer{cfg: cfg.withDefaults()}
}

func (t *ClusteringTrainer) Name() string { return ModelKMeans }

func clusteringFactory(seed uint64) ms.EstimatorFactory {
	return func(p ms.Params) (model.Estimator, error) {
		return cluster.NewKMeans(
			cluster.WithKMeansNClusters(p.GetInt("n_clusters", 8)),
			cluster.WithKMeansInit(p.GetString("init", "k-means++")),
			cluster.WithKMeansNInit(p.GetInt("n_init", 10)),
			cluster.WithKMeansMaxIter(p.GetInt("max_iter", 300)),
			cluster.WithKMeansTol(p.GetFloat("tol", 1e-4)),
			cluster.WithKMeansRandomState(seed),
		), nil
	}
}

// Train runs the clustering trainer. Metrics: inertia of the final model,
// silhouette of the validation rows, n_clusters.
func (t *ClusteringTrainer) Train(ctx context.Context, req Request) Result {
	return run(ctx, t.cfg, ModelKMeans, req, func(ctx context.Context, st runState) (Envelope, error) {
		raw, err := req.Data.Matrix()
		if err != nil {
			return Envelope{}, errors.NewInsufficientDataError("training", 1, 0, "the table has no rows or no columns")
		}
		if err := checkVariance(raw, req.Data.Names()); err != nil {
			return Envelope{}, err
		}
		// 分割前に全行で標準化する (validation 行も scaler に含まれる)
		scaled, err := preprocessing.NewStandardScalerDefault().FitTransform(raw)
		if err != nil {
			return Envelope{}, err
		}

		st.logger.Debug("features standardised", log.PhaseKey, log.PhasePreprocessing, log.OperationKey, log.OperationFit)

		n, _ := scaled.Dims()
		trainIdx, testIdx, err := ms.TrainTestSplit(n, t.cfg.TestSize, t.cfg.Seed)
		if err != nil {
			return Envelope{}, err
		}
		st.logSplit("", len(trainIdx), len(testIdx))
		xTrain, xTest := ms.SelectRows(scaled, trainIdx), ms.SelectRows(scaled, testIdx)

		space, err := ClusteringSpace(st.tier)
		if err != nil {
			return Envelope{}, err
		}
		cfg := t.cfg
		cfg.Logger = st.logger
		est, summary, err := runSearch(ctx, cfg, searchJob{
			space:   space,
			factory: clusteringFactory(t.cfg.Seed),
			cv:      ms.NewKFold(t.cfg.CVFolds, true, t.cfg.Seed),
			scoring: ms.SilhouetteScorer,
		}, xTrain, nil)
		if err != nil {
			return Envelope{}, err
		}
		km, ok := est.(*cluster.KMeans)
		if !ok {
			return Envelope{}, errors.Newf("unexpected estimator %T", est)
		}

		pred, err := km.Predict(xTest)
		if err != nil {
			return Envelope{}, err
		}
		labels := make([]int, len(testIdx))
		for i := range labels {
			labels[i] = int(pred.At(i, 0))
		}
		silhouette, err := metrics.SilhouetteScore(xTest, labels)
		if err != nil {
			return Envelope{}, errors.Wrap(err, "validation silhouette")
		}
		st.logger.Debug("validation scored", log.InertiaKey, km.Inertia(), log.SilhouetteKey, silhouette, log.PhaseKey, log.PhaseValidation)

		env := Envelope{
			Metrics: map[string]float64{
				MetricInertia:    km.Inertia(),
				MetricSilhouette: silhouette,
				MetricNClusters:  float64(km.NClusters()),
			},
			Search: summary,
		}
		if t.cfg.Artifacts != nil {
			env.PlotPath, err = t.cfg.Artifacts.SaveRadarPlot(xTest, labels, km.NClusters(), req.Data.Names())
			if err != nil {
				return Envelope{}, err
			}
		}
		return env, nil
	})
}
