// Package training implements the three tiered trainers (SGD regression,
// linear SVM classification, k-means clustering) and their Result envelope.
package training

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/dataframe"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/pkg/log"
	"github.com/YuminosukeSato/autotrain/preprocessing"
)

// Trainer trains one model family. Train never panics and never returns a
// nil Result.
type Trainer interface {
	Name() string
	Train(ctx context.Context, req Request) Result
}

// runState is what a trainer body receives from the failure boundary.
type runState struct {
	runID  string
	tier   Tier
	logger log.Logger
}

type trainBody func(ctx context.Context, st runState) (Envelope, error)

// run is the failure boundary every trainer goes through. Any error or
// panic of body becomes a Failure.
func run(ctx context.Context, cfg Config, modelName string, req Request, body trainBody) Result {
	start := time.Now()
	runID := uuid.NewString()
	logger := cfg.Logger.With(log.ModelNameKey, modelName, log.RunIDKey, runID, log.TierKey, string(req.Tier))

	fail := func(err error) Result {
		logger.Error("training failed", log.ErrAttrKey, err, log.DurationMsKey, time.Since(start).Milliseconds())
		return Failure{
			RunID:     runID,
			ModelName: modelName,
			Tier:      req.Tier,
			Message:   "Error during " + modelName + " training: " + err.Error(),
		}
	}

	tier, err := ParseTier(string(req.Tier))
	if err != nil {
		return fail(err)
	}
	if req.Data == nil {
		return fail(errors.Wrap(errors.ErrMalformedInput, "no dataset"))
	}
	rows, cols := req.Data.Dims()
	logger.Info("training started", log.SamplesKey, rows, log.FeaturesKey, cols, log.RandomSeedKey, cfg.Seed)

	var env Envelope
	err = errors.SafeExecute(modelName+".Train", func() error {
		var err error
		env, err = body(ctx, runState{runID: runID, tier: tier, logger: logger})
		return err
	})
	if err != nil {
		return fail(err)
	}

	env.RunID = runID
	env.ModelName = modelName
	env.Tier = tier
	env.Duration = time.Since(start)
	logger.Info("training finished",
		log.DurationMsKey, env.Duration.Milliseconds(),
		log.ArtifactPathKey, env.PlotPath,
		log.BestParamsKey, env.Search.BestParams.String(),
	)
	return Success{Envelope: env}
}

// supervisedData resolves the target and returns features and target.
func supervisedData(req Request) (X *mat.Dense, y *mat.VecDense, target int, err error) {
	target, err = req.Target.Resolve(req.Data)
	if err != nil {
		return nil, nil, -1, err
	}
	X, y, err = req.Data.Features(target)
	if err != nil {
		return nil, nil, -1, errors.NewInsufficientDataError("training", 1, 0,
			"the table has no rows or no feature columns besides the target")
	}
	return X, y, target, nil
}

// checkVariance fails when every feature of the training rows is constant;
// standardisation then carries no signal at all.
func checkVariance(X mat.Matrix, names []string) error {
	scaler := preprocessing.NewStandardScalerDefault()
	if err := scaler.Fit(X); err != nil {
		return err
	}
	_, cols := X.Dims()
	if constant := scaler.ConstantFeatures(); len(constant) == cols {
		return errors.NewInsufficientDataError("training", 1, 0,
			"every feature column has zero variance on the training rows: "+strings.Join(names, ", "))
	}
	return nil
}

// logSplit は学習行と検証行の件数を記録する
func (st runState) logSplit(target string, train, test int) {
	fields := []any{log.PhaseKey, log.PhaseTraining, log.SamplesKey, train}
	if target != "" {
		fields = append(fields, log.TargetKey, target)
	}
	st.logger.Debug("data split", fields...)
	st.logger.Debug("data split", log.PhaseKey, log.PhaseValidation, log.SamplesKey, test)
}

func featureNames(ds *dataframe.Dataset, skip int) []string {
	var out []string
	for j, n := range ds.Names() {
		if j != skip {
			out = append(out, n)
		}
	}
	return out
}

func vectorValues(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
