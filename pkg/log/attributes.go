// Standard attribute keys. Keys follow a dotted hierarchy ("model.name",
// "data.samples") so that log lines from the washer, the search driver and
// the trainers can be filtered the same way.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator or trainer.
	// Examples: "SGDRegressor", "LinearSVC", "Linear Regression"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "wash", "search"
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase.
	PhaseKey = "ml.phase"

	// TierKey is the precision tier of a training run.
	TierKey = "ml.tier"

	// RunIDKey identifies one training run (the persisted result id).
	RunIDKey = "run.id"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	TargetKey   = "data.target"
)

// Washing decisions.
const (
	// ColumnKey is the column being classified or repaired.
	ColumnKey = "wash.column"

	// ColumnClassKey is the inferred column class (numeric, categorical, datetime, abnormal).
	ColumnClassKey = "wash.class"

	// ActionKey is the policy outcome (keep, drop, impute_mean, encode).
	ActionKey = "wash.action"

	// RowsDroppedKey counts rows removed while repairing a column.
	RowsDroppedKey = "wash.rows_dropped"

	// ReasonKey explains a drop decision.
	ReasonKey = "wash.reason"
)

// Hyperparameter search.
const (
	CandidatesKey   = "search.candidates"
	FoldsKey        = "search.folds"
	WorkersKey      = "search.workers"
	BestScoreKey    = "search.best_score"
	BestParamsKey   = "search.best_params"
	FailedFitsKey   = "search.failed_fits"
	HyperParamsKey  = "model.hyperparams"
	RandomSeedKey   = "config.random_seed"
	DurationMsKey   = "perf.duration_ms"
	ArtifactPathKey = "artifact.path"
)

// Metrics.
const (
	R2ScoreKey    = "metrics.r2_score"
	AccuracyKey   = "metrics.accuracy"
	InertiaKey    = "metrics.inertia"
	SilhouetteKey = "metrics.silhouette"
)

// Error context.
const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationWash      = "wash"
	OperationSearch    = "search"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhasePreprocessing = "preprocessing"
)
