package training

import (
	"encoding/json"
	"math"
	"time"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
	ms "github.com/YuminosukeSato/autotrain/sklearn/model_selection"
)

// Model names reported in envelopes.
const (
	ModelRegression = "LinearRegression"
	ModelSVM        = "SVMClassifier"
	ModelKMeans     = "KMeans"
)

// Metric keys. Each model reports under its own identifiers.
const (
	MetricMSE        = "MSE_value"
	MetricR2         = "R2_value"
	MetricLabelIndex = "label_index"

	MetricPrecision = "Precision_value"
	MetricAccuracy  = "Accuracy_value"
	MetricRecall    = "Recall_value"
	MetricF1        = "F1_score_value"

	MetricInertia    = "inertia"
	MetricSilhouette = "silhouette"
	MetricNClusters  = "n_clusters"
)

// Search strategies recorded in SearchSummary.
const (
	StrategyFixed     = "fixed"
	StrategyEnumerate = "enumerate"
	StrategyGridCV    = "grid_cv"
)

// SearchSummary describes how the final hyperparameters were chosen.
type SearchSummary struct {
	Strategy   string    `json:"strategy"`
	Candidates int       `json:"candidates"`
	Folds      int       `json:"folds,omitempty"`
	FailedFits int       `json:"failed_fits,omitempty"`
	BestParams ms.Params `json:"best_params"`
	// BestScore is the selection score; nil for the fixed strategy.
	BestScore *float64 `json:"best_score,omitempty"`
}

// Envelope is the payload of a successful run.
type Envelope struct {
	RunID     string             `json:"run_id"`
	ModelName string             `json:"model_name"`
	Tier      Tier               `json:"speed_mode"`
	Metrics   map[string]float64 `json:"metrics"`
	PlotPath  string             `json:"plot_path,omitempty"`
	Search    SearchSummary      `json:"search"`
	Duration  time.Duration      `json:"duration_ns"`
}

// Metric returns a metric value and whether it is present.
func (e Envelope) Metric(key string) (float64, bool) {
	v, ok := e.Metrics[key]
	return v, ok
}

// Result is either Success or Failure. Callers switch on the concrete type.
type Result interface {
	// Flag is true for Success.
	Flag() bool
	// Model returns the model name of the run.
	Model() string
	isResult()
}

// Success carries the envelope of a completed run.
type Success struct {
	Envelope Envelope
}

// Failure carries the descriptive error of a failed run. Message is meant
// to be shown to users verbatim.
type Failure struct {
	RunID     string `json:"run_id"`
	ModelName string `json:"model_name"`
	Tier      Tier   `json:"speed_mode"`
	Message   string `json:"error"`
}

func (Success) Flag() bool      { return true }
func (s Success) Model() string { return s.Envelope.ModelName }
func (Success) isResult()       {}

func (Failure) Flag() bool      { return false }
func (f Failure) Model() string { return f.ModelName }
func (Failure) isResult()       {}

// RunIDOf returns the run id of either variant.
func RunIDOf(r Result) string {
	switch v := r.(type) {
	case Success:
		return v.Envelope.RunID
	case Failure:
		return v.RunID
	}
	return ""
}

type resultJSON struct {
	Flag     bool      `json:"flag"`
	Envelope *Envelope `json:"result,omitempty"`
	Failure  *Failure  `json:"failure,omitempty"`
}

// MarshalResult encodes r as {"flag": true, "result": {...}} or
// {"flag": false, "failure": {...}}.
func MarshalResult(r Result) ([]byte, error) {
	var out resultJSON
	switch v := r.(type) {
	case Success:
		for k, m := range v.Envelope.Metrics {
			if math.IsNaN(m) || math.IsInf(m, 0) {
				return nil, errors.NewValueError("MarshalResult", "metric "+k+" is not finite")
			}
		}
		out = resultJSON{Flag: true, Envelope: &v.Envelope}
	case Failure:
		out = resultJSON{Flag: false, Failure: &v}
	default:
		return nil, errors.NewValueError("MarshalResult", "unknown result type")
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "marshal result")
	}
	return data, nil
}

// UnmarshalResult decodes the output of MarshalResult.
func UnmarshalResult(data []byte) (Result, error) {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, errors.Wrap(err, "unmarshal result")
	}
	switch {
	case in.Flag && in.Envelope != nil:
		return Success{Envelope: *in.Envelope}, nil
	case !in.Flag && in.Failure != nil:
		return *in.Failure, nil
	}
	return nil, errors.Wrap(errors.ErrMalformedInput, "result payload has no body for its flag")
}
