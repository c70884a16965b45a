// Package autotrain turns a raw CSV table into a trained model and a
// result envelope.
//
// A run has two stages. The washing package classifies every column,
// drops what cannot be repaired, and encodes the rest into an all-numeric
// dataframe.Dataset. The training package then fits one of three models
// at a chosen precision tier:
//
//   - Regression: standard scaling and SGD regression, scored by MSE
//   - Classifier: imputation, standard scaling and a linear SVM
//   - Clustering: standard scaling and k-means, scored by silhouette
//
// Fast uses fixed parameters, Balance and High Precision search a
// hyperparameter grid with cross validation. Every run returns either a
// training.Success carrying metrics, search summary and plot path, or a
// training.Failure carrying a readable message. Errors never escape a
// trainer as panics.
//
// # Quick Start
//
//	ds, err := washing.NewWasher().Wash(frame)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res := training.NewRegressionTrainer(training.DefaultConfig()).Train(ctx, training.Request{
//	    Data:   ds,
//	    Target: training.TargetName("price"),
//	    Tier:   training.TierBalance,
//	})
//	if s, ok := res.(training.Success); ok {
//	    fmt.Println(s.Envelope.Metrics["MSE_value"])
//	}
//
// # Packages
//
//   - dataframe: raw Frame, CSV reading and the numeric Dataset
//   - washing: column classification and repair with a per-column Report
//   - preprocessing: StandardScaler, MinMaxScaler, SimpleImputer, LabelEncoder
//   - sklearn/linear_model: SGDRegressor and LinearSVC
//   - sklearn/cluster: KMeans
//   - sklearn/model_selection: splits, KFold, parameter grids, GridSearchCV
//   - sklearn/pipeline: transformer chains ending in an estimator
//   - metrics: regression, classification and clustering scores
//   - visualization: PNG artifacts for each model
//   - training: tiers, search spaces, trainers and result envelopes
//   - store: SQLite persistence of results
//   - pkg/errors, pkg/log: error types and structured logging
//
// The autotrain command in cmd/autotrain exposes wash, train and results
// subcommands.
package autotrain
