package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/autotrain/dataframe"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/training"
	"github.com/YuminosukeSato/autotrain/washing"
)

func (a *app) newTrainer(kind string) (training.Trainer, error) {
	cfg := a.cfg.TrainingConfig(a.logger)
	switch kind {
	case "regression":
		return training.NewRegressionTrainer(cfg), nil
	case "svm":
		return training.NewClassifierTrainer(cfg), nil
	case "kmeans":
		return training.NewClusteringTrainer(cfg), nil
	}
	return nil, errors.NewValidationError("model", "must be regression, svm or kmeans", kind)
}

func (a *app) trainCommand() *cobra.Command {
	var (
		target  string
		tier    string
		owner   string
		format  string
		noStore bool
	)
	cmd := &cobra.Command{
		Use:       "train <regression|svm|kmeans> <csv>",
		Short:     "Wash a CSV table and train a model on it",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"regression", "svm", "kmeans"},
		RunE: func(cmd *cobra.Command, args []string) error {
			trainer, err := a.newTrainer(args[0])
			if err != nil {
				return err
			}
			req := training.Request{Target: training.ParseTarget(target), Tier: training.Tier(tier)}
			if args[0] != "kmeans" && !req.Target.IsSet() {
				return errors.NewValidationError("target", "required for "+args[0], target)
			}

			washer := washing.NewWasher(a.cfg.WasherOptions(a.logger)...)
			req.Data, _, err = washer.WashFile(args[1], dataframe.CSVOptions{ParseDates: true})
			if err != nil {
				return err
			}

			res := trainer.Train(cmd.Context(), req)
			if !noStore {
				s, err := a.openStore()
				if err != nil {
					return err
				}
				defer s.Close()
				if _, err := s.Save(cmd.Context(), owner, res); err != nil {
					return err
				}
			}

			if err := renderResult(a, format, res); err != nil {
				return err
			}
			if f, ok := res.(training.Failure); ok {
				return errors.Newf("training failed: %s", f.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "target column name or zero-based index (regression, svm)")
	cmd.Flags().StringVar(&tier, "tier", string(training.TierFast), `precision tier: "Fast", "Balance" or "High Precision"`)
	cmd.Flags().StringVar(&owner, "owner", "", "owner recorded with the stored result")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not persist the result")
	return cmd
}

func renderResult(a *app, format string, res training.Result) error {
	data, err := training.MarshalResult(res)
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	return render(a.stdout, format, payload)
}
