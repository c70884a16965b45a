package visualization

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// RegressionPlot draws the actual targets as points and the predictions as a
// line, both against the sample index.
func RegressionPlot(actual, predicted []float64) (*plot.Plot, error) {
	if len(actual) != len(predicted) {
		return nil, errors.NewDimensionError("RegressionPlot", len(actual), len(predicted), 0)
	}
	if len(actual) == 0 {
		return nil, errors.NewModelError("RegressionPlot", "empty data", errors.ErrEmptyData)
	}

	truth := make(plotter.XYs, len(actual))
	pred := make(plotter.XYs, len(predicted))
	for i := range actual {
		truth[i].X, truth[i].Y = float64(i), actual[i]
		pred[i].X, pred[i].Y = float64(i), predicted[i]
	}

	p := plot.New()
	p.Title.Text = "Linear Regression Results"
	p.X.Label.Text = "Sample Index"
	p.Y.Label.Text = "Target Value"

	scatter, err := plotter.NewScatter(truth)
	if err != nil {
		return nil, errors.Wrap(err, "actual values")
	}
	scatter.GlyphStyle.Color = color.RGBA{B: 255, A: 255}

	line, err := plotter.NewLine(pred)
	if err != nil {
		return nil, errors.Wrap(err, "predicted values")
	}
	line.LineStyle.Color = color.RGBA{R: 255, A: 255}
	line.LineStyle.Width = vg.Points(2)

	p.Add(scatter, line)
	p.Legend.Add("Actual", scatter)
	p.Legend.Add("Predicted", line)
	p.Legend.Top = true
	return p, nil
}

// SaveRegressionPlot renders RegressionPlot into the store.
func (s *ArtifactStore) SaveRegressionPlot(actual, predicted []float64) (string, error) {
	p, err := RegressionPlot(actual, predicted)
	if err != nil {
		return "", err
	}
	return s.Save(p, plotWidth, plotHeight)
}
