package visualization

import (
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// confusionGrid adapts a confusion matrix to plotter.GridXYZ. Columns are
// predicted labels, rows true labels, with the first true label on top.
type confusionGrid struct {
	cm *mat.Dense
}

func (g confusionGrid) Dims() (c, r int) {
	r, c = g.cm.Dims()
	return c, r
}

func (g confusionGrid) Z(c, r int) float64 {
	n, _ := g.cm.Dims()
	return g.cm.At(n-1-r, c)
}

func (g confusionGrid) X(c int) float64 { return float64(c) }
func (g confusionGrid) Y(r int) float64 { return float64(r) }

type labelTicks struct {
	labels  []string
	reverse bool
}

func (t labelTicks) Ticks(_, _ float64) []plot.Tick {
	ticks := make([]plot.Tick, len(t.labels))
	for i, l := range t.labels {
		v := i
		if t.reverse {
			v = len(t.labels) - 1 - i
		}
		ticks[i] = plot.Tick{Value: float64(v), Label: l}
	}
	return ticks
}

// ConfusionMatrixPlot draws cm as a heat map annotated with the counts.
// labels name the classes in row/column order.
func ConfusionMatrixPlot(cm *mat.Dense, labels []float64) (*plot.Plot, error) {
	if cm == nil {
		return nil, errors.NewModelError("ConfusionMatrixPlot", "empty data", errors.ErrEmptyData)
	}
	r, c := cm.Dims()
	if r != c || r != len(labels) {
		return nil, errors.NewDimensionError("ConfusionMatrixPlot", len(labels), r, 0)
	}

	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = strconv.FormatFloat(l, 'g', -1, 64)
	}

	p := plot.New()
	p.Title.Text = "Confusion Matrix"
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "Actual"
	p.X.Tick.Marker = labelTicks{labels: names}
	p.Y.Tick.Marker = labelTicks{labels: names, reverse: true}

	hm := plotter.NewHeatMap(confusionGrid{cm}, palette.Heat(12, 1))
	if hm.Max == hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	// セルごとの件数
	var cells plotter.XYLabels
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(j), Y: float64(r - 1 - i)})
			cells.Labels = append(cells.Labels, strconv.Itoa(int(cm.At(i, j))))
		}
	}
	counts, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, errors.Wrap(err, "confusion counts")
	}
	p.Add(counts)
	return p, nil
}

// SaveConfusionMatrixPlot renders ConfusionMatrixPlot into the store.
func (s *ArtifactStore) SaveConfusionMatrixPlot(cm *mat.Dense, labels []float64) (string, error) {
	p, err := ConfusionMatrixPlot(cm, labels)
	if err != nil {
		return "", err
	}
	return s.Save(p, 6*vg.Inch, 6*vg.Inch)
}
