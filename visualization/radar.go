package visualization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/preprocessing"
)

// 中心に潰れないよう正規化後の半径をこの値から始める
const radarInnerRadius = 0.1

// ClusterMeans returns the per-feature mean of every cluster that has at
// least one member, in cluster order, together with the cluster ids kept.
func ClusterMeans(X mat.Matrix, labels []int, nClusters int) (*mat.Dense, []int, error) {
	rows, cols := X.Dims()
	if rows != len(labels) {
		return nil, nil, errors.NewDimensionError("ClusterMeans", rows, len(labels), 0)
	}
	sums := make([][]float64, nClusters)
	counts := make([]int, nClusters)
	for c := range sums {
		sums[c] = make([]float64, cols)
	}
	for i, l := range labels {
		if l < 0 || l >= nClusters {
			return nil, nil, errors.NewValidationError("labels", "label out of range", l)
		}
		counts[l]++
		for j := 0; j < cols; j++ {
			sums[l][j] += X.At(i, j)
		}
	}

	var kept []int
	var data []float64
	for c, s := range sums {
		if counts[c] == 0 {
			continue
		}
		kept = append(kept, c)
		for _, v := range s {
			data = append(data, v/float64(counts[c]))
		}
	}
	if len(kept) == 0 {
		return nil, nil, errors.NewModelError("ClusterMeans", "empty data", errors.ErrEmptyData)
	}
	return mat.NewDense(len(kept), cols, data), kept, nil
}

// RadarPlot draws one closed polygon per cluster over one spoke per feature.
// Each spoke is min-max scaled across the clusters so features with large
// ranges do not flatten the others.
func RadarPlot(means *mat.Dense, clusters []int, features []string) (*plot.Plot, error) {
	k, nFeatures := means.Dims()
	if len(clusters) != k {
		return nil, errors.NewDimensionError("RadarPlot", k, len(clusters), 0)
	}
	if len(features) != nFeatures {
		return nil, errors.NewDimensionError("RadarPlot", nFeatures, len(features), 1)
	}

	scaled, err := preprocessing.NewMinMaxScalerDefault().FitTransform(means)
	if err != nil {
		return nil, errors.Wrap(err, "scale cluster means")
	}

	angles := make([]float64, nFeatures)
	for j := range angles {
		angles[j] = math.Pi/2 - 2*math.Pi*float64(j)/float64(nFeatures)
	}

	p := plot.New()
	p.Title.Text = "Cluster Characteristics Radar Chart"
	p.HideAxes()

	// 外周と軸
	outer := make(plotter.XYs, nFeatures+1)
	spokes := plotter.XYLabels{}
	for j, a := range angles {
		outer[j] = plotter.XY{X: math.Cos(a), Y: math.Sin(a)}
		spokes.XYs = append(spokes.XYs, plotter.XY{X: 1.08 * math.Cos(a), Y: 1.08 * math.Sin(a)})
		spokes.Labels = append(spokes.Labels, features[j])

		axis, err := plotter.NewLine(plotter.XYs{{}, outer[j]})
		if err != nil {
			return nil, err
		}
		axis.LineStyle.Color = plotutil.Color(7)
		axis.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(axis)
	}
	outer[nFeatures] = outer[0]
	frame, err := plotter.NewLine(outer)
	if err != nil {
		return nil, err
	}
	frame.LineStyle.Color = plotutil.Color(7)
	p.Add(frame)

	names, err := plotter.NewLabels(spokes)
	if err != nil {
		return nil, err
	}
	p.Add(names)

	for i := 0; i < k; i++ {
		pts := make(plotter.XYs, nFeatures+1)
		for j, a := range angles {
			r := radarInnerRadius + (1-radarInnerRadius)*scaled.At(i, j)
			pts[j] = plotter.XY{X: r * math.Cos(a), Y: r * math.Sin(a)}
		}
		pts[nFeatures] = pts[0]

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)

		marks, err := plotter.NewScatter(pts[:nFeatures])
		if err != nil {
			return nil, err
		}
		marks.GlyphStyle.Color = plotutil.Color(i)
		marks.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(marks)
		p.Legend.Add(fmt.Sprintf("Cluster %d", clusters[i]), line)
	}

	p.Legend.Top = true
	p.X.Min, p.X.Max = -1.3, 1.3
	p.Y.Min, p.Y.Max = -1.3, 1.3
	return p, nil
}

// SaveRadarPlot computes the cluster means of X and renders RadarPlot.
func (s *ArtifactStore) SaveRadarPlot(X mat.Matrix, labels []int, nClusters int, features []string) (string, error) {
	means, kept, err := ClusterMeans(X, labels, nClusters)
	if err != nil {
		return "", err
	}
	p, err := RadarPlot(means, kept, features)
	if err != nil {
		return "", err
	}
	return s.Save(p, 8*vg.Inch, 8*vg.Inch)
}
