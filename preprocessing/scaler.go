package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// zeroScale 未満の標準偏差や値域は定数列とみなし、割らずに 1 を使う
const zeroScale = 1e-8

// forEachColumn は X の各列を同じバッファに読み出して fn に渡す
func forEachColumn(X mat.Matrix, fn func(j int, col []float64)) {
	r, c := X.Dims()
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		fn(j, col)
	}
}

// checkTransform は Transform 共通の入力検査
func checkTransform(op string, nFeatures int, X mat.Matrix) error {
	r, c := X.Dims()
	if c != nFeatures {
		return errors.NewDimensionError(op, nFeatures, c, 1)
	}
	if r == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	return nil
}

// StandardScaler centres every column on its training mean and divides by
// the population standard deviation. Zero-variance columns keep scale 1, so
// they become all zeros instead of NaN; ConstantFeatures lists them.
type StandardScaler struct {
	model.BaseEstimator

	Mean      []float64
	Scale     []float64
	NFeatures int

	WithMean bool
	WithStd  bool

	constant []int
}

// NewStandardScaler creates a scaler. The trainers always use
// NewStandardScalerDefault.
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{WithMean: withMean, WithStd: withStd}
}

// NewStandardScalerDefault は平均除去と標準偏差スケーリングの両方を行う
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は学習行の列ごとの平均と母標準偏差を記録する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	s.Unfit()

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	s.constant = nil
	forEachColumn(X, func(j int, col []float64) {
		mean, std := stat.PopMeanStdDev(col, nil)
		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1
		switch {
		case std < zeroScale:
			s.constant = append(s.constant, j)
		case s.WithStd:
			s.Scale[j] = std
		}
	})

	s.SetFitted()
	return nil
}

// ConstantFeatures returns the indices of zero-variance training columns.
func (s *StandardScaler) ConstantFeatures() []int {
	return append([]int(nil), s.constant...)
}

// Transform applies (x - Mean) / Scale column by column.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.CheckFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}
	if err := checkTransform("StandardScaler.Transform", s.NFeatures, X); err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return &out, nil
}

func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"with_mean": s.WithMean, "with_std": s.WithStd}
}

func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d, constant=%d)",
		s.WithMean, s.WithStd, s.NFeatures, len(s.constant))
}

// MinMaxScaler maps every column linearly onto FeatureRange. The radar
// chart uses it so that all spokes share one axis.
type MinMaxScaler struct {
	model.BaseEstimator

	DataMin   []float64
	DataMax   []float64
	Scale     []float64 // max - min, 1 for constant columns
	NFeatures int

	FeatureRange [2]float64
}

func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{FeatureRange: featureRange}
}

// NewMinMaxScalerDefault は [0, 1] に写す
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0, 1})
}

// Fit は列ごとの最小値と最大値を記録する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if m.FeatureRange[0] >= m.FeatureRange[1] {
		return errors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}
	m.Unfit()

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.Scale = make([]float64, c)
	forEachColumn(X, func(j int, col []float64) {
		lo, hi := floats.Min(col), floats.Max(col)
		m.DataMin[j], m.DataMax[j] = lo, hi
		m.Scale[j] = hi - lo
		if math.Abs(m.Scale[j]) < zeroScale {
			m.Scale[j] = 1
		}
	})

	m.SetFitted()
	return nil
}

// Transform は定数列を FeatureRange の下端に写す
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.CheckFitted("MinMaxScaler", "Transform"); err != nil {
		return nil, err
	}
	if err := checkTransform("MinMaxScaler.Transform", m.NFeatures, X); err != nil {
		return nil, err
	}
	lo, width := m.FeatureRange[0], m.FeatureRange[1]-m.FeatureRange[0]
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return lo + width*(v-m.DataMin[j])/m.Scale[j]
	}, X)
	return &out, nil
}

func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"feature_range": m.FeatureRange}
}
