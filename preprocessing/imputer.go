package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// ImputeStrategy selects the statistic used to fill missing (NaN) cells.
type ImputeStrategy string

const (
	// ImputeMean fills with the column mean.
	ImputeMean ImputeStrategy = "mean"
	// ImputeMostFrequent fills with the column mode; ties go to the smallest value.
	ImputeMostFrequent ImputeStrategy = "most_frequent"
)

// SimpleImputer replaces NaN cells column by column.
type SimpleImputer struct {
	model.BaseEstimator

	Strategy ImputeStrategy

	// Statistics holds the fill value per column after Fit.
	Statistics []float64
}

// NewSimpleImputer creates an imputer with the given strategy.
func NewSimpleImputer(strategy ImputeStrategy) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit computes the fill statistic of every column over its non-missing cells.
func (s *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	stats := make([]float64, c)
	col := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		col = col[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		if len(col) == 0 {
			return errors.NewValueError("SimpleImputer.Fit", fmt.Sprintf("column %d has no observed values", j))
		}
		switch s.Strategy {
		case ImputeMean:
			sum := 0.0
			for _, v := range col {
				sum += v
			}
			stats[j] = sum / float64(len(col))
		case ImputeMostFrequent:
			stats[j] = mostFrequent(col)
		default:
			return errors.NewValidationError("strategy", "must be mean or most_frequent", s.Strategy)
		}
	}

	s.Statistics = stats
	s.SetFitted()
	return nil
}

func mostFrequent(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	best, bestCount := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestCount {
			best, bestCount = sorted[i], j-i
		}
		i = j
	}
	return best
}

// Transform fills NaN cells with the fitted statistics.
func (s *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.CheckFitted("SimpleImputer", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != len(s.Statistics) {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", len(s.Statistics), c, 1)
	}
	if r == 0 {
		return nil, errors.NewModelError("SimpleImputer.Transform", "empty data", errors.ErrEmptyData)
	}

	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 {
		if math.IsNaN(v) {
			return s.Statistics[j]
		}
		return v
	}, X)
	return out, nil
}

// FitTransform fits and transforms X.
func (s *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// GetParams returns the imputer configuration.
func (s *SimpleImputer) GetParams() map[string]interface{} {
	return map[string]interface{}{"strategy": string(s.Strategy)}
}
