package errors

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// 報告する非有限値の上限
const maxReportedValues = 10

func nonFinite(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

// CheckNumericalStability returns a NumericalInstabilityError carrying up to
// ten NaN or Inf entries of values. iteration is the solver epoch, 0 for
// input checks.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	var bad []float64
	for _, v := range values {
		if nonFinite(v) {
			bad = append(bad, v)
			if len(bad) == maxReportedValues {
				break
			}
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(operation, bad, iteration)
	}
	return nil
}

// CheckMatrix は行列を走査して CheckNumericalStability と同じ検査をする。
// 学習データのコピーを作らずに済む。
func CheckMatrix(operation string, m mat.Matrix) error {
	r, c := m.Dims()
	var bad []float64
	for i := 0; i < r && len(bad) < maxReportedValues; i++ {
		for j := 0; j < c && len(bad) < maxReportedValues; j++ {
			if v := m.At(i, j); nonFinite(v) {
				bad = append(bad, v)
			}
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(operation, bad, 0)
	}
	return nil
}

// CheckScalar は intercept などの単一値用
func CheckScalar(operation string, value float64, iteration int) error {
	if nonFinite(value) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// ClipValue clips value to [lo, hi]; SGD uses it to bound the loss gradient.
func ClipValue(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}
