package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

func TestAccuracyScore(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{name: "perfect", yTrue: vec(0, 1, 2), yPred: vec(0, 1, 2), want: 1},
		{name: "half", yTrue: vec(0, 1, 0, 1), yPred: vec(0, 0, 0, 0), want: 0.5},
		{name: "mismatch", yTrue: vec(0, 1), yPred: vec(0), wantErr: true},
		{name: "empty", yTrue: &mat.VecDense{}, yPred: &mat.VecDense{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AccuracyScore(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestConfusionMatrix(t *testing.T) {
	cm, labels, err := ConfusionMatrix(vec(0, 0, 1, 1, 2), vec(0, 1, 1, 1, 0))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2}, labels)
	assert.True(t, mat.Equal(mat.NewDense(3, 3, []float64{
		1, 1, 0,
		0, 2, 0,
		1, 0, 0,
	}), cm))
}

func TestPrecisionRecallFScore(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })

	// class 0: tp=1 pred=2 support=2 -> p=.5 r=.5 f=.5
	// class 1: tp=2 pred=3 support=2 -> p=2/3 r=1 f=.8
	// class 2: tp=0 pred=0 support=1 -> p=0 (undefined) r=0 f=0
	got, err := PrecisionRecallFScore(vec(0, 0, 1, 1, 2), vec(0, 1, 1, 1, 0))
	require.NoError(t, err)

	assert.InDelta(t, (0.5*2+2.0/3*2)/5, got.Precision, 1e-12)
	assert.InDelta(t, (0.5*2+1*2)/5, got.Recall, 1e-12)
	assert.InDelta(t, (0.5*2+0.8*2)/5, got.F1, 1e-12)
	require.Len(t, warnings, 1)

	var undefined *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warnings[0], &undefined))
}

func TestPrecisionRecallFScoreRanges(t *testing.T) {
	got, err := PrecisionRecallFScore(vec(1, 1, 1, 0), vec(1, 1, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, PRFScore{Precision: 1, Recall: 1, F1: 1}, got)

	for _, v := range []float64{got.Precision, got.Recall, got.F1} {
		assert.False(t, math.IsNaN(v))
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestSilhouetteScore(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 10, 11})

	got, err := SilhouetteScore(X, []int{0, 0, 1, 1})
	require.NoError(t, err)
	// a = 1, b = 10 (or 10 and 9 / 11 ...) per sample
	want := ((10.5-1)/10.5 + (9.5-1)/9.5 + (9.5-1)/9.5 + (10.5-1)/10.5) / 4
	assert.InDelta(t, want, got, 1e-12)

	bad, err := SilhouetteScore(X, []int{0, 1, 1, 1})
	require.NoError(t, err)
	assert.Less(t, bad, got)

	samples, err := SilhouetteSamples(X, []int{0, 1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, samples[0], "singleton clusters score 0")
}

func TestSilhouetteScoreInvalidLabels(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 2})

	_, err := SilhouetteScore(X, []int{0, 0, 0})
	assert.Error(t, err)
	_, err = SilhouetteScore(X, []int{0, 1, 2})
	assert.Error(t, err)
	_, err = SilhouetteScore(X, []int{0, 1})
	assert.Error(t, err)
}

func TestSilhouetteScoreLargeInput(t *testing.T) {
	n := silhouetteParallelThreshold * 2
	X := mat.NewDense(n, 2, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		c := i % 3
		X.Set(i, 0, float64(c*10)+float64(i%7)*0.1)
		X.Set(i, 1, float64(c*5)-float64(i%5)*0.1)
		labels[i] = c
	}

	got, err := SilhouetteScore(X, labels)
	require.NoError(t, err)

	assert.Greater(t, got, 0.5)
	assert.LessOrEqual(t, got, 1.0)
}
