package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

func TestBaseEstimatorState(t *testing.T) {
	var e BaseEstimator

	assert.False(t, e.IsFitted())
	err := e.CheckFitted("KMeans", "Predict")
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "Predict", nf.Method)

	e.SetFitted()
	assert.True(t, e.IsFitted())
	assert.NoError(t, e.CheckFitted("KMeans", "Predict"))

	// 再学習が始まったら学習済みではない
	e.Unfit()
	assert.False(t, e.IsFitted())
	assert.Error(t, e.CheckFitted("KMeans", "Predict"))
}
