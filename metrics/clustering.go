package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/core/parallel"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// silhouetteParallelThreshold 未満のサンプル数では逐次計算する
const silhouetteParallelThreshold = 256

// SilhouetteSamples は各サンプルのシルエット係数を計算する
//
// ラベル数は 2 以上 n-1 以下でなければならない。要素数1のクラスタに
// 属するサンプルの係数は0とする。
func SilhouetteSamples(X mat.Matrix, labels []int) ([]float64, error) {
	n, _ := X.Dims()
	if n != len(labels) {
		return nil, errors.NewDimensionError("SilhouetteSamples", n, len(labels), 0)
	}

	// ラベルを0..k-1に詰め直す
	ids := make(map[int]int)
	compact := make([]int, n)
	for i, l := range labels {
		id, ok := ids[l]
		if !ok {
			id = len(ids)
			ids[l] = id
		}
		compact[i] = id
	}
	k := len(ids)
	if k < 2 || k > n-1 {
		return nil, errors.NewValueError("SilhouetteSamples",
			"number of labels must be between 2 and n_samples-1")
	}

	sizes := make([]float64, k)
	for _, c := range compact {
		sizes[c]++
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, X)
	}

	scores := make([]float64, n)
	parallel.ParallelizeWithThreshold(n, silhouetteParallelThreshold, func(start, end int) {
		sums := make([]float64, k)
		for i := start; i < end; i++ {
			for c := range sums {
				sums[c] = 0
			}
			for j := 0; j < n; j++ {
				if i != j {
					sums[compact[j]] += floats.Distance(rows[i], rows[j], 2)
				}
			}

			own := compact[i]
			if sizes[own] <= 1 {
				scores[i] = 0
				continue
			}
			a := sums[own] / (sizes[own] - 1)
			b := math.Inf(1)
			for c := 0; c < k; c++ {
				if c != own {
					b = math.Min(b, sums[c]/sizes[c])
				}
			}
			if m := math.Max(a, b); m > 0 {
				scores[i] = (b - a) / m
			}
		}
	})
	return scores, nil
}

// SilhouetteScore は全サンプルのシルエット係数の平均を返す。値は[-1, 1]。
func SilhouetteScore(X mat.Matrix, labels []int) (float64, error) {
	scores, err := SilhouetteSamples(X, labels)
	if err != nil {
		return 0, err
	}
	return floats.Sum(scores) / float64(len(scores)), nil
}
