package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// AccuracyScore は正解率を計算する
func AccuracyScore(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("AccuracyScore", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Labels は yTrue と yPred に現れるラベルを昇順で返す
func Labels(yTrue, yPred mat.Vector) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, v := range []mat.Vector{yTrue, yPred} {
		for i := 0; i < v.Len(); i++ {
			l := v.AtVec(i)
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				out = append(out, l)
			}
		}
	}
	sort.Float64s(out)
	return out
}

// ConfusionMatrix は混同行列を計算する。行が正解ラベル、列が予測ラベルで、
// 並びは返り値のlabelsに従う。
func ConfusionMatrix(yTrue, yPred mat.Vector) (cm *mat.Dense, labels []float64, err error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}

	labels = Labels(yTrue, yPred)
	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	cm = mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r, c := index[yTrue.AtVec(i)], index[yPred.AtVec(i)]
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, labels, nil
}

// PRFScore はサポート数で重み付けした適合率・再現率・F1スコア
type PRFScore struct {
	Precision float64
	Recall    float64
	F1        float64
}

// PrecisionRecallFScore はクラスごとの指標をサポート数（正解ラベルの出現数）
// で重み付け平均する。予測が一件もないクラスの適合率は0とし、
// UndefinedMetricWarningを出す。
func PrecisionRecallFScore(yTrue, yPred mat.Vector) (PRFScore, error) {
	cm, labels, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return PRFScore{}, err
	}

	k := len(labels)
	var out PRFScore
	var total float64
	undefined := false
	for c := 0; c < k; c++ {
		tp := cm.At(c, c)
		support := mat.Sum(cm.RowView(c))
		predicted := mat.Sum(cm.ColView(c))

		var precision, recall, f1 float64
		if predicted > 0 {
			precision = tp / predicted
		} else if support > 0 {
			undefined = true
		}
		if support > 0 {
			recall = tp / support
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		out.Precision += precision * support
		out.Recall += recall * support
		out.F1 += f1 * support
		total += support
	}

	if undefined {
		errors.Warn(errors.NewUndefinedMetricWarning("precision",
			"some labels have no predicted samples", 0))
	}

	out.Precision /= total
	out.Recall /= total
	out.F1 /= total
	return out, nil
}
