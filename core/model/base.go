package model

import "github.com/YuminosukeSato/autotrain/pkg/errors"

// BaseEstimator は推定器と変換器に埋め込む学習済みフラグ。
// 排他制御は埋め込む側の mu が担う。
type BaseEstimator struct {
	fitted bool
}

// IsFitted は Fit が最後まで成功したかを返す
func (e *BaseEstimator) IsFitted() bool { return e.fitted }

// SetFitted は Fit の最後で呼ぶ
func (e *BaseEstimator) SetFitted() { e.fitted = true }

// Unfit は再学習の開始時に呼び、途中で失敗した Fit の結果を使わせない
func (e *BaseEstimator) Unfit() { e.fitted = false }

// CheckFitted returns a NotFittedError naming modelName.method when Fit has
// not completed.
func (e *BaseEstimator) CheckFitted(modelName, method string) error {
	if !e.fitted {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}
