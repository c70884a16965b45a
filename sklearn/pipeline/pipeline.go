// Package pipeline は前処理と推定器を1つの推定器として連結する。
package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// Step は名前付きの変換器
type Step struct {
	Name        string
	Transformer model.Transformer
}

// Pipeline は Steps を順に適用してから Final に渡す。
// Fit は変換器を学習データだけで学習するため、交差検証の各foldで
// 新しい Pipeline を作れば検証foldへの情報漏れが起きない。
type Pipeline struct {
	model.BaseEstimator

	Steps     []Step
	Final     model.Estimator
	FinalName string

	mu sync.RWMutex
}

// NewPipeline は新しいPipelineを作成
func NewPipeline(finalName string, final model.Estimator, steps ...Step) *Pipeline {
	return &Pipeline{Steps: steps, Final: final, FinalName: finalName}
}

// Fit は各変換器を順にFitTransformし、最終推定器を学習する
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Unfit()
	if p.Final == nil {
		return errors.NewValueError("Pipeline.Fit", "final estimator is nil")
	}
	Xt := X
	for _, s := range p.Steps {
		out, err := s.Transformer.FitTransform(Xt)
		if err != nil {
			return errors.Wrapf(err, "pipeline step %q", s.Name)
		}
		Xt = out
	}
	if err := p.Final.Fit(Xt, y); err != nil {
		return errors.Wrapf(err, "pipeline step %q", p.FinalName)
	}
	p.SetFitted()
	return nil
}

// Transform は学習済みの変換器だけを適用する
func (p *Pipeline) Transform(X mat.Matrix) (mat.Matrix, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.CheckFitted("Pipeline", "Transform"); err != nil {
		return nil, err
	}
	return p.transform(X)
}

func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	Xt := X
	for _, s := range p.Steps {
		out, err := s.Transformer.Transform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline step %q", s.Name)
		}
		Xt = out
	}
	return Xt, nil
}

// Predict は変換後のデータで最終推定器の予測を返す
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.CheckFitted("Pipeline", "Predict"); err != nil {
		return nil, err
	}
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return p.Final.Predict(Xt)
}

// Score は最終推定器が Scorer のときそのスコアを返す
func (p *Pipeline) Score(X, y mat.Matrix) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.CheckFitted("Pipeline", "Score"); err != nil {
		return 0, err
	}
	scorer, ok := p.Final.(model.Scorer)
	if !ok {
		return 0, errors.NewValueError("Pipeline.Score", fmt.Sprintf("final step %q has no Score", p.FinalName))
	}
	Xt, err := p.transform(X)
	if err != nil {
		return 0, err
	}
	return scorer.Score(Xt, y)
}

// Named は名前で変換器または最終推定器を返す
func (p *Pipeline) Named(name string) (any, bool) {
	for _, s := range p.Steps {
		if s.Name == name {
			return s.Transformer, true
		}
	}
	if name == p.FinalName {
		return p.Final, true
	}
	return nil, false
}

// GetParams は各段のハイパーパラメータを "<step>__<param>" の形で返す
func (p *Pipeline) GetParams() map[string]interface{} {
	out := map[string]interface{}{}
	add := func(name string, v any) {
		g, ok := v.(model.ParameterGetter)
		if !ok {
			return
		}
		for k, val := range g.GetParams() {
			out[name+"__"+k] = val
		}
	}
	for _, s := range p.Steps {
		add(s.Name, s.Transformer)
	}
	add(p.FinalName, p.Final)
	return out
}

func (p *Pipeline) String() string {
	names := make([]string, 0, len(p.Steps)+1)
	for _, s := range p.Steps {
		names = append(names, s.Name)
	}
	names = append(names, p.FinalName)
	return "Pipeline(" + strings.Join(names, " -> ") + ")"
}
