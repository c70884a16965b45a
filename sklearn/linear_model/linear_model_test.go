package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

var (
	_ model.Regressor   = (*SGDRegressor)(nil)
	_ model.LinearModel = (*SGDRegressor)(nil)
	_ model.Classifier  = (*LinearSVC)(nil)
	_ model.LinearModel = (*LinearSVC)(nil)
)

func init() {
	// 収束警告でテスト出力を汚さない
	errors.SetWarningHandler(func(error) {})
}

func regressionData(n int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		x1 := math.Sin(float64(i) / 10.0)
		x2 := math.Cos(float64(i) / 7.0)
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		y.SetVec(i, 2*x1-3*x2+1)
	}
	return X, y
}

func TestSGDRegressor_FitPredict(t *testing.T) {
	X, y := regressionData(200)

	reg := NewSGDRegressor(
		WithSGDLearningRate("constant"),
		WithSGDEta0(0.01),
		WithSGDTol(1e-6),
		WithSGDRandomState(42),
	)
	if err := reg.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	coef := reg.Coef()
	want := []float64{2, -3}
	for j, w := range want {
		if math.Abs(coef.At(0, j)-w) > 0.1 {
			t.Errorf("coef[%d] = %v, want about %v", j, coef.At(0, j), w)
		}
	}
	if math.Abs(reg.Intercept()[0]-1) > 0.1 {
		t.Errorf("intercept = %v, want about 1", reg.Intercept()[0])
	}

	score, err := reg.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score < 0.99 {
		t.Errorf("R² = %v, want > 0.99", score)
	}
}

func TestSGDRegressor_Reproducible(t *testing.T) {
	X, y := regressionData(100)

	fit := func() *mat.Dense {
		reg := NewSGDRegressor(WithSGDRandomState(7), WithSGDEarlyStopping(true), WithSGDPenalty("elasticnet"))
		if err := reg.Fit(X, y); err != nil {
			t.Fatalf("Failed to fit model: %v", err)
		}
		return reg.Coef()
	}

	if a, b := fit(), fit(); !mat.Equal(a, b) {
		t.Errorf("same seed gave different weights: %v vs %v", mat.Formatted(a), mat.Formatted(b))
	}
}

func TestSGDRegressor_EarlyStopping(t *testing.T) {
	X, y := regressionData(200)

	reg := NewSGDRegressor(
		WithSGDLearningRate("constant"),
		WithSGDEta0(1e-3),
		WithSGDMaxIter(1000),
		WithSGDTol(1e-4),
		WithSGDEarlyStopping(true),
		WithSGDRandomState(42),
	)
	if err := reg.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	if reg.NIter() >= 1000 {
		t.Errorf("expected early stop, ran %d epochs", reg.NIter())
	}
}

func TestSGDRegressor_Errors(t *testing.T) {
	X, y := regressionData(20)

	if _, err := NewSGDRegressor().Predict(X); err == nil {
		t.Error("Predict before Fit should fail")
	} else {
		var nf *errors.NotFittedError
		if !errors.As(err, &nf) {
			t.Errorf("expected NotFittedError, got %v", err)
		}
	}

	err := NewSGDRegressor(WithSGDPenalty("l3")).Fit(X, y)
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}

	big := mat.NewDense(20, 2, nil)
	big.Apply(func(i, j int, _ float64) float64 { return float64(i+j) * 1e3 }, big)
	err = NewSGDRegressor(WithSGDLearningRate("constant"), WithSGDEta0(1e6), WithSGDAlpha(1e-4)).Fit(big, y)
	var ni *errors.NumericalInstabilityError
	if !errors.As(err, &ni) {
		t.Errorf("expected NumericalInstabilityError for a diverging fit, got %v", err)
	}
}

func blobs() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewVecDense(6, []float64{2, 2, 2, 5, 5, 5})
	return X, y
}

func TestLinearSVC_Binary(t *testing.T) {
	X, y := blobs()

	tests := []struct {
		name    string
		penalty string
		loss    string
	}{
		{"l2 hinge", "l2", "hinge"},
		{"l2 squared hinge", "l2", "squared_hinge"},
		{"l1 squared hinge", "l1", "squared_hinge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewLinearSVC(WithSVCPenalty(tt.penalty), WithSVCLoss(tt.loss), WithSVCRandomState(42))
			if err := svc.Fit(X, y); err != nil {
				t.Fatalf("Failed to fit model: %v", err)
			}

			pred, err := svc.Predict(X)
			if err != nil {
				t.Fatalf("Failed to predict: %v", err)
			}
			for i := 0; i < 6; i++ {
				if pred.At(i, 0) != y.AtVec(i) {
					t.Errorf("sample %d: expected %v, got %v", i, y.AtVec(i), pred.At(i, 0))
				}
			}

			if got := svc.Classes(); len(got) != 2 || got[0] != 2 || got[1] != 5 {
				t.Errorf("Classes() = %v", got)
			}
			dec, err := svc.DecisionFunction(X)
			if err != nil {
				t.Fatalf("DecisionFunction failed: %v", err)
			}
			if _, c := dec.Dims(); c != 1 {
				t.Errorf("binary decision function should have 1 column, got %d", c)
			}
		})
	}
}

func TestLinearSVC_Multiclass(t *testing.T) {
	n := 30
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	centers := [][2]float64{{0, 0}, {5, 5}, {0, 8}}
	for i := 0; i < n; i++ {
		c := i % 3
		X.Set(i, 0, centers[c][0]+0.1*float64(i%4))
		X.Set(i, 1, centers[c][1]-0.1*float64(i%5))
		y.SetVec(i, float64(c))
	}

	svc := NewLinearSVC(WithSVCMaxIter(2000), WithSVCRandomState(1))
	if err := svc.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	acc, err := svc.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if acc != 1 {
		t.Errorf("accuracy = %v, want 1", acc)
	}
	if r, c := svc.Coef().Dims(); r != 3 || c != 2 {
		t.Errorf("Coef dims = %dx%d, want 3x2", r, c)
	}
	if len(svc.Intercept()) != 3 {
		t.Errorf("expected 3 intercepts, got %d", len(svc.Intercept()))
	}
}

func TestLinearSVC_Errors(t *testing.T) {
	X, y := blobs()

	err := NewLinearSVC(WithSVCPenalty("l1"), WithSVCLoss("hinge")).Fit(X, y)
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("l1 + hinge should be a ValidationError, got %v", err)
	}

	err = NewLinearSVC(WithSVCC(0)).Fit(X, y)
	if !errors.As(err, &ve) {
		t.Errorf("C=0 should be a ValidationError, got %v", err)
	}

	single := mat.NewVecDense(6, []float64{1, 1, 1, 1, 1, 1})
	err = NewLinearSVC().Fit(X, single)
	var ide *errors.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Errorf("single class should be InsufficientDataError, got %v", err)
	}

	svc := NewLinearSVC()
	if err := svc.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	if _, err := svc.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected a dimension error for 3 features")
	}
}
