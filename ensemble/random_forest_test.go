package ensemble

import (
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func regressionData() (*mat.Dense, *mat.Dense) {
	// y = 2x + noise-free offset over two features.
	n := 30
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a := float64(i)
		b := float64(n - i)
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y.Set(i, 0, 2*a+0.5*b)
	}
	return X, y
}

func classificationData() (*mat.Dense, *mat.Dense) {
	n := 24
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		base := float64(i % 12)
		label := 0.0
		if i >= n/2 {
			base += 100
			label = 1.0
		}
		X.Set(i, 0, base)
		X.Set(i, 1, base/2)
		y.Set(i, 0, label)
	}
	return X, y
}

func TestRandomForestRegressorFitPredict(t *testing.T) {
	X, y := regressionData()

	rf := NewRandomForestRegressor().
		WithNEstimators(20).
		WithRandomState(42)
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	score, err := rf.Score(X, y)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if score < 0.9 {
		t.Errorf("Score() = %v, want >= 0.9 on training data", score)
	}

	pred, err := rf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	r, c := pred.Dims()
	nRows, _ := X.Dims()
	if r != nRows || c != 1 {
		t.Errorf("Predict() dims = (%d, %d), want (%d, 1)", r, c, nRows)
	}
}

func TestRandomForestRegressorDeterministic(t *testing.T) {
	X, y := regressionData()

	var preds [2]mat.Matrix
	for k := range preds {
		rf := NewRandomForestRegressor().
			WithNEstimators(10).
			WithRandomState(42)
		if err := rf.Fit(X, y); err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		pred, err := rf.Predict(X)
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		preds[k] = pred
	}

	r, _ := preds[0].Dims()
	for i := 0; i < r; i++ {
		if preds[0].At(i, 0) != preds[1].At(i, 0) {
			t.Fatalf("same seed produced different predictions at row %d: %v vs %v",
				i, preds[0].At(i, 0), preds[1].At(i, 0))
		}
	}
}

func TestRandomForestRegressorNotFitted(t *testing.T) {
	rf := NewRandomForestRegressor()
	if _, err := rf.Predict(mat.NewDense(1, 2, []float64{1, 2})); err == nil {
		t.Error("Predict() before Fit should error")
	}
}

func TestRandomForestClassifierFitPredict(t *testing.T) {
	X, y := classificationData()

	rf := NewRandomForestClassifier().
		WithNEstimators(20).
		WithRandomState(42)
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	classes := rf.Classes()
	if len(classes) != 2 || classes[0] != 0 || classes[1] != 1 {
		t.Fatalf("Classes() = %v, want [0 1]", classes)
	}

	score, err := rf.Score(X, y)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if score < 0.9 {
		t.Errorf("Score() = %v, want >= 0.9 on training data", score)
	}
}

func TestRandomForestClassifierProba(t *testing.T) {
	X, y := classificationData()

	rf := NewRandomForestClassifier().
		WithNEstimators(15).
		WithRandomState(1)
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	proba, err := rf.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	pred, err := rf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	r, c := proba.Dims()
	if c != 2 {
		t.Fatalf("PredictProba() columns = %d, want 2", c)
	}
	classes := rf.Classes()
	for i := 0; i < r; i++ {
		sum := 0.0
		best, bestP := classes[0], proba.At(i, 0)
		for j := 0; j < c; j++ {
			p := proba.At(i, j)
			sum += p
			if p > bestP {
				best, bestP = classes[j], p
			}
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("proba row %d sums to %v, want 1", i, sum)
		}
		if int(pred.At(i, 0)) != best {
			t.Errorf("Predict()[%d] = %v disagrees with proba argmax %d", i, pred.At(i, 0), best)
		}
	}
}

func TestRandomForestSaveLoad(t *testing.T) {
	X, y := regressionData()

	rf := NewRandomForestRegressor().
		WithNEstimators(5).
		WithRandomState(42)
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	want, err := rf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "forest.gob")
	if err := rf.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := NewRandomForestRegressor()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, err := loaded.Predict(X)
	if err != nil {
		t.Fatalf("Predict() after Load error = %v", err)
	}

	r, _ := want.Dims()
	for i := 0; i < r; i++ {
		if got.At(i, 0) != want.At(i, 0) {
			t.Fatalf("loaded prediction differs at row %d: %v vs %v",
				i, got.At(i, 0), want.At(i, 0))
		}
	}
}

func TestRandomForestSaveUnfitted(t *testing.T) {
	rf := NewRandomForestRegressor()
	if err := rf.Save(filepath.Join(t.TempDir(), "forest.gob")); err == nil {
		t.Error("Save() on unfitted forest should error")
	}
}

func TestRandomForestFeatureImportances(t *testing.T) {
	X, y := classificationData()

	rf := NewRandomForestClassifier().
		WithNEstimators(10).
		WithRandomState(3)
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	imp := rf.FeatureImportances()
	if len(imp) != 2 {
		t.Fatalf("FeatureImportances() length = %d, want 2", len(imp))
	}
	sum := imp[0] + imp[1]
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("importances sum to %v, want 1", sum)
	}
}
