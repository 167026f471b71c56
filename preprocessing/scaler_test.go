package preprocessing

import (
	"math"
	"testing"

	"github.com/coldchain-ml/coldchain/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestStandardScalerFit(t *testing.T) {
	tests := []struct {
		name      string
		X         mat.Matrix
		wantMean  []float64
		wantScale []float64
		wantErr   bool
	}{
		{
			name: "two features",
			X: mat.NewDense(4, 2, []float64{
				1.0, 10.0,
				2.0, 20.0,
				3.0, 30.0,
				4.0, 40.0,
			}),
			wantMean:  []float64{2.5, 25.0},
			wantScale: []float64{math.Sqrt(1.25), math.Sqrt(125.0)},
			wantErr:   false,
		},
		{
			name: "constant feature keeps scale 1",
			X: mat.NewDense(3, 2, []float64{
				5.0, 1.0,
				5.0, 2.0,
				5.0, 3.0,
			}),
			wantMean:  []float64{5.0, 2.0},
			wantScale: []float64{1.0, math.Sqrt(2.0 / 3.0)},
			wantErr:   false,
		},
		{
			name:    "empty data",
			X:       &mat.Dense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scaler := NewStandardScalerDefault()
			err := scaler.Fit(tt.X)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Fit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			for j := range tt.wantMean {
				if math.Abs(scaler.Mean[j]-tt.wantMean[j]) > 1e-10 {
					t.Errorf("Mean[%d] = %v, want %v", j, scaler.Mean[j], tt.wantMean[j])
				}
				if math.Abs(scaler.Scale[j]-tt.wantScale[j]) > 1e-10 {
					t.Errorf("Scale[%d] = %v, want %v", j, scaler.Scale[j], tt.wantScale[j])
				}
			}
		})
	}
}

func TestStandardScalerTransform(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{2.0, 4.0, 6.0, 8.0})

	scaler := NewStandardScalerDefault()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	r, _ := scaled.Dims()
	sum, sumSq := 0.0, 0.0
	for i := 0; i < r; i++ {
		v := scaled.At(i, 0)
		sum += v
		sumSq += v * v
	}
	if math.Abs(sum/float64(r)) > 1e-10 {
		t.Errorf("transformed mean = %v, want 0", sum/float64(r))
	}
	if math.Abs(sumSq/float64(r)-1.0) > 1e-10 {
		t.Errorf("transformed variance = %v, want 1", sumSq/float64(r))
	}

	// Round trip back to the original scale.
	restored, err := scaler.InverseTransform(scaled)
	if err != nil {
		t.Fatalf("InverseTransform() error = %v", err)
	}
	for i := 0; i < r; i++ {
		if math.Abs(restored.At(i, 0)-X.At(i, 0)) > 1e-10 {
			t.Errorf("restored[%d] = %v, want %v", i, restored.At(i, 0), X.At(i, 0))
		}
	}
}

func TestStandardScalerNotFitted(t *testing.T) {
	scaler := NewStandardScalerDefault()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	if _, err := scaler.Transform(X); err == nil {
		t.Error("Transform() before Fit should error")
	} else {
		var nfe *errors.NotFittedError
		if !errors.As(err, &nfe) {
			t.Errorf("Transform() error = %T, want NotFittedError", err)
		}
	}
}

func TestStandardScalerDimensionMismatch(t *testing.T) {
	scaler := NewStandardScalerDefault()
	if err := scaler.Fit(mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if _, err := scaler.Transform(mat.NewDense(1, 3, []float64{1, 2, 3})); err == nil {
		t.Error("Transform() with wrong feature count should error")
	} else {
		var de *errors.DimensionError
		if !errors.As(err, &de) {
			t.Errorf("Transform() error = %T, want DimensionError", err)
		}
	}
}
