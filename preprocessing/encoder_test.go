package preprocessing

import (
	"reflect"
	"testing"

	"github.com/coldchain-ml/coldchain/pkg/errors"
)

func TestLabelEncoderFitTransform(t *testing.T) {
	tests := []struct {
		name        string
		labels      []string
		wantClasses []string
		wantCodes   []int
		wantErr     bool
	}{
		{
			name:        "classes sorted lexicographically",
			labels:      []string{"Mango", "Apple", "Banana", "Apple"},
			wantClasses: []string{"Apple", "Banana", "Mango"},
			wantCodes:   []int{2, 0, 1, 0},
			wantErr:     false,
		},
		{
			name:        "single class",
			labels:      []string{"Apple", "Apple"},
			wantClasses: []string{"Apple"},
			wantCodes:   []int{0, 0},
			wantErr:     false,
		},
		{
			name:    "empty labels",
			labels:  nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder := NewLabelEncoder()
			codes, err := encoder.FitTransform(tt.labels)

			if (err != nil) != tt.wantErr {
				t.Fatalf("FitTransform() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if !reflect.DeepEqual(encoder.Classes(), tt.wantClasses) {
				t.Errorf("Classes() = %v, want %v", encoder.Classes(), tt.wantClasses)
			}
			if !reflect.DeepEqual(codes, tt.wantCodes) {
				t.Errorf("FitTransform() = %v, want %v", codes, tt.wantCodes)
			}
		})
	}
}

func TestLabelEncoderUnknownLabel(t *testing.T) {
	encoder := NewLabelEncoder()
	if err := encoder.Fit([]string{"Apple", "Banana"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if _, err := encoder.Transform([]string{"Cherry"}); err == nil {
		t.Error("Transform() with unseen label should error")
	} else {
		var ve *errors.ValueError
		if !errors.As(err, &ve) {
			t.Errorf("Transform() error = %T, want ValueError", err)
		}
	}
}

func TestLabelEncoderInverseTransform(t *testing.T) {
	encoder := NewLabelEncoder()
	if err := encoder.Fit([]string{"Mango", "Apple", "Banana"}); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	labels, err := encoder.InverseTransform([]int{2, 0, 1})
	if err != nil {
		t.Fatalf("InverseTransform() error = %v", err)
	}
	want := []string{"Mango", "Apple", "Banana"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("InverseTransform() = %v, want %v", labels, want)
	}

	if _, err := encoder.InverseTransform([]int{3}); err == nil {
		t.Error("InverseTransform() with out-of-range code should error")
	}
	if _, err := encoder.InverseTransform([]int{-1}); err == nil {
		t.Error("InverseTransform() with negative code should error")
	}
}

func TestLabelEncoderNotFitted(t *testing.T) {
	encoder := NewLabelEncoder()
	if _, err := encoder.Transform([]string{"Apple"}); err == nil {
		t.Error("Transform() before Fit should error")
	}
}
